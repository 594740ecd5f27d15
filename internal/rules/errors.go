package rules

import "fmt"

/*
 * Error taxonomy for engine construction.
 *
 * Every stage of rule loading and compilation surfaces its failure
 * immediately; a single malformed rule invalidates the entire engine
 * instance. No partial rule set is ever activated, so the operator fixes
 * the input before the monitor runs with any rules at all.
 *
 * The types carry the context an operator needs to locate the problem
 * (file path, original condition text, offending type name) and implement
 * Unwrap so callers can reach the underlying cause with errors.As/Is.
 */

// PatternError indicates the rule directory pattern itself is unusable.
// Fatal before any file is read.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("error listing rules %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// RuleLoadError indicates a discovered rule file could not be read.
type RuleLoadError struct {
	Path string
	Err  error
}

func (e *RuleLoadError) Error() string {
	return fmt.Sprintf("error reading rule file %q: %v", e.Path, e.Err)
}

func (e *RuleLoadError) Unwrap() error { return e.Err }

// RuleParseError indicates a rule file does not decode as a list of rules.
type RuleParseError struct {
	Path string
	Err  error
}

func (e *RuleParseError) Error() string {
	return fmt.Sprintf("error parsing rule file %q: %v", e.Path, e.Err)
}

func (e *RuleParseError) Unwrap() error { return e.Err }

// ConditionError indicates a condition failed to parse or to resolve against
// the declared shape of its event kind. Carries the original condition text.
type ConditionError struct {
	Condition string
	Err       error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("error validating condition %q: %v", e.Condition, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// PayloadTypeError indicates a rule targets an event type outside the fixed
// vocabulary.
type PayloadTypeError struct {
	Name string
}

func (e *PayloadTypeError) Error() string {
	return fmt.Sprintf("payload type %q not found", e.Name)
}

// RuleCompileError indicates matcher construction failed for a type group.
type RuleCompileError struct {
	Err error
}

func (e *RuleCompileError) Error() string {
	return fmt.Sprintf("error compiling rules: %v", e.Err)
}

func (e *RuleCompileError) Unwrap() error { return e.Err }
