package rules

import (
	"errors"

	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Ruleset construction.
 *
 * Groups compiled rules by target event kind, preserving first-seen order
 * within each group, and builds one matcher per kind. The resulting map is
 * the immutable dispatch table of the detection engine: exactly one entry
 * per kind that has at least one rule.
 *
 * The grouping step merges by key, so a duplicate insertion during matcher
 * construction cannot happen through any data input; observing one means a
 * broken assumption in this file and is treated as an unrecoverable
 * invariant violation (panic), not an error value.
 */

// ErrEmptyRuleset indicates matcher construction over an empty rule group.
var ErrEmptyRuleset = errors.New("ruleset has no rules")

// CompiledRule pairs a rule name with its compiled condition. Owned by
// exactly one Ruleset.
type CompiledRule struct {
	Name      string
	Condition *CompiledCondition
}

// Ruleset is the compiled matcher for one event kind. Immutable after
// construction; reads require no synchronization.
type Ruleset struct {
	kind  types.EventKind
	rules []CompiledRule
}

// NewRuleset builds a matcher over a non-empty group of rules sharing one
// event kind. Rule order is evaluation order.
func NewRuleset(kind types.EventKind, rules []CompiledRule) (*Ruleset, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyRuleset
	}
	return &Ruleset{kind: kind, rules: rules}, nil
}

// Kind returns the event kind this matcher dispatches on.
func (r *Ruleset) Kind() types.EventKind {
	return r.kind
}

// Len returns the number of rules in the group.
func (r *Ruleset) Len() int {
	return len(r.rules)
}

// Matches evaluates every rule in insertion order and returns those whose
// predicate holds.
func (r *Ruleset) Matches(ev *types.Event) []*CompiledRule {
	var matched []*CompiledRule
	for i := range r.rules {
		if r.rules[i].Condition.Match(ev) {
			matched = append(matched, &r.rules[i])
		}
	}
	return matched
}

// BuildRulesets compiles every raw rule and groups the results by event kind.
// Unrecognized type names fail with *PayloadTypeError, condition failures
// with *ConditionError, matcher construction failures with *RuleCompileError.
// Any single failure aborts the whole build.
func BuildRulesets(raw []RawRule) (map[types.EventKind]*Ruleset, error) {
	compiler := NewCompiler()

	groups := make(map[types.EventKind][]CompiledRule)
	var order []types.EventKind

	for _, r := range raw {
		kind, err := types.ParseEventKind(r.Type)
		if err != nil {
			return nil, &PayloadTypeError{Name: r.Type}
		}
		condition, err := compiler.compileForKind(kind, r.Condition)
		if err != nil {
			return nil, err
		}
		if _, seen := groups[kind]; !seen {
			order = append(order, kind)
		}
		groups[kind] = append(groups[kind], CompiledRule{Name: r.Name, Condition: condition})
	}

	rulesets := make(map[types.EventKind]*Ruleset, len(groups))
	for _, kind := range order {
		ruleset, err := NewRuleset(kind, groups[kind])
		if err != nil {
			return nil, &RuleCompileError{Err: err}
		}
		if _, dup := rulesets[kind]; dup {
			panic("rules to ruleset grouping is a 1:1 map")
		}
		rulesets[kind] = ruleset
	}

	return rulesets, nil
}
