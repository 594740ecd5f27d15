package types

import "errors"

// Sentinel errors shared across hostguard components.
var (
	// ErrUnknownEventKind indicates a rule `type` string outside the fixed
	// event-kind vocabulary.
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrUnknownField indicates a condition references a field not declared
	// for the targeted event kind.
	ErrUnknownField = errors.New("field not declared for event kind")

	// ErrOperatorMismatch indicates an operator unsupported for the resolved
	// field type (e.g. ordering on a string field compared with a boolean).
	ErrOperatorMismatch = errors.New("operator not supported for field type")

	// ErrLiteralMismatch indicates a literal whose type does not match the
	// declared field type.
	ErrLiteralMismatch = errors.New("literal type does not match field type")
)
