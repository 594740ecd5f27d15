package rules

import (
	"fmt"
	"strings"

	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Condition compilation.
 *
 * Turns parsed condition text into a CompiledCondition: a predicate tree
 * whose leaves are accessor closures bound against the declared shape of the
 * targeted event kind. All resolution happens here, at engine construction:
 * unknown fields, operator/type mismatches and literal type mismatches are
 * compile-time errors, never runtime ones.
 *
 * Validation rules:
 *   - string fields: all six operators, string literal required
 *   - int fields: all six operators, number literal required
 *   - bool fields: equality only, boolean literal required
 */

// Compiler compiles condition text for a target event type. Construct once,
// reuse for every rule.
type Compiler struct{}

// NewCompiler creates a condition compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompiledCondition is an immutable predicate over events. Expr retains the
// parsed form for introspection; evaluation uses the bound closure tree.
type CompiledCondition struct {
	Expr Expr
	pred func(*types.Event) bool
}

// Match evaluates the predicate against an event. Read-only and safe for
// concurrent use.
func (c *CompiledCondition) Match(ev *types.Event) bool {
	return c.pred(ev)
}

// Compile parses and resolves a condition against the named event type.
// Returns *PayloadTypeError for an unrecognized type name and
// *ConditionError (carrying the original text) for any syntax or field
// resolution failure.
func (c *Compiler) Compile(eventType, condition string) (*CompiledCondition, error) {
	kind, err := types.ParseEventKind(eventType)
	if err != nil {
		return nil, &PayloadTypeError{Name: eventType}
	}
	return c.compileForKind(kind, condition)
}

func (c *Compiler) compileForKind(kind types.EventKind, condition string) (*CompiledCondition, error) {
	expr, err := ParseCondition(kind.String(), condition)
	if err != nil {
		return nil, &ConditionError{Condition: condition, Err: err}
	}
	pred, err := bind(kind, expr)
	if err != nil {
		return nil, &ConditionError{Condition: condition, Err: err}
	}
	return &CompiledCondition{Expr: expr, pred: pred}, nil
}

// bind resolves every leaf of the expression tree against the event kind's
// field table and returns the evaluation closure.
func bind(kind types.EventKind, expr Expr) (func(*types.Event) bool, error) {
	switch e := expr.(type) {
	case AndExpr:
		l, err := bind(kind, e.L)
		if err != nil {
			return nil, err
		}
		r, err := bind(kind, e.R)
		if err != nil {
			return nil, err
		}
		return func(ev *types.Event) bool { return l(ev) && r(ev) }, nil
	case OrExpr:
		l, err := bind(kind, e.L)
		if err != nil {
			return nil, err
		}
		r, err := bind(kind, e.R)
		if err != nil {
			return nil, err
		}
		return func(ev *types.Event) bool { return l(ev) || r(ev) }, nil
	case NotExpr:
		x, err := bind(kind, e.X)
		if err != nil {
			return nil, err
		}
		return func(ev *types.Event) bool { return !x(ev) }, nil
	case CmpExpr:
		return bindCmp(kind, e)
	default:
		return nil, fmt.Errorf("unsupported expression node %T", expr)
	}
}

// bindCmp resolves a single comparison leaf: field lookup, operator
// compatibility, literal typing.
func bindCmp(kind types.EventKind, e CmpExpr) (func(*types.Event) bool, error) {
	name := fieldName(e.Field)
	spec, err := lookupField(kind, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q on %s", err, name, kind)
	}

	target, err := literalTarget(spec.typ, e)
	if err != nil {
		return nil, err
	}

	op := e.Op
	get := spec.get
	return func(ev *types.Event) bool {
		return Compare(op, get(ev), target)
	}, nil
}

// literalTarget validates the literal against the field type and returns the
// comparison target value.
func literalTarget(typ FieldType, e CmpExpr) (any, error) {
	name := fieldName(e.Field)
	switch typ {
	case FieldTypeString:
		if e.Value.Kind != LitString {
			return nil, fmt.Errorf("%w: field %q is string", types.ErrLiteralMismatch, name)
		}
		return e.Value.Str, nil
	case FieldTypeInt:
		if e.Value.Kind != LitNumber {
			return nil, fmt.Errorf("%w: field %q is int", types.ErrLiteralMismatch, name)
		}
		return e.Value.Num, nil
	case FieldTypeBool:
		if e.Op != CmpEq && e.Op != CmpNeq {
			return nil, fmt.Errorf("%w: %s on bool field %q", types.ErrOperatorMismatch, e.Op, name)
		}
		if e.Value.Kind != LitBool {
			return nil, fmt.Errorf("%w: field %q is bool", types.ErrLiteralMismatch, name)
		}
		return e.Value.Bool, nil
	default:
		return nil, fmt.Errorf("%w: field %q", types.ErrUnknownField, name)
	}
}

// fieldName joins the path segments below the payload root into the dotted
// name used by the field tables.
func fieldName(path FieldPath) string {
	parts := make([]string, 0, len(path)-1)
	for _, seg := range path[1:] {
		parts = append(parts, seg.Name)
	}
	return strings.Join(parts, ".")
}
