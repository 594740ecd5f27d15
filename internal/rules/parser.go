package rules

import (
	"fmt"
)

/*
 * Recursive-descent parser for the condition language.
 *
 * Grammar (|| binds loosest, comparisons tightest):
 *
 *   or    := and ( '||' and )*
 *   and   := unary ( '&&' unary )*
 *   unary := '!' unary | '(' or ')' | cmp
 *   cmp   := path relop literal
 *   path  := ident ( '.' ident )+
 *
 * Field paths are rooted at `payload`. The segment directly below the root
 * only exists on the variant the rule targets, so the parser qualifies it
 * with the variant name supplied by the caller; deeper segments stay plain.
 * Values are literal only: no cross-field comparisons and no computed
 * expressions.
 */

// PathSegment is one component of a field path. Variant is non-empty for
// access into a tagged-union payload disambiguated by variant name.
type PathSegment struct {
	Variant string
	Name    string
}

// FieldPath is an ordered field access chain rooted at the event.
type FieldPath []PathSegment

// CmpOp enumerates the relational operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
)

// String returns the source form of the operator.
func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNeq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	case CmpGt:
		return ">"
	default:
		return ">="
	}
}

// LiteralKind discriminates the Literal union.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
)

// Literal is a string, number or boolean literal value.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
}

// Expr is a node of the parsed predicate tree.
type Expr interface {
	isExpr()
}

// AndExpr is logical conjunction.
type AndExpr struct {
	L, R Expr
}

// OrExpr is logical disjunction.
type OrExpr struct {
	L, R Expr
}

// NotExpr is logical negation.
type NotExpr struct {
	X Expr
}

// CmpExpr is a relational comparison of a field against a literal.
type CmpExpr struct {
	Field FieldPath
	Op    CmpOp
	Value Literal
}

func (AndExpr) isExpr() {}
func (OrExpr) isExpr()  {}
func (NotExpr) isExpr() {}
func (CmpExpr) isExpr() {}

// ParseCondition parses a condition string, qualifying payload-variant field
// access with the given variant name. Syntax errors carry the byte offset.
func ParseCondition(variant, condition string) (Expr, error) {
	toks, err := lex(condition)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, variant: variant}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.peek().pos)
	}
	return expr, nil
}

type parser struct {
	toks    []token
	pos     int
	variant string
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = OrExpr{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = AndExpr{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case tokNot:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NotExpr{X: x}, nil
	case tokLParen:
		p.next()
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", p.peek().pos)
		}
		p.next()
		return x, nil
	default:
		return p.parseCmp()
	}
}

func (p *parser) parseCmp() (Expr, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	var op CmpOp
	switch t := p.next(); t.kind {
	case tokEq:
		op = CmpEq
	case tokNeq:
		op = CmpNeq
	case tokLt:
		op = CmpLt
	case tokLte:
		op = CmpLte
	case tokGt:
		op = CmpGt
	case tokGte:
		op = CmpGte
	default:
		return nil, fmt.Errorf("expected comparison operator at offset %d", t.pos)
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return CmpExpr{Field: path, Op: op, Value: lit}, nil
}

// parsePath consumes a dotted field access rooted at `payload` and qualifies
// the first segment below the root with the target variant.
func (p *parser) parsePath() (FieldPath, error) {
	t := p.next()
	if t.kind != tokIdent {
		return nil, fmt.Errorf("expected field path at offset %d", t.pos)
	}
	if t.text != "payload" {
		return nil, fmt.Errorf("field path must be rooted at 'payload', got %q at offset %d", t.text, t.pos)
	}

	path := FieldPath{{Name: t.text}}
	for p.peek().kind == tokDot {
		p.next()
		seg := p.next()
		if seg.kind != tokIdent {
			return nil, fmt.Errorf("expected field name at offset %d", seg.pos)
		}
		if len(path) == 1 {
			path = append(path, PathSegment{Variant: p.variant, Name: seg.text})
		} else {
			path = append(path, PathSegment{Name: seg.text})
		}
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("field path %q has no field below the payload root", t.text)
	}
	return path, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	switch t := p.next(); t.kind {
	case tokString:
		return Literal{Kind: LitString, Str: t.text}, nil
	case tokNumber:
		return Literal{Kind: LitNumber, Num: t.num}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return Literal{Kind: LitBool, Bool: true}, nil
		case "false":
			return Literal{Kind: LitBool, Bool: false}, nil
		}
		return Literal{}, fmt.Errorf("expected literal value, got %q at offset %d", t.text, t.pos)
	default:
		return Literal{}, fmt.Errorf("expected literal value at offset %d", t.pos)
	}
}
