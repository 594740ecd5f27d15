package rules

import (
	"fmt"
	"strconv"
	"unicode"
)

/*
 * Tokenizer for the condition language.
 *
 * Token set: identifiers, string/number/boolean literals, relational
 * operators (== != < <= > >=), logical connectives (&& || !), parentheses
 * and the field-access dot. Booleans arrive as the identifiers true/false
 * and are resolved by the parser.
 *
 * Strings are double-quoted with \" and \\ escapes. Numbers are decimal
 * with an optional fraction; the parser decides integer vs float by the
 * declared field type.
 */

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokDot
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
)

type token struct {
	kind tokenKind
	text string  // identifier or string literal value
	num  float64 // number literal value
	pos  int     // byte offset in input, for error messages
}

// lex tokenizes a condition string. Any unrecognized byte is a syntax error.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.':
			toks = append(toks, token{kind: tokDot, pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, fmt.Errorf("unexpected '&' at offset %d", i)
			}
			toks = append(toks, token{kind: tokAnd, pos: i})
			i += 2
		case c == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, fmt.Errorf("unexpected '|' at offset %d", i)
			}
			toks = append(toks, token{kind: tokOr, pos: i})
			i += 2
		case c == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, fmt.Errorf("unexpected '=' at offset %d (use '==')", i)
			}
			toks = append(toks, token{kind: tokEq, pos: i})
			i += 2
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokNeq, pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot, pos: i})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokLte, pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLt, pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{kind: tokGte, pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGt, pos: i})
				i++
			}
		case c == '"':
			lit, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: lit, pos: i})
			i = next
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9') {
				i++
			}
			if i < len(input) && input[i] == '.' {
				i++
				for i < len(input) && (input[i] >= '0' && input[i] <= '9') {
					i++
				}
			}
			f, err := strconv.ParseFloat(input[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at offset %d", input[start:i], start)
			}
			toks = append(toks, token{kind: tokNumber, num: f, pos: start})
		case isIdentStart(rune(c)):
			start := i
			for i < len(input) && isIdentPart(rune(input[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

// lexString scans a double-quoted string starting at input[start].
// Returns the unescaped value and the offset past the closing quote.
func lexString(input string, start int) (string, int, error) {
	var out []byte
	i := start + 1
	for i < len(input) {
		switch input[i] {
		case '"':
			return string(out), i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return "", 0, fmt.Errorf("unterminated escape at offset %d", i)
			}
			switch input[i+1] {
			case '"', '\\':
				out = append(out, input[i+1])
			default:
				return "", 0, fmt.Errorf("unsupported escape \\%c at offset %d", input[i+1], i)
			}
			i += 2
		default:
			out = append(out, input[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at offset %d", start)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
