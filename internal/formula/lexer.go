package formula

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokCompare
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of formula"
	}
	return fmt.Sprintf("%q at %d", t.text, t.pos)
}

// isValue reports whether the token can end an operand
func (t token) isValue() bool {
	switch t.kind {
	case tokString, tokNumber, tokIdent, tokRParen:
		return true
	}
	return false
}

// stripPrefix drops surrounding whitespace and an optional leading '='
func stripPrefix(formula string) string {
	s := strings.TrimSpace(formula)
	s = strings.TrimPrefix(s, "=")
	return strings.TrimSpace(s)
}

// tokenize splits a formula into tokens. String literals use doubled quotes as escapes.
func tokenize(src string) ([]token, error) {
	runes := []rune(src)
	var tokens []token

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '"' || r == '\'':
			var b strings.Builder
			start := i
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == r {
					if i+1 < len(runes) && runes[i+1] == r {
						b.WriteRune(r)
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string starting at %d", start)
			}
			tokens = append(tokens, token{kind: tokString, text: b.String(), pos: start})

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) ||
			(r == '-' && i+1 < len(runes) && (unicode.IsDigit(runes[i+1]) || runes[i+1] == '.') &&
				(len(tokens) == 0 || !tokens[len(tokens)-1].isValue())):
			start := i
			i++
			seenDot := r == '.'
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})

		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++

		case r == '=':
			tokens = append(tokens, token{kind: tokCompare, text: "=", pos: i})
			i++
		case r == '<' || r == '>':
			op := string(r)
			if i+1 < len(runes) && (runes[i+1] == '=' || (r == '<' && runes[i+1] == '>')) {
				op += string(runes[i+1])
			}
			tokens = append(tokens, token{kind: tokCompare, text: op, pos: i})
			i += len(op)
		case r == '!' && i+1 < len(runes) && runes[i+1] == '=':
			tokens = append(tokens, token{kind: tokCompare, text: "<>", pos: i})
			i += 2

		default:
			return nil, fmt.Errorf("unexpected character %q at %d", r, i)
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}
