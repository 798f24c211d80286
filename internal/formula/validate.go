package formula

import (
	"strings"

	"github.com/statement-reconciliation/internal/domain/shared"
)

// Validate checks a formula against the columns of a schema version. Checks run in a fixed
// order and the first failing one is reported: parentheses, quotes, function names, column
// names, then syntax. Unknown functions and columns are all listed in the error.
func Validate(formula string, columns []string) error {
	src := stripPrefix(formula)
	if src == "" {
		return shared.ValidationError{Reason: shared.ReasonEmptyFormula, Message: "formula is empty"}
	}
	if err := checkParentheses(src); err != nil {
		return err
	}
	if err := checkQuotes(src); err != nil {
		return err
	}

	tokens, err := tokenize(src)
	if err != nil {
		return shared.ValidationError{Reason: shared.ReasonSyntax, Message: err.Error()}
	}

	if unknown := unknownFunctions(tokens); len(unknown) > 0 {
		return shared.ValidationError{
			Reason:  shared.ReasonUnknownFunction,
			Names:   unknown,
			Message: "allowed functions are " + strings.Join(Functions(), ", "),
		}
	}
	if unknown := unknownColumns(tokens, columns); len(unknown) > 0 {
		return shared.ValidationError{Reason: shared.ReasonUnknownColumn, Names: unknown}
	}

	if _, err := parse(tokens); err != nil {
		return shared.ValidationError{Reason: shared.ReasonSyntax, Message: err.Error()}
	}
	return nil
}

// checkParentheses ignores parentheses inside string literals
func checkParentheses(src string) error {
	depth := 0
	var quote rune
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return shared.ValidationError{Reason: shared.ReasonUnbalancedParens, Message: "closing parenthesis without a matching opening one"}
			}
		}
	}
	// an unterminated string swallows the rest of the input; the quote check reports it
	if depth != 0 && quote == 0 {
		return shared.ValidationError{Reason: shared.ReasonUnbalancedParens, Message: "unclosed parenthesis"}
	}
	return nil
}

func checkQuotes(src string) error {
	var quote rune
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case quote != 0 && r == quote:
			if i+1 < len(runes) && runes[i+1] == quote {
				i++
				continue
			}
			quote = 0
		}
	}
	if quote != 0 {
		return shared.ValidationError{Reason: shared.ReasonUnbalancedQuotes, Message: "unterminated string literal"}
	}
	return nil
}

func unknownFunctions(tokens []token) []string {
	seen := make(map[string]struct{})
	for i, tok := range tokens {
		if tok.kind != tokIdent || tokens[i+1].kind != tokLParen {
			continue
		}
		if !IsFunction(tok.text) {
			seen[strings.ToUpper(tok.text)] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func unknownColumns(tokens []token, columns []string) []string {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[strings.ToLower(c)] = struct{}{}
	}

	seen := make(map[string]struct{})
	for i, tok := range tokens {
		if tok.kind != tokIdent || tokens[i+1].kind == tokLParen || isKeyword(tok.text) {
			continue
		}
		name := strings.ToLower(tok.text)
		if _, ok := known[name]; !ok {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
