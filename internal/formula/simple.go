package formula

import (
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// CompileSimple builds the Program for a column/operator/value rule. The resulting tree is
// the same shape a hand-written formula would produce.
func CompileSimple(col string, op rule.Operator, value string) (*Program, error) {
	if col == "" {
		return nil, shared.ValidationError{Reason: shared.ReasonUnknownColumn, Message: "column is required"}
	}
	c := column(col)
	text := literal(LitString, value)

	var root *Node
	switch op {
	case rule.OpEquals:
		root = compare("=", c, text)
	case rule.OpNotEquals:
		root = compare("<>", c, text)
	case rule.OpContains:
		root = call("SEARCH", text, c)
	case rule.OpStartsWith:
		root = compare("=", call("LEFT", c, lengthOf(value)), text)
	case rule.OpEndsWith:
		root = compare("=", call("RIGHT", c, lengthOf(value)), text)
	case rule.OpGreater, rule.OpLess, rule.OpGreaterEq, rule.OpLessEq:
		operand := text
		if _, err := decimal.NewFromString(value); err == nil {
			operand = literal(LitNumber, value)
		}
		root = compare(string(op), c, operand)
	case rule.OpIsEmpty:
		root = call("ISEMPTY", c)
	case rule.OpIsNotEmpty:
		root = &Node{Kind: NodeNot, Args: []*Node{call("ISEMPTY", c)}}
	default:
		return nil, shared.ValidationError{Reason: shared.ReasonInvalidOperator, Names: []string{string(op)}}
	}
	return &Program{root: root}, nil
}

func lengthOf(s string) *Node {
	return literal(LitNumber, strconv.Itoa(utf8.RuneCountInString(s)))
}
