package formula

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/statement-reconciliation/internal/domain/shared"
)

// Program is a compiled formula ready for evaluation
type Program struct {
	root *Node
}

// Compile parses a formula into a Program without checking column names
func Compile(formula string) (*Program, error) {
	src := stripPrefix(formula)
	if src == "" {
		return nil, shared.ValidationError{Reason: shared.ReasonEmptyFormula, Message: "formula is empty"}
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, shared.ValidationError{Reason: shared.ReasonSyntax, Message: err.Error()}
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, shared.ValidationError{Reason: shared.ReasonSyntax, Message: err.Error()}
	}
	return &Program{root: root}, nil
}

// Decode rebuilds a Program from its stored JSON form. The tree is checked for unknown
// node kinds and functions since it comes from storage.
func Decode(data []byte) (*Program, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode compiled formula: %w", err)
	}
	if err := checkTree(&root); err != nil {
		return nil, fmt.Errorf("invalid compiled formula: %w", err)
	}
	return &Program{root: &root}, nil
}

// Root exposes the expression tree
func (p *Program) Root() *Node {
	return p.root
}

// Encode returns the JSON form stored alongside a rule
func (p *Program) Encode() (json.RawMessage, error) {
	data, err := json.Marshal(p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compiled formula: %w", err)
	}
	return data, nil
}

// Columns lists the columns the formula reads
func (p *Program) Columns() []string {
	seen := make(map[string]struct{})
	p.root.columns(seen)
	return sortedKeys(seen)
}

// Eval evaluates the formula against one record's column values
func (p *Program) Eval(values map[string]any) (bool, error) {
	return evalBool(p.root, values)
}

// Matches is Eval with evaluation errors and panics reported as no match
func (p *Program) Matches(values map[string]any) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
		}
	}()
	ok, err := p.Eval(values)
	return err == nil && ok
}

func checkTree(n *Node) error {
	if n == nil {
		return fmt.Errorf("empty node")
	}
	switch n.Kind {
	case NodeLiteral:
		switch n.Type {
		case LitString, LitNumber, LitBool, LitNull:
		default:
			return fmt.Errorf("unknown literal type %q", n.Type)
		}
	case NodeColumn:
		if n.Name == "" {
			return fmt.Errorf("column node without a name")
		}
		n.Name = strings.ToLower(n.Name)
	case NodeCall:
		if !IsFunction(n.Name) {
			return fmt.Errorf("unknown function %q", n.Name)
		}
		n.Name = strings.ToUpper(n.Name)
	case NodeCompare:
		if len(n.Args) != 2 {
			return fmt.Errorf("comparison needs 2 operands")
		}
	case NodeNot:
		if len(n.Args) != 1 {
			return fmt.Errorf("NOT needs 1 operand")
		}
	case NodeAnd, NodeOr:
		if len(n.Args) == 0 {
			return fmt.Errorf("%s needs operands", n.Kind)
		}
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	for _, a := range n.Args {
		if err := checkTree(a); err != nil {
			return err
		}
	}
	return nil
}
