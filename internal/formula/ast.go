// Package formula validates, compiles and evaluates rule formulas: a restricted, Excel-like
// boolean expression language over raw-record columns. Compiled formulas are expression trees
// that are interpreted directly and stored as JSON.
package formula

import (
	"sort"
	"strings"
)

// NodeKind tags the variant of an expression tree node
type NodeKind string

const (
	NodeLiteral NodeKind = "literal"
	NodeColumn  NodeKind = "column"
	NodeCall    NodeKind = "call"
	NodeAnd     NodeKind = "and"
	NodeOr      NodeKind = "or"
	NodeNot     NodeKind = "not"
	NodeCompare NodeKind = "compare"
)

// LiteralType is the type of a literal node's value
type LiteralType string

const (
	LitString LiteralType = "string"
	LitNumber LiteralType = "number"
	LitBool   LiteralType = "bool"
	LitNull   LiteralType = "null"
)

// Node is one expression tree node. Name holds the column, function or comparison operator;
// Value holds a literal's text.
type Node struct {
	Kind  NodeKind    `json:"kind"`
	Type  LiteralType `json:"type,omitempty"`
	Name  string      `json:"name,omitempty"`
	Value string      `json:"value,omitempty"`
	Args  []*Node     `json:"args,omitempty"`
}

func literal(t LiteralType, value string) *Node {
	return &Node{Kind: NodeLiteral, Type: t, Value: value}
}

func column(name string) *Node {
	return &Node{Kind: NodeColumn, Name: strings.ToLower(name)}
}

func call(name string, args ...*Node) *Node {
	return &Node{Kind: NodeCall, Name: strings.ToUpper(name), Args: args}
}

func compare(op string, left, right *Node) *Node {
	return &Node{Kind: NodeCompare, Name: op, Args: []*Node{left, right}}
}

// columns collects the distinct column names referenced under n
func (n *Node) columns(seen map[string]struct{}) {
	if n == nil {
		return
	}
	if n.Kind == NodeColumn {
		seen[n.Name] = struct{}{}
	}
	for _, a := range n.Args {
		a.columns(seen)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
