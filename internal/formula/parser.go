package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type parser struct {
	tokens []token
	pos    int
}

// parse builds an expression tree from tokens; the whole input must be consumed
func parse(tokens []token) (*Node, error) {
	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("empty expression")
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s", tok)
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, word)
}

func (p *parser) expect(kind tokenKind, what string) error {
	tok := p.next()
	if tok.kind != kind {
		return fmt.Errorf("expected %s, got %s", what, tok)
	}
	return nil
}

func (p *parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []*Node{left}
	for p.isKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return &Node{Kind: NodeOr, Args: args}, nil
}

func (p *parser) parseAnd() (*Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	args := []*Node{left}
	for p.isKeyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return left, nil
	}
	return &Node{Kind: NodeAnd, Args: args}, nil
}

func (p *parser) parseNot() (*Node, error) {
	if p.isKeyword("NOT") && p.peekAt(1).kind != tokLParen {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Args: []*Node{operand}}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (*Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCompare {
		return left, nil
	}
	op := p.next().text
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokCompare {
		return nil, fmt.Errorf("chained comparison %s", p.peek())
	}
	return compare(op, left, right), nil
}

func (p *parser) parsePrimary() (*Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return literal(LitString, tok.text), nil

	case tokNumber:
		if _, err := decimal.NewFromString(tok.text); err != nil {
			return nil, fmt.Errorf("invalid number %s", tok)
		}
		return literal(LitNumber, tok.text), nil

	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(tok)
		}
		switch strings.ToUpper(tok.text) {
		case "TRUE":
			return literal(LitBool, "true"), nil
		case "FALSE":
			return literal(LitBool, "false"), nil
		case "NULL":
			return literal(LitNull, ""), nil
		case "AND", "OR", "NOT":
			return nil, fmt.Errorf("misplaced keyword %s", tok)
		}
		return column(tok.text), nil
	}

	return nil, fmt.Errorf("unexpected %s", tok)
}

func (p *parser) parseCall(name token) (*Node, error) {
	fn := strings.ToUpper(name.text)
	bounds, ok := functions[fn]
	if !ok {
		return nil, fmt.Errorf("unknown function %s", name)
	}
	p.next() // (

	var args []*Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	if len(args) < bounds.min || (bounds.max >= 0 && len(args) > bounds.max) {
		return nil, fmt.Errorf("%s takes %s, got %d", fn, bounds, len(args))
	}

	switch fn {
	case "AND":
		return &Node{Kind: NodeAnd, Args: args}, nil
	case "OR":
		return &Node{Kind: NodeOr, Args: args}, nil
	case "NOT":
		return &Node{Kind: NodeNot, Args: args}, nil
	}
	return call(fn, args...), nil
}

func (a arity) String() string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("at least %d arguments", a.min)
	case a.min == a.max:
		return fmt.Sprintf("%d arguments", a.min)
	}
	return fmt.Sprintf("%d to %d arguments", a.min, a.max)
}
