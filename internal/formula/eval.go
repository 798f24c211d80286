package formula

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// evaluation values are nil, string, bool or decimal.Decimal

func eval(n *Node, values map[string]any) (any, error) {
	switch n.Kind {
	case NodeLiteral:
		return evalLiteral(n)

	case NodeColumn:
		return normalize(values[n.Name])

	case NodeAnd:
		for _, arg := range n.Args {
			ok, err := evalBool(arg, values)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case NodeOr:
		for _, arg := range n.Args {
			ok, err := evalBool(arg, values)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case NodeNot:
		if len(n.Args) != 1 {
			return nil, fmt.Errorf("NOT takes 1 argument, got %d", len(n.Args))
		}
		ok, err := evalBool(n.Args[0], values)
		if err != nil {
			return nil, err
		}
		return !ok, nil

	case NodeCompare:
		if len(n.Args) != 2 {
			return nil, fmt.Errorf("comparison takes 2 operands, got %d", len(n.Args))
		}
		left, err := eval(n.Args[0], values)
		if err != nil {
			return nil, err
		}
		right, err := eval(n.Args[1], values)
		if err != nil {
			return nil, err
		}
		return compareValues(n.Name, left, right)

	case NodeCall:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, values)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return callFunction(n.Name, args)
	}

	return nil, fmt.Errorf("unknown node kind %q", n.Kind)
}

func evalLiteral(n *Node) (any, error) {
	switch n.Type {
	case LitString:
		return n.Value, nil
	case LitNumber:
		d, err := decimal.NewFromString(n.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", n.Value)
		}
		return d, nil
	case LitBool:
		return n.Value == "true", nil
	case LitNull:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown literal type %q", n.Type)
}

func evalBool(n *Node, values map[string]any) (bool, error) {
	v, err := eval(n, values)
	if err != nil {
		return false, err
	}
	return truthy(v)
}

// normalize maps column values of arbitrary shape onto evaluation values
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, decimal.Decimal:
		return t, nil
	case *string:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case *decimal.Decimal:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return nil, fmt.Errorf("unsupported column value %T", v)
}

func truthy(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case decimal.Decimal:
		return !t.IsZero(), nil
	case string:
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		return false, fmt.Errorf("text %q is not a boolean", t)
	}
	return false, fmt.Errorf("unsupported value %T", v)
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case decimal.Decimal:
		return t.String()
	}
	return fmt.Sprint(v)
}

func toNumber(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, true
	case decimal.Decimal:
		return t, true
	case bool:
		if t {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}

// compareValues compares numerically when either side is a number and both convert,
// otherwise as case-insensitive text
func compareValues(op string, left, right any) (bool, error) {
	var cmp int
	_, leftNum := left.(decimal.Decimal)
	_, rightNum := right.(decimal.Decimal)
	l, lok := toNumber(left)
	r, rok := toNumber(right)

	if (leftNum || rightNum) && lok && rok {
		cmp = l.Cmp(r)
	} else {
		cmp = strings.Compare(strings.ToLower(toText(left)), strings.ToLower(toText(right)))
	}

	switch op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

func callFunction(name string, args []any) (any, error) {
	bounds, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %s", name)
	}
	if len(args) < bounds.min || (bounds.max >= 0 && len(args) > bounds.max) {
		return nil, fmt.Errorf("%s takes %s, got %d", name, bounds, len(args))
	}

	switch name {
	case "SEARCH":
		return strings.Contains(strings.ToLower(toText(args[1])), strings.ToLower(toText(args[0]))), nil
	case "EXACT":
		return toText(args[0]) == toText(args[1]), nil
	case "LEN":
		return decimal.NewFromInt(int64(utf8.RuneCountInString(toText(args[0])))), nil
	case "LEFT", "RIGHT":
		n, err := countArg(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		runes := []rune(toText(args[0]))
		if n > len(runes) {
			n = len(runes)
		}
		if name == "LEFT" {
			return string(runes[:n]), nil
		}
		return string(runes[len(runes)-n:]), nil
	case "UPPER":
		return strings.ToUpper(toText(args[0])), nil
	case "LOWER":
		return strings.ToLower(toText(args[0])), nil
	case "ISBLANK":
		return args[0] == nil, nil
	case "ISEMPTY":
		return args[0] == nil || strings.TrimSpace(toText(args[0])) == "", nil
	case "AND", "OR", "NOT":
		return nil, fmt.Errorf("%s must be compiled as a connective", name)
	}
	return nil, fmt.Errorf("function %s is not implemented", name)
}

func countArg(args []any) (int, error) {
	if len(args) < 2 {
		return 1, nil
	}
	d, ok := toNumber(args[1])
	if !ok || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("character count must be a non-negative integer, got %q", toText(args[1]))
	}
	return int(d.IntPart()), nil
}
