package formula

import "strings"

// arity bounds a function's argument count
type arity struct {
	min, max int
}

// functions is the whitelist of callable names. AND, OR and NOT compile to connective nodes.
var functions = map[string]arity{
	"OR":      {1, -1},
	"AND":     {1, -1},
	"NOT":     {1, 1},
	"SEARCH":  {2, 2},
	"EXACT":   {2, 2},
	"LEN":     {1, 1},
	"LEFT":    {1, 2},
	"RIGHT":   {1, 2},
	"UPPER":   {1, 1},
	"LOWER":   {1, 1},
	"ISBLANK": {1, 1},
	"ISEMPTY": {1, 1},
}

// keywords are reserved bare words; they are never column names
var keywords = map[string]struct{}{
	"AND":   {},
	"OR":    {},
	"NOT":   {},
	"TRUE":  {},
	"FALSE": {},
	"NULL":  {},
}

// IsFunction reports whether name is a whitelisted function, case-insensitively
func IsFunction(name string) bool {
	_, ok := functions[strings.ToUpper(name)]
	return ok
}

// Functions lists the whitelisted function names
func Functions() []string {
	names := make(map[string]struct{}, len(functions))
	for name := range functions {
		names[name] = struct{}{}
	}
	return sortedKeys(names)
}

func isKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}
