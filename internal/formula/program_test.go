package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgram_Matches(t *testing.T) {
	values := map[string]any{
		"docinformation": "Monthly SALARY payment",
		"docsenderinn":   "123456789",
		"docsendername":  "ACME LLC",
		"entrydbamt":     decimal.Zero,
		"entrycramt":     decimal.RequireFromString("1500.00"),
		"docnomination":  nil,
	}

	tests := []struct {
		name     string
		formula  string
		expected bool
	}{
		{"search is case-insensitive", `SEARCH("salary", docinformation)`, true},
		{"search miss", `SEARCH("rent", docinformation)`, false},
		{"exact is case-sensitive", `EXACT(docsendername, "acme llc")`, false},
		{"equals ignores case", `docsendername = "acme llc"`, true},
		{"numeric comparison", `entrycramt >= 1500`, true},
		{"numeric comparison against text number", `docsenderinn > 100000000`, true},
		{"not equals", `docsenderinn != "123456789"`, false},
		{"infix and with not", `entrycramt > 0 AND NOT entrydbamt > 0`, true},
		{"or function", `OR(SEARCH("rent", docinformation), LEN(docsenderinn) = 9)`, true},
		{"left", `LEFT(docsenderinn, 3) = "123"`, true},
		{"right default count", `RIGHT(docsenderinn) = "9"`, true},
		{"upper", `UPPER(docinformation) = "MONTHLY SALARY PAYMENT"`, true},
		{"isblank on null", `ISBLANK(docnomination)`, true},
		{"isempty on missing column", `ISEMPTY(docbenefinn)`, true},
		{"boolean literal", `TRUE`, true},
		{"error evaluates to false", `LEFT(docsenderinn, -1) = "x"`, false},
		{"non boolean result is false", `docsendername`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.formula)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, prog.Matches(values))
		})
	}
}

func TestProgram_SalaryScenario(t *testing.T) {
	prog, err := Compile(`SEARCH("SALARY", docinformation)`)
	require.NoError(t, err)

	memos := []string{"salary march", "RENT", "Salary bonus", "utilities", "advance SALARY"}
	matched := 0
	for _, memo := range memos {
		if prog.Matches(map[string]any{"docinformation": memo}) {
			matched++
		}
	}
	assert.Equal(t, 3, matched)
}

func TestProgram_EncodeDecode(t *testing.T) {
	prog, err := Compile(`AND(SEARCH("SALARY", DocInformation), entrycramt > 10)`)
	require.NoError(t, err)

	data, err := prog.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, prog.Root(), decoded.Root())
	assert.Equal(t, []string{"docinformation", "entrycramt"}, decoded.Columns())
	assert.True(t, decoded.Matches(map[string]any{
		"docinformation": "salary",
		"entrycramt":     decimal.NewFromInt(11),
	}))
}

func TestDecode_RejectsUnknownTree(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad json", `{"kind":`},
		{"unknown kind", `{"kind":"eval"}`},
		{"unknown function", `{"kind":"call","name":"SYSTEM","args":[{"kind":"literal","type":"string","value":"x"}]}`},
		{"compare arity", `{"kind":"compare","name":"=","args":[{"kind":"column","name":"a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestCompileSimple(t *testing.T) {
	values := map[string]any{
		"docsenderinn":   "123456789",
		"docinformation": "Invoice 42 for services",
		"entrycramt":     decimal.RequireFromString("250.00"),
		"docnomination":  "",
	}

	tests := []struct {
		name     string
		column   string
		op       rule.Operator
		value    string
		expected bool
	}{
		{"equals", "docsenderinn", rule.OpEquals, "123456789", true},
		{"not equals", "docsenderinn", rule.OpNotEquals, "123456789", false},
		{"contains", "docinformation", rule.OpContains, "invoice", true},
		{"starts with", "docinformation", rule.OpStartsWith, "INVOICE 42", true},
		{"ends with", "docinformation", rule.OpEndsWith, "services", true},
		{"greater", "entrycramt", rule.OpGreater, "100", true},
		{"less or equal", "entrycramt", rule.OpLessEq, "249.99", false},
		{"is empty", "docnomination", rule.OpIsEmpty, "", true},
		{"is not empty", "docinformation", rule.OpIsNotEmpty, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := CompileSimple(tt.column, tt.op, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, prog.Matches(values))
		})
	}

	t.Run("unknown operator", func(t *testing.T) {
		_, err := CompileSimple("docsenderinn", rule.Operator("like"), "x")
		assert.Error(t, err)
	})
}
