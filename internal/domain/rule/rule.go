package rule

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Kind distinguishes column/operator rules from formula rules
type Kind string

const (
	KindSimple  Kind = "SIMPLE"
	KindFormula Kind = "FORMULA"
)

// Operator is the comparison of a simple rule
type Operator string

const (
	OpEquals     Operator = "="
	OpNotEquals  Operator = "!="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
	OpGreaterEq  Operator = ">="
	OpLessEq     Operator = "<="
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
)

// ParseOperator normalizes an operator name; "<>" is accepted for "!="
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	if op == "<>" {
		op = OpNotEquals
	}
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith,
		OpGreater, OpLess, OpGreaterEq, OpLessEq, OpIsEmpty, OpIsNotEmpty:
		return op, true
	}
	return "", false
}

// Target is what a matching rule assigns: one payment id, or a full counteragent/financial-code/currency triple
type Target struct {
	PaymentID         *string    `json:"payment_id,omitempty"`
	CounteragentUUID  *uuid.UUID `json:"counteragent_uuid,omitempty"`
	FinancialCodeUUID *uuid.UUID `json:"financial_code_uuid,omitempty"`
	CurrencyUUID      *uuid.UUID `json:"currency_uuid,omitempty"`
}

// Validate enforces exactly one complete target identity
func (t Target) Validate() error {
	hasPayment := t.PaymentID != nil && strings.TrimSpace(*t.PaymentID) != ""
	set := 0
	for _, id := range []*uuid.UUID{t.CounteragentUUID, t.FinancialCodeUUID, t.CurrencyUUID} {
		if id != nil && *id != uuid.Nil {
			set++
		}
	}

	switch {
	case hasPayment && set == 0:
		return nil
	case !hasPayment && set == 3:
		return nil
	case hasPayment:
		return shared.ValidationError{Reason: shared.ReasonInvalidTarget, Message: "payment id cannot be combined with a counteragent triple"}
	case set == 0:
		return shared.ValidationError{Reason: shared.ReasonInvalidTarget, Message: "a payment id or a counteragent triple is required"}
	default:
		return shared.ValidationError{Reason: shared.ReasonInvalidTarget, Message: "counteragent, financial code and currency must all be set"}
	}
}

// Rule classifies raw records and assigns a target to the matches
type Rule struct {
	ID       int64    `json:"id"`
	Kind     Kind     `json:"kind"`
	Column   string   `json:"column,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Value    string   `json:"value,omitempty"`
	Formula  string   `json:"formula,omitempty"`

	// Compiled holds the JSON-encoded expression tree evaluated at apply time
	Compiled json.RawMessage `json:"-"`

	Target
	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expression is the text form shown in reports for either kind
func (r *Rule) Expression() string {
	if r.Kind == KindFormula {
		return r.Formula
	}
	return strings.TrimSpace(r.Column + " " + string(r.Operator) + " " + r.Value)
}

// Sort orders rules by priority ascending, then most recently created first
func Sort(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.After(rules[j].CreatedAt)
		}
		return rules[i].ID > rules[j].ID
	})
}
