package shared

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a statement file that cannot be parsed; nothing from it is persisted
type MalformedInputError struct {
	Source string
	Reason string
}

func (e MalformedInputError) Error() string {
	if e.Source == "" {
		return "malformed input: " + e.Reason
	}
	return fmt.Sprintf("malformed input %s: %s", e.Source, e.Reason)
}

// Is matches any MalformedInputError when the target carries no reason
func (e MalformedInputError) Is(target error) bool {
	t, ok := target.(MalformedInputError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// AccountNotFoundError indicates a statement account missing from the bank-account registry
type AccountNotFoundError struct {
	AccountNumber string
	Currency      string
}

func (e AccountNotFoundError) Error() string {
	if e.Currency == "" {
		return "bank account not registered: " + e.AccountNumber
	}
	return fmt.Sprintf("bank account not registered: %s (%s)", e.AccountNumber, e.Currency)
}

// Is implements the errors.Is interface for AccountNotFoundError
func (e AccountNotFoundError) Is(target error) bool {
	t, ok := target.(AccountNotFoundError)
	if !ok {
		return false
	}
	if t.AccountNumber == "" {
		return true
	}
	return e.AccountNumber == t.AccountNumber
}

// ValidationReason distinguishes why a formula or rule was rejected
type ValidationReason string

const (
	ReasonEmptyFormula       ValidationReason = "EMPTY_FORMULA"
	ReasonUnbalancedParens   ValidationReason = "UNBALANCED_PARENTHESES"
	ReasonUnbalancedQuotes   ValidationReason = "UNBALANCED_QUOTES"
	ReasonUnknownFunction    ValidationReason = "UNKNOWN_FUNCTION"
	ReasonUnknownColumn      ValidationReason = "UNKNOWN_COLUMN"
	ReasonSyntax             ValidationReason = "SYNTAX_ERROR"
	ReasonInvalidTarget      ValidationReason = "INVALID_TARGET"
	ReasonInvalidOperator    ValidationReason = "INVALID_OPERATOR"
	ReasonInvalidPartition   ValidationReason = "INVALID_PARTITION"
	ReasonInvalidLedgerEntry ValidationReason = "INVALID_LEDGER_ENTRY"
)

// ValidationError rejects bad input before it is compiled or written
type ValidationError struct {
	Reason  ValidationReason
	Names   []string
	Message string
}

func (e ValidationError) Error() string {
	msg := "validation failed: " + string(e.Reason)
	if len(e.Names) > 0 {
		msg += " [" + strings.Join(e.Names, ", ") + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is matches on reason; an empty target reason matches any ValidationError
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// PreconditionError reports an item skipped because its state forbids the operation
type PreconditionError struct {
	Subject string
	Reason  string
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Subject, e.Reason)
}

// Is implements the errors.Is interface for PreconditionError
func (e PreconditionError) Is(target error) bool {
	t, ok := target.(PreconditionError)
	if !ok {
		return false
	}
	return t.Subject == "" || t.Subject == e.Subject
}

// AggregationInvariantError blocks a multi-row write whose totals would break an invariant
type AggregationInvariantError struct {
	Subject string
	Reason  string
}

func (e AggregationInvariantError) Error() string {
	return fmt.Sprintf("aggregation invariant violated for %s: %s", e.Subject, e.Reason)
}

// Is implements the errors.Is interface for AggregationInvariantError
func (e AggregationInvariantError) Is(target error) bool {
	t, ok := target.(AggregationInvariantError)
	if !ok {
		return false
	}
	return t.Subject == "" || t.Subject == e.Subject
}
