package handler

import (
	"github.com/google/uuid"

	"github.com/statement-reconciliation/internal/reconciliation/batches"
	"github.com/statement-reconciliation/internal/reconciliation/ledger"
)

// CreateRuleRequest represents a simple (column/operator/value) or formula rule
type CreateRuleRequest struct {
	Formula           string     `json:"formula,omitempty"`
	Column            string     `json:"column,omitempty"`
	Operator          string     `json:"operator,omitempty"`
	Value             string     `json:"value,omitempty"`
	PaymentID         *string    `json:"payment_id,omitempty"`
	CounteragentUUID  *uuid.UUID `json:"counteragent_uuid,omitempty"`
	FinancialCodeUUID *uuid.UUID `json:"financial_code_uuid,omitempty"`
	CurrencyUUID      *uuid.UUID `json:"currency_uuid,omitempty"`
	Priority          int        `json:"priority"`
	SchemaVersion     string     `json:"schema_version,omitempty"`
	ApplyNow          bool       `json:"apply_now,omitempty"`
}

// ValidateFormulaRequest checks a formula without storing it
type ValidateFormulaRequest struct {
	Formula       string `json:"formula" binding:"required"`
	SchemaVersion string `json:"schema_version,omitempty"`
}

// ValidateFormulaResponse reports whether the formula compiled
type ValidateFormulaResponse struct {
	Valid   bool     `json:"valid"`
	Reason  string   `json:"reason,omitempty"`
	Names   []string `json:"names,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ApplyRulesRequest selects rules to run against the stored records
type ApplyRulesRequest struct {
	RuleIDs []int64 `json:"rule_ids" binding:"required,min=1"`
}

// CreateBatchRequest splits one raw record across payments
type CreateBatchRequest struct {
	Partitions []batches.PartitionInput `json:"partitions" binding:"required,min=1"`
}

// ReparseSourceRequest re-derives one raw record
type ReparseSourceRequest struct {
	SourceAccount uuid.UUID `json:"source_account" binding:"required"`
	RawRecordUUID uuid.UUID `json:"raw_record_uuid" binding:"required"`
}

// BackparseRequest re-derives every record of one account, or all accounts when none is given
type BackparseRequest struct {
	SourceAccount *uuid.UUID `json:"source_account,omitempty"`
	Clear         bool       `json:"clear,omitempty"`
}

// ImportObjectRequest imports a statement already archived in object storage
type ImportObjectRequest struct {
	ObjectURI string `json:"object_uri" binding:"required"`
}

// BulkLedgerRequest posts accrual and order entries
type BulkLedgerRequest struct {
	Entries []ledger.EntryInput `json:"entries" binding:"required,min=1"`
}

// JobAcceptedResponse is returned for every request handed to the job processor
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// UnboundParams filters the unbound raw record listing
type UnboundParams struct {
	SourceAccount string `form:"source_account" binding:"omitempty,uuid"`
	PaginationParams
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=50" binding:"min=1,max=500"`
}
