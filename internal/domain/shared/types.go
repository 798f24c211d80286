package shared

// JobType identifies an asynchronous reconciliation job
type JobType string

const (
	JobTypeApplyRules     JobType = "APPLY_RULES"
	JobTypeReparsePayment JobType = "REPARSE_PAYMENT"
	JobTypeReparseSource  JobType = "REPARSE_SOURCE"
	JobTypeBackparse      JobType = "BACKPARSE"
	JobTypeImportObject   JobType = "IMPORT_OBJECT"
)

// JobStatus defines job processing states
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// EventType names an assignment change recorded in the outbox
type EventType string

const (
	EventStatementImported EventType = "STATEMENT_IMPORTED"
	EventRuleApplied       EventType = "RULE_APPLIED"
	EventBatchCreated      EventType = "BATCH_CREATED"
	EventBatchDeleted      EventType = "BATCH_DELETED"
	EventRecordLocked      EventType = "RECORD_LOCKED"
	EventRecordUnlocked    EventType = "RECORD_UNLOCKED"
	EventRecordReparsed    EventType = "RECORD_REPARSED"
	EventAssignmentCleared EventType = "ASSIGNMENT_CLEARED"
	EventLedgerPosted      EventType = "LEDGER_POSTED"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
