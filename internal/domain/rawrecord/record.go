package rawrecord

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisplayDateLayout is the canonical display form of a statement date
const DisplayDateLayout = "02.01.2006"

// Direction of a bank movement relative to the statement's own account
type Direction string

const (
	DirectionIncoming Direction = "IN"
	DirectionOutgoing Direction = "OUT"
)

// DirectionOf resolves the direction from the debit amount alone: debit > 0 is outgoing
func DirectionOf(debit decimal.Decimal) Direction {
	if debit.IsPositive() {
		return DirectionOutgoing
	}
	return DirectionIncoming
}

// Party is one side of a statement line as printed by the bank
type Party struct {
	Name    string `json:"name"`
	INN     string `json:"inn"`
	Account string `json:"account"`
}

// ResolveCounterparty picks the other side of the movement: beneficiary for outgoing, sender for incoming.
// Every component deriving a counterparty goes through this function.
func ResolveCounterparty(debit decimal.Decimal, sender, beneficiary Party) Party {
	if DirectionOf(debit) == DirectionOutgoing {
		return beneficiary
	}
	return sender
}

// OwnParty is the statement owner's side of the movement, the mirror of ResolveCounterparty
func OwnParty(debit decimal.Decimal, sender, beneficiary Party) Party {
	if DirectionOf(debit) == DirectionOutgoing {
		return sender
	}
	return beneficiary
}

// RawRecord is one parsed statement line of a registered source account
type RawRecord struct {
	UUID              uuid.UUID         `json:"uuid"`
	SourceAccountUUID uuid.UUID         `json:"source_account_uuid"`
	SchemaVersion     string            `json:"schema_version"`
	DocKey            string            `json:"doc_key"`
	EntriesID         string            `json:"entries_id"`
	TransactionDate   *time.Time        `json:"transaction_date,omitempty"`
	Debit             decimal.Decimal   `json:"debit"`
	Credit            decimal.Decimal   `json:"credit"`
	Currency          string            `json:"currency"`
	Sender            Party             `json:"sender"`
	Beneficiary       Party             `json:"beneficiary"`
	CorrespondentAcct string            `json:"correspondent_account"`
	Memo              string            `json:"memo"`
	Nomination        string            `json:"nomination"`
	Extra             map[string]string `json:"extra,omitempty"`

	CounteragentUUID *uuid.UUID `json:"counteragent_uuid,omitempty"`
	PaymentID        *string    `json:"payment_id,omitempty"`
	ParsingLock      bool       `json:"parsing_lock"`
	IsProcessed      bool       `json:"is_processed"`
	AppliedRuleID    *int64     `json:"applied_rule_id,omitempty"`

	ImportFile string    `json:"import_file"`
	ImportedAt time.Time `json:"imported_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Direction of this record
func (r *RawRecord) Direction() Direction {
	return DirectionOf(r.Debit)
}

// Amount is the signed movement: credit minus debit
func (r *RawRecord) Amount() decimal.Decimal {
	return r.Credit.Sub(r.Debit)
}

// Magnitude is the unsigned movement
func (r *RawRecord) Magnitude() decimal.Decimal {
	return r.Amount().Abs()
}

// Signed applies this record's direction to an unsigned amount
func (r *RawRecord) Signed(amount decimal.Decimal) decimal.Decimal {
	if r.Direction() == DirectionOutgoing {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Counterparty is the direction-resolved other side of this record
func (r *RawRecord) Counterparty() Party {
	return ResolveCounterparty(r.Debit, r.Sender, r.Beneficiary)
}

// IsUnbound reports a record with a counteragent but no payment id that no batch covers
func (r *RawRecord) IsUnbound(coveredByBatch bool) bool {
	return r.CounteragentUUID != nil && r.PaymentID == nil && !coveredByBatch
}

// ClearAutomated nulls the fields automated assignment derives; lock and statement data stay
func (r *RawRecord) ClearAutomated() {
	r.CounteragentUUID = nil
	r.PaymentID = nil
	r.AppliedRuleID = nil
	r.IsProcessed = false
}

// DisplayDate renders the transaction date in canonical form, or nil when unknown
func (r *RawRecord) DisplayDate() *string {
	if r.TransactionDate == nil {
		return nil
	}
	s := r.TransactionDate.Format(DisplayDateLayout)
	return &s
}

// Values exposes the record as a column map for rule evaluation; keys are lower-case column names
func (r *RawRecord) Values() map[string]any {
	cp := r.Counterparty()
	values := map[string]any{
		ColDocKey:              r.DocKey,
		ColEntriesID:           r.EntriesID,
		ColDocValueDate:        nil,
		ColEntryDbAmt:          r.Debit,
		ColEntryCrAmt:          r.Credit,
		ColDocCurrency:         r.Currency,
		ColDocSenderName:       r.Sender.Name,
		ColDocSenderInn:        r.Sender.INN,
		ColDocSenderAcctNo:     r.Sender.Account,
		ColDocBenefName:        r.Beneficiary.Name,
		ColDocBenefInn:         r.Beneficiary.INN,
		ColDocBenefAcctNo:      r.Beneficiary.Account,
		ColDocCorAcct:          r.CorrespondentAcct,
		ColDocInformation:      r.Memo,
		ColDocNomination:       r.Nomination,
		ColAmount:              r.Amount(),
		ColDirection:           string(r.Direction()),
		ColCounteragentInn:     cp.INN,
		ColCounteragentAccount: cp.Account,
		ColCounteragentName:    cp.Name,
	}
	if d := r.DisplayDate(); d != nil {
		values[ColDocValueDate] = *d
	}
	for k, v := range r.Extra {
		key := strings.ToLower(k)
		if _, taken := values[key]; !taken {
			values[key] = v
		}
	}
	return values
}
