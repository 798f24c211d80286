package statement

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/shared"
	"gopkg.in/xmlpath.v2"
)

// Detail attribute names as exported by the bank
const (
	AttrDocKey          = "DocKey"
	AttrEntriesID       = "EntriesId"
	AttrDocValueDate    = "DocValueDate"
	AttrEntryDbAmt      = "EntryDbAmt"
	AttrEntryCrAmt      = "EntryCrAmt"
	AttrDocCurrency     = "DocCurrency"
	AttrDocSenderName   = "DocSenderName"
	AttrDocSenderInn    = "DocSenderInn"
	AttrDocSenderAcctNo = "DocSenderAcctNo"
	AttrDocBenefName    = "DocBenefName"
	AttrDocBenefInn     = "DocBenefInn"
	AttrDocBenefAcctNo  = "DocBenefAcctNo"
	AttrDocCorAcct      = "DocCorAcct"
	AttrDocInformation  = "DocInformation"
	AttrDocNomination   = "DocNomination"
)

// optionalAttrs are carried in a record's extra attributes when present
var optionalAttrs = []string{"DocProdGroup", "DocSrcCcy", "DocSrcAmt", "DocRecDate"}

var (
	rootPath   = xmlpath.MustCompile("/STATEMENT")
	detailPath = xmlpath.MustCompile("/STATEMENT//DETAIL")
	attrPaths  = compileAttrPaths()
)

func compileAttrPaths() map[string]*xmlpath.Path {
	names := []string{
		AttrDocKey, AttrEntriesID, AttrDocValueDate, AttrEntryDbAmt, AttrEntryCrAmt, AttrDocCurrency,
		AttrDocSenderName, AttrDocSenderInn, AttrDocSenderAcctNo,
		AttrDocBenefName, AttrDocBenefInn, AttrDocBenefAcctNo,
		AttrDocCorAcct, AttrDocInformation, AttrDocNomination,
	}
	names = append(names, optionalAttrs...)
	paths := make(map[string]*xmlpath.Path, len(names))
	for _, name := range names {
		paths[name] = xmlpath.MustCompile("@" + name)
	}
	return paths
}

// DetailRecord is one parsed DETAIL element plus its derived fields
type DetailRecord struct {
	Key                  uuid.UUID
	DocKey               string
	EntriesID            string
	RawValueDate         string
	ValueDate            *time.Time
	Debit                decimal.Decimal
	Credit               decimal.Decimal
	Currency             string
	Sender               rawrecord.Party
	Beneficiary          rawrecord.Party
	Counterparty         rawrecord.Party
	CorrespondentAccount string
	Information          string
	Nomination           string
	PaymentID            *string
	Extra                map[string]string
}

// Direction of the line, from the debit amount
func (d *DetailRecord) Direction() rawrecord.Direction {
	return rawrecord.DirectionOf(d.Debit)
}

// DisplayDate renders the value date in canonical form, or nil when it did not parse
func (d *DetailRecord) DisplayDate() *string {
	if d.ValueDate == nil {
		return nil
	}
	s := d.ValueDate.Format(rawrecord.DisplayDateLayout)
	return &s
}

// ToRawRecord maps the line onto the raw record of a registered account. Assignment fields start empty.
func (d *DetailRecord) ToRawRecord(account *rawrecord.SourceAccount, fileName string) *rawrecord.RawRecord {
	now := time.Now()
	currency := d.Currency
	if currency == "" {
		currency = account.Currency
	}
	return &rawrecord.RawRecord{
		UUID:              d.Key,
		SourceAccountUUID: account.UUID,
		SchemaVersion:     account.SchemaVersion,
		DocKey:            d.DocKey,
		EntriesID:         d.EntriesID,
		TransactionDate:   d.ValueDate,
		Debit:             d.Debit,
		Credit:            d.Credit,
		Currency:          currency,
		Sender:            d.Sender,
		Beneficiary:       d.Beneficiary,
		CorrespondentAcct: d.CorrespondentAccount,
		Memo:              d.Information,
		Nomination:        d.Nomination,
		Extra:             d.Extra,
		ImportFile:        fileName,
		ImportedAt:        now,
		UpdatedAt:         now,
	}
}

// ParseBytes parses a statement export held in memory
func ParseBytes(content []byte) ([]*DetailRecord, error) {
	return Parse(bytes.NewReader(content))
}

// Parse reads a statement export. Any structural problem fails the whole file with MalformedInputError.
func Parse(r io.Reader) ([]*DetailRecord, error) {
	root, err := xmlpath.Parse(r)
	if err != nil {
		return nil, shared.MalformedInputError{Reason: fmt.Sprintf("invalid XML: %v", err)}
	}
	if !rootPath.Exists(root) {
		return nil, shared.MalformedInputError{Reason: "missing STATEMENT root element"}
	}

	var records []*DetailRecord
	iter := detailPath.Iter(root)
	for iter.Next() {
		rec, err := parseDetail(iter.Node(), len(records)+1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, shared.MalformedInputError{Reason: "no DETAIL elements"}
	}
	return records, nil
}

func parseDetail(node *xmlpath.Node, position int) (*DetailRecord, error) {
	attr := func(name string) string {
		v, _ := attrPaths[name].String(node)
		return strings.TrimSpace(v)
	}

	docKey, entriesID := attr(AttrDocKey), attr(AttrEntriesID)
	if docKey == "" || entriesID == "" {
		return nil, shared.MalformedInputError{Reason: fmt.Sprintf("detail %d: %s and %s are required", position, AttrDocKey, AttrEntriesID)}
	}

	debit, err := parseAmount(attr(AttrEntryDbAmt))
	if err != nil {
		return nil, shared.MalformedInputError{Reason: fmt.Sprintf("detail %d: %s: %v", position, AttrEntryDbAmt, err)}
	}
	credit, err := parseAmount(attr(AttrEntryCrAmt))
	if err != nil {
		return nil, shared.MalformedInputError{Reason: fmt.Sprintf("detail %d: %s: %v", position, AttrEntryCrAmt, err)}
	}

	rec := &DetailRecord{
		Key:          GenerateRecordKey(docKey, entriesID),
		DocKey:       docKey,
		EntriesID:    entriesID,
		RawValueDate: attr(AttrDocValueDate),
		Debit:        debit,
		Credit:       credit,
		Currency:     strings.ToUpper(attr(AttrDocCurrency)),
		Sender: rawrecord.Party{
			Name:    attr(AttrDocSenderName),
			INN:     attr(AttrDocSenderInn),
			Account: attr(AttrDocSenderAcctNo),
		},
		Beneficiary: rawrecord.Party{
			Name:    attr(AttrDocBenefName),
			INN:     attr(AttrDocBenefInn),
			Account: attr(AttrDocBenefAcctNo),
		},
		CorrespondentAccount: attr(AttrDocCorAcct),
		Information:          attr(AttrDocInformation),
		Nomination:           attr(AttrDocNomination),
	}
	rec.ValueDate = ParseDate(rec.RawValueDate)
	rec.Counterparty = rawrecord.ResolveCounterparty(rec.Debit, rec.Sender, rec.Beneficiary)
	rec.PaymentID = ExtractPaymentID(rec.Information)

	for _, name := range optionalAttrs {
		if v := attr(name); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[strings.ToLower(name)] = v
		}
	}
	return rec, nil
}

// parseAmount accepts empty (zero), "1234.56", "1 234,56" and "1,234.56"
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, nil
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}
