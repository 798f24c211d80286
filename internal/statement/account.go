package statement

import (
	"context"
	"regexp"
	"strings"

	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/shared"
)

var currencySuffix = regexp.MustCompile(`^([A-Z]{2}[0-9]{2}[A-Z0-9]*[0-9])([A-Z]{3})$`)

// AccountRef is a normalized own-account number with the currency it carried, if any
type AccountRef struct {
	Number   string
	Currency string
}

// NormalizeAccount upper-cases, strips separators and splits a trailing currency code
// (GE29BG0000000123456789GEL -> GE29BG0000000123456789, GEL)
func NormalizeAccount(raw string) AccountRef {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '/':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))

	if m := currencySuffix.FindStringSubmatch(cleaned); m != nil {
		return AccountRef{Number: m[1], Currency: m[2]}
	}
	return AccountRef{Number: cleaned}
}

// AccountResolver looks a normalized account up in the bank-account registry
type AccountResolver interface {
	Resolve(ctx context.Context, accountNumber, currency string) (*rawrecord.SourceAccount, error)
}

// IdentifyAccount resolves the statement's own account from its first record.
// The own account is the sender of an outgoing line and the beneficiary of an incoming one.
func IdentifyAccount(ctx context.Context, records []*DetailRecord, resolver AccountResolver) (*rawrecord.SourceAccount, error) {
	if len(records) == 0 {
		return nil, shared.MalformedInputError{Reason: "statement has no detail records"}
	}
	first := records[0]
	own := rawrecord.OwnParty(first.Debit, first.Sender, first.Beneficiary)
	ref := NormalizeAccount(own.Account)
	if ref.Number == "" {
		return nil, shared.AccountNotFoundError{AccountNumber: "(empty)"}
	}
	if ref.Currency == "" {
		ref.Currency = strings.ToUpper(strings.TrimSpace(first.Currency))
	}
	return resolver.Resolve(ctx, ref.Number, ref.Currency)
}
