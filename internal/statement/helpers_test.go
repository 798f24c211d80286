package statement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20240131", "2024-01-31"},
		{"2024-01-31", "2024-01-31"},
		{"2024-01-31 23:59:59", "2024-01-31"},
		{" 2024-01-31   08:00:00 ", "2024-01-31"},
		{"31.01.2024", "2024-01-31"},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		require.NotNil(t, got, tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"))
		assert.Equal(t, time.UTC, got.Location())
	}

	for _, bad := range []string{"", "2024-13-01", "yesterday", "20241301"} {
		assert.Nil(t, ParseDate(bad), bad)
	}
}

func TestGenerateRecordKey(t *testing.T) {
	a := GenerateRecordKey("1001", "77")
	assert.Equal(t, a, GenerateRecordKey(" 1001 ", "77"))
	assert.NotEqual(t, a, GenerateRecordKey("1001", "78"))
	assert.NotEqual(t, a, GenerateRecordKey("10017", "7"), "separator keeps fields apart")
	assert.Equal(t, uuid.Version(5), a.Version())
}

func TestExtractPaymentID(t *testing.T) {
	tests := []struct {
		text string
		want *string
	}{
		{"Payment ID: 123", ptr("123")},
		{"invoice #98765 and ref 1234567", ptr("98765")},
		{"per contract N 4412", nil},
		{"contract: 4412", ptr("4412")},
		{"transfer 20240531 salary", ptr("20240531")},
		{"ID:555 rent", ptr("555")},
		{"short 12345 number", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPaymentID(tt.text))
		})
	}
}

func ptr(s string) *string { return &s }

func TestNormalizeAccount(t *testing.T) {
	assert.Equal(t, AccountRef{Number: "GE29BG0000000123456789", Currency: "GEL"}, NormalizeAccount(" ge29 bg00 0000 0123 4567 89gel "))
	assert.Equal(t, AccountRef{Number: "GE29BG0000000123456789"}, NormalizeAccount("GE29BG0000000123456789"))
	assert.Equal(t, AccountRef{Number: "40702810"}, NormalizeAccount("4070-2810"))
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, accountNumber, currency string) (*rawrecord.SourceAccount, error) {
	args := m.Called(ctx, accountNumber, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rawrecord.SourceAccount), args.Error(1)
}

func TestIdentifyAccount(t *testing.T) {
	ctx := context.Background()
	acc := &rawrecord.SourceAccount{UUID: uuid.New(), AccountNumber: "GE29BG0000000123456789", Currency: "GEL"}

	t.Run("incoming uses beneficiary account", func(t *testing.T) {
		resolver := &MockResolver{}
		resolver.On("Resolve", ctx, "GE29BG0000000123456789", "GEL").Return(acc, nil)
		records := []*DetailRecord{{
			Debit:       decimal.Zero,
			Beneficiary: rawrecord.Party{Account: "GE29BG0000000123456789GEL"},
			Sender:      rawrecord.Party{Account: "GE11TB0000000000000001USD"},
		}}

		got, err := IdentifyAccount(ctx, records, resolver)
		require.NoError(t, err)
		assert.Equal(t, acc, got)
		resolver.AssertExpectations(t)
	})

	t.Run("outgoing uses sender account and statement currency", func(t *testing.T) {
		resolver := &MockResolver{}
		resolver.On("Resolve", ctx, "GE29BG0000000123456789", "USD").Return(nil, shared.AccountNotFoundError{AccountNumber: "GE29BG0000000123456789", Currency: "USD"})
		records := []*DetailRecord{{
			Debit:    decimal.NewFromInt(5),
			Currency: "usd",
			Sender:   rawrecord.Party{Account: "GE29BG0000000123456789"},
		}}

		_, err := IdentifyAccount(ctx, records, resolver)
		assert.True(t, errors.Is(err, shared.AccountNotFoundError{}))
	})

	t.Run("empty statement", func(t *testing.T) {
		_, err := IdentifyAccount(ctx, nil, &MockResolver{})
		assert.True(t, errors.Is(err, shared.MalformedInputError{}))
	})

	t.Run("no own account", func(t *testing.T) {
		_, err := IdentifyAccount(ctx, []*DetailRecord{{}}, &MockResolver{})
		assert.True(t, errors.Is(err, shared.AccountNotFoundError{}))
	})
}
