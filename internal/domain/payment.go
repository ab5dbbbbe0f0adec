package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/fincore"
)

// Payment is a collection received against a loan account
type Payment struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	ExternalRef string          `json:"externalRef"`
	Amount      decimal.Decimal `json:"amount"`
	Channel     string          `json:"channel"`
	ValueDate   time.Time       `json:"valueDate"`
	Unallocated decimal.Decimal `json:"unallocated"`
	ReceivedAt  time.Time       `json:"receivedAt"`

	Allocations []*PaymentAllocation `json:"allocations,omitempty"`
}

func (p *Payment) Validate() error {
	if p.AccountID == 0 {
		return E(KindInvalidInput, "payment needs an account")
	}
	if p.ExternalRef == "" {
		return E(KindInvalidInput, "payment needs an external reference")
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return E(KindInvalidInput, "payment amount must be positive")
	}
	if p.ValueDate.IsZero() {
		return E(KindInvalidInput, "payment needs a value date")
	}
	return nil
}

// PaymentAllocation records how much of a payment went to one component of
// one installment
type PaymentAllocation struct {
	ID        int64             `json:"id"`
	PaymentID int64             `json:"paymentId"`
	RowID     int64             `json:"rowId"`
	Period    int               `json:"period"`
	Component fincore.Component `json:"component"`
	Amount    decimal.Decimal   `json:"amount"`
}

// PaymentRepository persists payments and their allocations
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByExternalRef(ctx context.Context, accountID int64, externalRef string) (*Payment, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*Payment, error)
}
