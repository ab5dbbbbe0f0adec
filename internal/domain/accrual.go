package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccrualStatus is the posting state of a daily accrual
type AccrualStatus string

const (
	AccrualAccrued  AccrualStatus = "accrued"
	AccrualPosted   AccrualStatus = "posted"
	AccrualReversed AccrualStatus = "reversed"
)

// InterestAccrual is one day's interest on a loan account
type InterestAccrual struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	AccrualDate time.Time       `json:"accrualDate"`
	Base        decimal.Decimal `json:"base"` // outstanding principal the day accrued on
	Rate        decimal.Decimal `json:"rate"` // annual percent in effect
	Amount      decimal.Decimal `json:"amount"`
	Cumulative  decimal.Decimal `json:"cumulative"`
	Status      AccrualStatus   `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// AccrualRepository persists daily interest accruals
type AccrualRepository interface {
	Create(ctx context.Context, accrual *InterestAccrual) (*InterestAccrual, error)
	GetByAccountAndDate(ctx context.Context, accountID int64, date time.Time) (*InterestAccrual, error)
	GetLatest(ctx context.Context, accountID int64) (*InterestAccrual, error)
	ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*InterestAccrual, error)
	MarkPosted(ctx context.Context, accountID int64, through time.Time) (int64, error)
}

// BenchmarkRate is one published benchmark fixing
type BenchmarkRate struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	Rate          decimal.Decimal `json:"rate"` // annual percent
	CreatedAt     time.Time       `json:"createdAt"`
}

// RateReset records a repricing applied to a floating rate account
type RateReset struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	ResetDate time.Time       `json:"resetDate"`
	OldRate   decimal.Decimal `json:"oldRate"`
	NewRate   decimal.Decimal `json:"newRate"`
	Benchmark decimal.Decimal `json:"benchmark"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BenchmarkRepository persists benchmark fixings and rate resets
type BenchmarkRepository interface {
	Upsert(ctx context.Context, rate *BenchmarkRate) (*BenchmarkRate, error)
	// ResolveOn returns the fixing effective on the date, falling back to the
	// latest strictly earlier publication. ErrBenchmarkUnavailable when none.
	ResolveOn(ctx context.Context, code string, date time.Time) (*BenchmarkRate, error)
	RecordReset(ctx context.Context, reset *RateReset) (*RateReset, error)
	ListResets(ctx context.Context, accountID int64) ([]*RateReset, error)
}
