package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the payment state of one schedule row
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentWaived  InstallmentStatus = "waived"
)

// ScheduleRow is one persisted installment of a repayment schedule
type ScheduleRow struct {
	ID             int64             `json:"id"`
	AccountID      int64             `json:"accountId"`
	Period         int               `json:"period"`
	DueDate        time.Time         `json:"dueDate"`
	OpeningBalance decimal.Decimal   `json:"openingBalance"`
	PrincipalDue   decimal.Decimal   `json:"principalDue"`
	InterestDue    decimal.Decimal   `json:"interestDue"`
	FeeDue         decimal.Decimal   `json:"feeDue"`
	TotalDue       decimal.Decimal   `json:"totalDue"`
	ClosingBalance decimal.Decimal   `json:"closingBalance"`
	PrincipalPaid  decimal.Decimal   `json:"principalPaid"`
	InterestPaid   decimal.Decimal   `json:"interestPaid"`
	FeesPaid       decimal.Decimal   `json:"feesPaid"`
	Status         InstallmentStatus `json:"status"`
	PaidAt         *time.Time        `json:"paidAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// UnpaidPrincipal returns the principal still owed on this row
func (r *ScheduleRow) UnpaidPrincipal() decimal.Decimal {
	return r.PrincipalDue.Sub(r.PrincipalPaid)
}

// UnpaidInterest returns the interest still owed on this row
func (r *ScheduleRow) UnpaidInterest() decimal.Decimal {
	return r.InterestDue.Sub(r.InterestPaid)
}

// UnpaidFees returns the fees still owed on this row
func (r *ScheduleRow) UnpaidFees() decimal.Decimal {
	return r.FeeDue.Sub(r.FeesPaid)
}

// UnpaidTotal returns everything still owed on this row
func (r *ScheduleRow) UnpaidTotal() decimal.Decimal {
	return r.UnpaidPrincipal().Add(r.UnpaidInterest()).Add(r.UnpaidFees())
}

// IsSettled reports whether the row needs no further payment
func (r *ScheduleRow) IsSettled() bool {
	return r.Status == InstallmentPaid || r.Status == InstallmentWaived
}

// HasCollections reports whether anything has been collected against this row
func (r *ScheduleRow) HasCollections() bool {
	return r.PrincipalPaid.IsPositive() || r.InterestPaid.IsPositive() || r.FeesPaid.IsPositive()
}

// RefreshStatus recomputes the row status from its paid amounts
func (r *ScheduleRow) RefreshStatus(now time.Time) {
	if r.Status == InstallmentWaived {
		return
	}
	switch {
	case r.UnpaidTotal().LessThanOrEqual(decimal.Zero):
		r.Status = InstallmentPaid
		if r.PaidAt == nil {
			t := now
			r.PaidAt = &t
		}
	case r.PrincipalPaid.Add(r.InterestPaid).Add(r.FeesPaid).GreaterThan(decimal.Zero):
		r.Status = InstallmentPartial
	default:
		r.Status = InstallmentPending
	}
}

// ScheduleRepository persists repayment schedules
type ScheduleRepository interface {
	ReplaceForAccount(ctx context.Context, accountID int64, rows []*ScheduleRow) error
	ReplaceFromPeriod(ctx context.Context, accountID int64, fromPeriod int, rows []*ScheduleRow) error
	GetByAccount(ctx context.Context, accountID int64) ([]*ScheduleRow, error)
	GetUnpaidByAccount(ctx context.Context, accountID int64) ([]*ScheduleRow, error)
	UpdateRow(ctx context.Context, row *ScheduleRow) error
}
