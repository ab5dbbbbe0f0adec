package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Delinquency buckets in ascending severity. SMA boundaries are configurable;
// these are the default labels.
const (
	BucketCurrent     = "current"
	BucketSMA0        = "sma_0"
	BucketSMA1        = "sma_1"
	BucketSMA2        = "sma_2"
	BucketSubstandard = "substandard"
	BucketDoubtful    = "doubtful"
	BucketLoss        = "loss"
)

// NPA categories derived from days past due
const (
	NPACategorySubstandard = "substandard"
	NPACategoryDoubtful    = "doubtful"
	NPACategoryLoss        = "loss"
)

// DelinquencySnapshot is the daily delinquency position of an account
type DelinquencySnapshot struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"accountId"`
	AsOf             time.Time       `json:"asOf"`
	DPD              int             `json:"dpd"`
	Bucket           string          `json:"bucket"`
	NPA              bool            `json:"npa"`
	NPACategory      string          `json:"npaCategory,omitempty"`
	OverduePrincipal decimal.Decimal `json:"overduePrincipal"`
	OverdueInterest  decimal.Decimal `json:"overdueInterest"`
	OverdueFees      decimal.Decimal `json:"overdueFees"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// TotalOverdue is the sum of overdue components
func (s *DelinquencySnapshot) TotalOverdue() decimal.Decimal {
	return s.OverduePrincipal.Add(s.OverdueInterest).Add(s.OverdueFees)
}

// BucketDistribution is an aggregate count and exposure per bucket
type BucketDistribution struct {
	Bucket      string          `json:"bucket"`
	Accounts    int             `json:"accounts"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// DelinquencyRepository persists delinquency snapshots
type DelinquencyRepository interface {
	Create(ctx context.Context, snapshot *DelinquencySnapshot) (*DelinquencySnapshot, error)
	GetLatest(ctx context.Context, accountID int64) (*DelinquencySnapshot, error)
	ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*DelinquencySnapshot, error)
	BucketDistributionOn(ctx context.Context, asOf time.Time) ([]*BucketDistribution, error)
}
