package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/fincore"
)

// AccountStatus is the lifecycle state of a loan account
type AccountStatus string

const (
	AccountActive     AccountStatus = "active"
	AccountClosed     AccountStatus = "closed"
	AccountWrittenOff AccountStatus = "written_off"
)

// RateType distinguishes fixed from benchmark-linked pricing
type RateType string

const (
	RateFixed    RateType = "fixed"
	RateFloating RateType = "floating"
)

// ClosureType records how an account reached closed state
type ClosureType string

const (
	ClosureNormal     ClosureType = "normal"
	ClosureSettlement ClosureType = "settlement"
	ClosureForeclosed ClosureType = "foreclosure"
)

// LoanAccount is the central loan record
type LoanAccount struct {
	ID            int64                `json:"id"`
	AccountNumber string               `json:"accountNumber"`
	ProductCode   string               `json:"productCode"`
	BorrowerRef   string               `json:"borrowerRef"`
	Principal     decimal.Decimal      `json:"principal"`
	InterestRate  decimal.Decimal      `json:"interestRate"` // annual percent
	RateType      RateType             `json:"rateType"`
	BenchmarkCode *string              `json:"benchmarkCode,omitempty"`
	Spread        decimal.Decimal      `json:"spread"`
	RateFloor     *decimal.Decimal     `json:"rateFloor,omitempty"`
	RateCap       *decimal.Decimal     `json:"rateCap,omitempty"`
	ScheduleType  fincore.ScheduleType `json:"scheduleType"`
	Frequency     fincore.Frequency    `json:"frequency"`
	TenurePeriods int                  `json:"tenurePeriods"`
	DayCount      fincore.DayCount     `json:"dayCount"`
	Secured       bool                 `json:"secured"`

	DisbursementDate time.Time `json:"disbursementDate"`

	Status               AccountStatus   `json:"status"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	OutstandingInterest  decimal.Decimal `json:"outstandingInterest"`
	OutstandingFees      decimal.Decimal `json:"outstandingFees"`

	DPD          int    `json:"dpd"`
	Bucket       string `json:"bucket"`
	NPA          bool   `json:"npa"`
	NPACategory  string `json:"npaCategory,omitempty"`
	Restructured bool   `json:"restructured"`

	ClosureType *ClosureType `json:"closureType,omitempty"`
	ClosedAt    *time.Time   `json:"closedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *LoanAccount) Validate() error {
	if a.AccountNumber == "" {
		return E(KindInvalidInput, "account number is required")
	}
	if a.Principal.LessThanOrEqual(decimal.Zero) {
		return E(KindInvalidInput, "principal must be positive")
	}
	if a.InterestRate.IsNegative() {
		return E(KindInvalidInput, "interest rate must not be negative")
	}
	if a.TenurePeriods < 1 {
		return E(KindInvalidInput, "tenure must be at least one period")
	}
	if a.Frequency.PeriodsPerYear() == 0 {
		return E(KindInvalidInput, "unknown repayment frequency")
	}
	if a.RateType == RateFloating && (a.BenchmarkCode == nil || *a.BenchmarkCode == "") {
		return E(KindInvalidInput, "floating rate accounts need a benchmark code")
	}
	return nil
}

// IsOpen reports whether the account can take payments and accruals
func (a *LoanAccount) IsOpen() bool {
	return a.Status == AccountActive
}

// TotalOutstanding is the sum of all outstanding components
func (a *LoanAccount) TotalOutstanding() decimal.Decimal {
	return a.OutstandingPrincipal.Add(a.OutstandingInterest).Add(a.OutstandingFees)
}

// LoanAccountRepository persists loan accounts
type LoanAccountRepository interface {
	Create(ctx context.Context, account *LoanAccount) (*LoanAccount, error)
	GetByID(ctx context.Context, id int64) (*LoanAccount, error)
	GetByAccountNumber(ctx context.Context, number string) (*LoanAccount, error)
	Update(ctx context.Context, account *LoanAccount) (*LoanAccount, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
	ListByStatus(ctx context.Context, status AccountStatus) ([]*LoanAccount, error)
}

// TxManager runs a function inside a database transaction. The transaction
// travels in the context so repositories participate transparently.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
