package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FLDGStructure distinguishes first and second loss cover
type FLDGStructure string

const (
	FLDGFirstLoss  FLDGStructure = "first_loss"
	FLDGSecondLoss FLDGStructure = "second_loss"
)

// FLDGArrangement is a default guarantee pool provided by an originator
// against a co-lent portfolio
type FLDGArrangement struct {
	ID                 int64           `json:"id"`
	ProgramCode        string          `json:"programCode"`
	PartnerCode        string          `json:"partnerCode"`
	Structure          FLDGStructure   `json:"structure"`
	CoverPercent       decimal.Decimal `json:"coverPercent"`
	AbsoluteCap        decimal.Decimal `json:"absoluteCap"`
	PortfolioAmount    decimal.Decimal `json:"portfolioAmount"`
	FirstLossThreshold decimal.Decimal `json:"firstLossThreshold"` // second loss only
	TriggerDPD         int             `json:"triggerDpd"`
	Utilized           decimal.Decimal `json:"utilized"`
	Recovered          decimal.Decimal `json:"recovered"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// EffectiveLimit is the lower of percentage cover and the absolute cap
func (a *FLDGArrangement) EffectiveLimit() decimal.Decimal {
	pct := a.PortfolioAmount.Mul(a.CoverPercent).Div(decimal.NewFromInt(100)).Round(2)
	if a.AbsoluteCap.IsPositive() && a.AbsoluteCap.LessThan(pct) {
		return a.AbsoluteCap
	}
	return pct
}

// Balance is the cover still available: limit - utilized + recovered
func (a *FLDGArrangement) Balance() decimal.Decimal {
	return a.EffectiveLimit().Sub(a.Utilized).Add(a.Recovered)
}

func (a *FLDGArrangement) Validate() error {
	if a.ProgramCode == "" || a.PartnerCode == "" {
		return E(KindInvalidInput, "fldg arrangement needs program and partner codes")
	}
	if a.CoverPercent.LessThanOrEqual(decimal.Zero) {
		return E(KindInvalidInput, "cover percent must be positive")
	}
	if a.TriggerDPD < 1 {
		return E(KindInvalidInput, "trigger dpd must be at least 1")
	}
	if a.Structure == FLDGSecondLoss && a.FirstLossThreshold.LessThanOrEqual(decimal.Zero) {
		return E(KindInvalidInput, "second loss cover needs a first loss threshold")
	}
	return nil
}

// FLDGClaimReason records what triggered a claim
type FLDGClaimReason string

const (
	ClaimReasonDPD      FLDGClaimReason = "dpd_trigger"
	ClaimReasonNPA      FLDGClaimReason = "npa"
	ClaimReasonWriteOff FLDGClaimReason = "write_off"
)

// FLDGUtilization is one claim drawn against the pool
type FLDGUtilization struct {
	ID            int64           `json:"id"`
	ArrangementID int64           `json:"arrangementId"`
	AccountID     int64           `json:"accountId"`
	ClaimDate     time.Time       `json:"claimDate"`
	Reason        FLDGClaimReason `json:"reason"`
	Claimed       decimal.Decimal `json:"claimed"` // amount requested
	Honored       decimal.Decimal `json:"honored"` // amount the pool could cover
	CreatedAt     time.Time       `json:"createdAt"`
}

// FLDGRecovery is a post-claim recovery routed back through the pool
type FLDGRecovery struct {
	ID            int64           `json:"id"`
	ArrangementID int64           `json:"arrangementId"`
	AccountID     int64           `json:"accountId"`
	RecoveryDate  time.Time       `json:"recoveryDate"`
	Amount        decimal.Decimal `json:"amount"`
	Replenished   decimal.Decimal `json:"replenished"` // portion restoring the pool
	ToLender      decimal.Decimal `json:"toLender"`    // excess passed to the lender
	CreatedAt     time.Time       `json:"createdAt"`
}

// FLDGRepository persists guarantee arrangements, claims and recoveries
type FLDGRepository interface {
	CreateArrangement(ctx context.Context, arr *FLDGArrangement) (*FLDGArrangement, error)
	GetArrangement(ctx context.Context, id int64) (*FLDGArrangement, error)
	GetArrangementByProgram(ctx context.Context, programCode string) (*FLDGArrangement, error)
	UpdateArrangement(ctx context.Context, arr *FLDGArrangement) (*FLDGArrangement, error)
	CreateUtilization(ctx context.Context, u *FLDGUtilization) (*FLDGUtilization, error)
	ListUtilizations(ctx context.Context, arrangementID int64) ([]*FLDGUtilization, error)
	CreateRecovery(ctx context.Context, r *FLDGRecovery) (*FLDGRecovery, error)
	ListRecoveries(ctx context.Context, arrangementID int64) ([]*FLDGRecovery, error)
}
