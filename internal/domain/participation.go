package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ParticipantRole distinguishes the originator from funding partners
type ParticipantRole string

const (
	RoleOriginator ParticipantRole = "originator"
	RoleLender     ParticipantRole = "lender"
)

// LoanParticipation is one partner's share in a co-lent account
type LoanParticipation struct {
	ID           int64            `json:"id"`
	AccountID    int64            `json:"accountId"`
	PartnerCode  string           `json:"partnerCode"`
	Role         ParticipantRole  `json:"role"`
	SharePercent decimal.Decimal  `json:"sharePercent"`
	LenderYield  *decimal.Decimal `json:"lenderYield,omitempty"` // annual percent passed to the lender
	CreatedAt    time.Time        `json:"createdAt"`
}

// ValidateParticipations checks that shares cover the account exactly,
// within a one-cent tolerance.
func ValidateParticipations(parts []*LoanParticipation) error {
	if len(parts) == 0 {
		return E(KindInvalidInput, "at least one participation is required")
	}
	total := decimal.Zero
	for _, p := range parts {
		if p.SharePercent.LessThanOrEqual(decimal.Zero) {
			return E(KindInvalidInput, "participation share must be positive")
		}
		total = total.Add(p.SharePercent)
	}
	tolerance := decimal.RequireFromString("0.01")
	if total.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(tolerance) {
		return ErrParticipationInvalid
	}
	return nil
}

// LedgerEntryType classifies partner ledger postings
type LedgerEntryType string

const (
	LedgerDisbursement LedgerEntryType = "disbursement"
	LedgerPrincipal    LedgerEntryType = "principal"
	LedgerInterest     LedgerEntryType = "interest"
	LedgerFees         LedgerEntryType = "fees"
	LedgerServicerFee  LedgerEntryType = "servicer_fee"
	LedgerExcessSpread LedgerEntryType = "excess_spread"
	LedgerFLDGClaim    LedgerEntryType = "fldg_claim"
	LedgerRecovery     LedgerEntryType = "recovery"
)

// PartnerLedgerEntry is one posting on a partner's running ledger
type PartnerLedgerEntry struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	PartnerCode string          `json:"partnerCode"`
	EntryDate   time.Time       `json:"entryDate"`
	Type        LedgerEntryType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ServicerFeeBase selects what the servicer fee accrues on
type ServicerFeeBase string

const (
	FeeBaseTotalOutstanding ServicerFeeBase = "total_outstanding"
	FeeBaseLenderShare      ServicerFeeBase = "lender_share"
)

// ServicerArrangement holds the servicing fee terms for a co-lent account
type ServicerArrangement struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	FeeRatePct  decimal.Decimal `json:"feeRatePct"` // annual percent
	FeeBase     ServicerFeeBase `json:"feeBase"`
	LastAccrued *time.Time      `json:"lastAccrued,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ParticipationRepository persists participations, servicer terms and the
// partner ledger
type ParticipationRepository interface {
	CreateAll(ctx context.Context, parts []*LoanParticipation) error
	GetByAccount(ctx context.Context, accountID int64) ([]*LoanParticipation, error)
	CreateLedgerEntry(ctx context.Context, entry *PartnerLedgerEntry) (*PartnerLedgerEntry, error)
	LatestLedgerBalance(ctx context.Context, accountID int64, partnerCode string) (decimal.Decimal, error)
	ListLedger(ctx context.Context, accountID int64, partnerCode string) ([]*PartnerLedgerEntry, error)
	GetServicerArrangement(ctx context.Context, accountID int64) (*ServicerArrangement, error)
	SaveServicerArrangement(ctx context.Context, arr *ServicerArrangement) (*ServicerArrangement, error)
}
