package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RestructureType classifies what a restructure changes
type RestructureType string

const (
	RestructureRateReduction   RestructureType = "rate_reduction"
	RestructureTenureExtension RestructureType = "tenure_extension"
	RestructureHaircut         RestructureType = "principal_haircut"
	RestructureEMIReschedule   RestructureType = "emi_rescheduling"
	RestructureCombination     RestructureType = "combination"
)

// RestructureStatus tracks the approval workflow
type RestructureStatus string

const (
	RestructurePending  RestructureStatus = "pending"
	RestructureApproved RestructureStatus = "approved"
	RestructureRejected RestructureStatus = "rejected"
	RestructureApplied  RestructureStatus = "applied"
)

// RestructureRequest is a proposed change of terms awaiting decision
type RestructureRequest struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	Type      RestructureType `json:"type"`

	NewRate          *decimal.Decimal `json:"newRate,omitempty"`
	ExtensionPeriods int              `json:"extensionPeriods,omitempty"`
	HaircutAmount    *decimal.Decimal `json:"haircutAmount,omitempty"`
	NewInstallment   *decimal.Decimal `json:"newInstallment,omitempty"`

	Status      RestructureStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	RequestedAt time.Time         `json:"requestedAt"`
	DecidedAt   *time.Time        `json:"decidedAt,omitempty"`
	AppliedAt   *time.Time        `json:"appliedAt,omitempty"`
}

func (r *RestructureRequest) Validate() error {
	switch r.Type {
	case RestructureRateReduction:
		if r.NewRate == nil {
			return E(KindInvalidInput, "rate reduction needs a new rate")
		}
	case RestructureTenureExtension:
		if r.ExtensionPeriods < 1 {
			return E(KindInvalidInput, "tenure extension needs additional periods")
		}
	case RestructureHaircut:
		if r.HaircutAmount == nil || r.HaircutAmount.LessThanOrEqual(decimal.Zero) {
			return E(KindInvalidInput, "haircut needs a positive amount")
		}
	case RestructureEMIReschedule:
		if r.NewInstallment == nil || r.NewInstallment.LessThanOrEqual(decimal.Zero) {
			return E(KindInvalidInput, "rescheduling needs a positive installment")
		}
	case RestructureCombination:
		if r.NewRate == nil && r.ExtensionPeriods == 0 && r.HaircutAmount == nil {
			return E(KindInvalidInput, "combination restructure changes nothing")
		}
	default:
		return E(KindInvalidInput, "unknown restructure type")
	}
	return nil
}

// RestructureEvent captures the terms before and after an applied restructure
type RestructureEvent struct {
	ID         int64           `json:"id"`
	AccountID  int64           `json:"accountId"`
	RequestID  int64           `json:"requestId"`
	Type       RestructureType `json:"type"`
	OldRate    decimal.Decimal `json:"oldRate"`
	NewRate    decimal.Decimal `json:"newRate"`
	OldTenure  int             `json:"oldTenure"`
	NewTenure  int             `json:"newTenure"`
	OldBalance decimal.Decimal `json:"oldBalance"`
	NewBalance decimal.Decimal `json:"newBalance"`
	AppliedAt  time.Time       `json:"appliedAt"`
}

// PrepaymentMode selects how a prepayment reshapes the loan
type PrepaymentMode string

const (
	PrepayReduceEMI    PrepaymentMode = "reduce_emi"
	PrepayReduceTenure PrepaymentMode = "reduce_tenure"
	PrepayForeclose    PrepaymentMode = "foreclosure"
)

// PrepaymentEvent records an applied prepayment
type PrepaymentEvent struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	Mode      PrepaymentMode  `json:"mode"`
	Amount    decimal.Decimal `json:"amount"`
	Penalty   decimal.Decimal `json:"penalty"`
	OldEMI    decimal.Decimal `json:"oldEmi"`
	NewEMI    decimal.Decimal `json:"newEmi"`
	OldTenure int             `json:"oldTenure"`
	NewTenure int             `json:"newTenure"`
	ValueDate time.Time       `json:"valueDate"`
	CreatedAt time.Time       `json:"createdAt"`
}

// WriteOff records a full or partial write-off of an account
type WriteOff struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"accountId"`
	WriteOffDate    time.Time       `json:"writeOffDate"`
	PrincipalAmount decimal.Decimal `json:"principalAmount"`
	InterestAmount  decimal.Decimal `json:"interestAmount"`
	FeesAmount      decimal.Decimal `json:"feesAmount"`
	Partial         bool            `json:"partial"`
	DPDAtWriteOff   int             `json:"dpdAtWriteOff"`
	NPACategory     string          `json:"npaCategory,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Total is the full written-off amount across components
func (w *WriteOff) Total() decimal.Decimal {
	return w.PrincipalAmount.Add(w.InterestAmount).Add(w.FeesAmount)
}

// WriteOffRecovery is cash recovered after a write-off
type WriteOffRecovery struct {
	ID               int64           `json:"id"`
	WriteOffID       int64           `json:"writeOffId"`
	AccountID        int64           `json:"accountId"`
	RecoveryDate     time.Time       `json:"recoveryDate"`
	Amount           decimal.Decimal `json:"amount"`
	AgencyCommission decimal.Decimal `json:"agencyCommission"`
	Net              decimal.Decimal `json:"net"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ClosureEvent records how and when an account was closed
type ClosureEvent struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"accountId"`
	Type         ClosureType     `json:"type"`
	ClosureDate  time.Time       `json:"closureDate"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	WaivedAmount decimal.Decimal `json:"waivedAmount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// LifecycleRepository persists restructure, prepayment, closure and
// write-off records
type LifecycleRepository interface {
	CreateRestructureRequest(ctx context.Context, req *RestructureRequest) (*RestructureRequest, error)
	GetRestructureRequest(ctx context.Context, id int64) (*RestructureRequest, error)
	UpdateRestructureRequest(ctx context.Context, req *RestructureRequest) (*RestructureRequest, error)
	CreateRestructureEvent(ctx context.Context, ev *RestructureEvent) (*RestructureEvent, error)
	CreatePrepaymentEvent(ctx context.Context, ev *PrepaymentEvent) (*PrepaymentEvent, error)
	CreateWriteOff(ctx context.Context, wo *WriteOff) (*WriteOff, error)
	GetWriteOff(ctx context.Context, accountID int64) (*WriteOff, error)
	CreateWriteOffRecovery(ctx context.Context, rec *WriteOffRecovery) (*WriteOffRecovery, error)
	CreateClosureEvent(ctx context.Context, ev *ClosureEvent) (*ClosureEvent, error)
}
