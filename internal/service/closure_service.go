package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// ClosureService closes accounts, writes them off and records recoveries
type ClosureService struct {
	accountRepo   domain.LoanAccountRepository
	scheduleRepo  domain.ScheduleRepository
	lifecycleRepo domain.LifecycleRepository
	fldgService   *FLDGService
	txManager     domain.TxManager
	locks         *AccountLocks
}

// NewClosureService creates a new ClosureService. The FLDG service may be nil
// when no guarantee program is in use.
func NewClosureService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, lifecycleRepo domain.LifecycleRepository, fldgService *FLDGService, txManager domain.TxManager, locks *AccountLocks) *ClosureService {
	return &ClosureService{
		accountRepo:   accountRepo,
		scheduleRepo:  scheduleRepo,
		lifecycleRepo: lifecycleRepo,
		fldgService:   fldgService,
		txManager:     txManager,
		locks:         locks,
	}
}

// CloseInput describes a normal or settlement closure
type CloseInput struct {
	AccountID   int64
	Type        domain.ClosureType
	ClosureDate time.Time
	AmountPaid  decimal.Decimal
	WaiveAmount decimal.Decimal // settlement only
}

// Close settles and closes an open account. A normal closure requires the
// full outstanding to be paid; a settlement may waive part of it.
func (s *ClosureService) Close(ctx context.Context, input CloseInput) (*domain.ClosureEvent, error) {
	if input.Type != domain.ClosureNormal && input.Type != domain.ClosureSettlement {
		return nil, domain.E(domain.KindInvalidInput, "closure type must be normal or settlement")
	}
	if input.Type == domain.ClosureNormal && input.WaiveAmount.IsPositive() {
		return nil, domain.E(domain.KindInvalidInput, "normal closure cannot waive amounts")
	}

	var event *domain.ClosureEvent
	err := s.locks.WithLock(input.AccountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, input.AccountID)
			if err != nil {
				return err
			}
			if account.Status == domain.AccountClosed {
				return domain.ErrAlreadyClosed
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			outstanding := account.TotalOutstanding()
			required := outstanding.Sub(input.WaiveAmount)
			if required.IsNegative() {
				return domain.E(domain.KindInvalidInput, "waiver exceeds outstanding")
			}
			if input.AmountPaid.LessThan(required) {
				return domain.E(domain.KindConflictingState, "closure amount below outstanding net of waiver")
			}

			if err := s.settleSchedule(ctx, account.ID, input.ClosureDate, input.WaiveAmount.IsPositive()); err != nil {
				return err
			}

			now := time.Now().UTC()
			closureType := input.Type
			account.Status = domain.AccountClosed
			account.ClosureType = &closureType
			account.ClosedAt = &now
			account.OutstandingPrincipal = decimal.Zero
			account.OutstandingInterest = decimal.Zero
			account.OutstandingFees = decimal.Zero
			account.DPD = 0
			account.Bucket = domain.BucketCurrent
			account.NPA = false
			account.NPACategory = ""
			if _, err := s.accountRepo.Update(ctx, account); err != nil {
				return err
			}

			created, err := s.lifecycleRepo.CreateClosureEvent(ctx, &domain.ClosureEvent{
				AccountID:    account.ID,
				Type:         input.Type,
				ClosureDate:  input.ClosureDate,
				AmountPaid:   input.AmountPaid,
				WaivedAmount: input.WaiveAmount,
			})
			if err != nil {
				return err
			}
			event = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", input.AccountID).
		Str("type", string(input.Type)).
		Str("waived", input.WaiveAmount.String()).
		Msg("Account closed")
	return event, nil
}

// settleSchedule marks every remaining row paid, or waived when the closure
// carries a waiver.
func (s *ClosureService) settleSchedule(ctx context.Context, accountID int64, asOf time.Time, waiving bool) error {
	rows, err := s.scheduleRepo.GetUnpaidByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if waiving && row.PrincipalPaid.Add(row.InterestPaid).Add(row.FeesPaid).IsZero() {
			row.Status = domain.InstallmentWaived
		} else {
			row.PrincipalPaid = row.PrincipalDue
			row.InterestPaid = row.InterestDue
			row.FeesPaid = row.FeeDue
			row.RefreshStatus(asOf)
		}
		if err := s.scheduleRepo.UpdateRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteOffInput describes a full or partial write-off
type WriteOffInput struct {
	AccountID    int64
	WriteOffDate time.Time
	Partial      bool
	// Partial write-offs name the principal to be derecognized; full
	// write-offs take the whole outstanding.
	PrincipalAmount decimal.Decimal
	Reason          string
	FLDGProgramCode string
}

// WriteOff derecognizes an account's outstanding. The account moves to
// written_off and its delinquency state at write-off is captured for
// provisioning and recovery tracking.
func (s *ClosureService) WriteOff(ctx context.Context, input WriteOffInput) (*domain.WriteOff, error) {
	var writeOff *domain.WriteOff
	err := s.locks.WithLock(input.AccountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, input.AccountID)
			if err != nil {
				return err
			}
			if account.Status == domain.AccountWrittenOff {
				return domain.ErrAlreadyWrittenOff
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			principal := account.OutstandingPrincipal
			interest := account.OutstandingInterest
			fees := account.OutstandingFees
			if input.Partial {
				if input.PrincipalAmount.LessThanOrEqual(decimal.Zero) ||
					input.PrincipalAmount.GreaterThan(account.OutstandingPrincipal) {
					return domain.E(domain.KindInvalidInput, "partial write-off principal out of range")
				}
				principal = input.PrincipalAmount
				interest = decimal.Zero
				fees = decimal.Zero
			}

			writeOff = &domain.WriteOff{
				AccountID:       account.ID,
				WriteOffDate:    input.WriteOffDate,
				PrincipalAmount: principal,
				InterestAmount:  interest,
				FeesAmount:      fees,
				Partial:         input.Partial,
				DPDAtWriteOff:   account.DPD,
				NPACategory:     account.NPACategory,
				Reason:          input.Reason,
			}

			if input.Partial {
				account.OutstandingPrincipal = account.OutstandingPrincipal.Sub(principal)
			} else {
				account.Status = domain.AccountWrittenOff
				account.OutstandingPrincipal = decimal.Zero
				account.OutstandingInterest = decimal.Zero
				account.OutstandingFees = decimal.Zero
			}
			if _, err := s.accountRepo.Update(ctx, account); err != nil {
				return err
			}

			created, err := s.lifecycleRepo.CreateWriteOff(ctx, writeOff)
			if err != nil {
				return err
			}
			writeOff = created

			if s.fldgService != nil && input.FLDGProgramCode != "" {
				_, err := s.fldgService.claimInTx(ctx, input.FLDGProgramCode, account.ID, input.WriteOffDate, domain.ClaimReasonWriteOff, writeOff.Total())
				if err != nil && !errors.Is(err, domain.ErrFLDGExhausted) {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", input.AccountID).
		Bool("partial", input.Partial).
		Str("total", writeOff.Total().String()).
		Msg("Account written off")
	return writeOff, nil
}

// RecoveryInput describes cash recovered on a written-off account
type RecoveryInput struct {
	AccountID           int64
	RecoveryDate        time.Time
	Amount              decimal.Decimal
	AgencyCommissionPct decimal.Decimal
	FLDGProgramCode     string
}

// RecordRecovery books a post-write-off recovery. Agency commission is
// deducted first; the net is routed through the guarantee pool when one
// covered the account, otherwise it is retained.
func (s *ClosureService) RecordRecovery(ctx context.Context, input RecoveryInput) (*domain.WriteOffRecovery, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindInvalidInput, "recovery amount must be positive")
	}
	if input.AgencyCommissionPct.IsNegative() || input.AgencyCommissionPct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, domain.E(domain.KindInvalidInput, "agency commission percent out of range")
	}

	var recovery *domain.WriteOffRecovery
	err := s.locks.WithLock(input.AccountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			writeOff, err := s.lifecycleRepo.GetWriteOff(ctx, input.AccountID)
			if err != nil {
				return err
			}

			commission := fincore.RoundMoney(input.Amount.
				Mul(input.AgencyCommissionPct).Div(decimal.NewFromInt(100)))
			net := input.Amount.Sub(commission)

			recovery = &domain.WriteOffRecovery{
				WriteOffID:       writeOff.ID,
				AccountID:        input.AccountID,
				RecoveryDate:     input.RecoveryDate,
				Amount:           input.Amount,
				AgencyCommission: commission,
				Net:              net,
			}
			created, err := s.lifecycleRepo.CreateWriteOffRecovery(ctx, recovery)
			if err != nil {
				return err
			}
			recovery = created

			if s.fldgService != nil && input.FLDGProgramCode != "" {
				if _, err := s.fldgService.recoveryInTx(ctx, input.FLDGProgramCode, input.AccountID, input.RecoveryDate, net); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", input.AccountID).
		Str("amount", input.Amount.String()).
		Str("net", recovery.Net.String()).
		Msg("Write-off recovery recorded")
	return recovery, nil
}
