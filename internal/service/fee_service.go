package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// FeeConfig describes how late fees are calculated. A positive rate charges a
// percentage of the overdue amount, otherwise the flat amount applies. Min
// and max bound the charged fee when set.
type FeeConfig struct {
	LateFeeRatePct decimal.Decimal
	LateFeeFlat    decimal.Decimal
	GraceDays      int
	MinFee         decimal.Decimal
	MaxFee         decimal.Decimal
}

// DefaultFeeConfig returns the standard late fee policy: 2% of the overdue
// amount with no grace period
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		LateFeeRatePct: decimal.NewFromInt(2),
		LateFeeFlat:    decimal.Zero,
		GraceDays:      0,
		MinFee:         decimal.Zero,
		MaxFee:         decimal.Zero,
	}
}

// FeeService assesses late fees on overdue installments
type FeeService struct {
	accountRepo  domain.LoanAccountRepository
	scheduleRepo domain.ScheduleRepository
	txManager    domain.TxManager
	locks        *AccountLocks
	config       FeeConfig
}

// NewFeeService creates a new FeeService
func NewFeeService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, txManager domain.TxManager, locks *AccountLocks, config FeeConfig) *FeeService {
	return &FeeService{
		accountRepo:  accountRepo,
		scheduleRepo: scheduleRepo,
		txManager:    txManager,
		locks:        locks,
		config:       config,
	}
}

// LateFeeCharge is one fee charged onto an overdue installment
type LateFeeCharge struct {
	Period      int             `json:"period"`
	DueDate     time.Time       `json:"dueDate"`
	OverdueDays int             `json:"overdueDays"`
	Amount      decimal.Decimal `json:"amount"`
}

// AssessLateFees charges a late fee onto every overdue installment past the
// grace period that has not been charged yet. The fee lands on the row's fee
// due and flows through the regular payment waterfall from there.
func (s *FeeService) AssessLateFees(ctx context.Context, accountID int64, asOf time.Time) ([]*LateFeeCharge, error) {
	var charges []*LateFeeCharge
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			rows, err := s.scheduleRepo.GetUnpaidByAccount(ctx, accountID)
			if err != nil {
				return err
			}

			total := decimal.Zero
			for _, row := range rows {
				if row.Status == domain.InstallmentWaived {
					continue
				}
				overdueDays := int(asOf.Sub(row.DueDate).Hours() / 24)
				if overdueDays <= s.config.GraceDays {
					continue
				}
				// One late fee per installment
				if row.FeeDue.IsPositive() {
					continue
				}

				fee := s.lateFee(row.UnpaidPrincipal().Add(row.UnpaidInterest()))
				if !fee.IsPositive() {
					continue
				}

				row.FeeDue = row.FeeDue.Add(fee)
				row.TotalDue = row.TotalDue.Add(fee)
				row.RefreshStatus(asOf)
				if err := s.scheduleRepo.UpdateRow(ctx, row); err != nil {
					return err
				}

				total = total.Add(fee)
				charges = append(charges, &LateFeeCharge{
					Period:      row.Period,
					DueDate:     row.DueDate,
					OverdueDays: overdueDays,
					Amount:      fee,
				})
			}

			if total.IsPositive() {
				account.OutstandingFees = account.OutstandingFees.Add(total)
				if _, err := s.accountRepo.Update(ctx, account); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(charges) > 0 {
		log.Info().
			Int64("account_id", accountID).
			Int("installments_charged", len(charges)).
			Msg("Late fees assessed")
	}
	return charges, nil
}

// lateFee computes one charge from the overdue amount, applying the
// configured limits
func (s *FeeService) lateFee(overdue decimal.Decimal) decimal.Decimal {
	var fee decimal.Decimal
	if s.config.LateFeeRatePct.IsPositive() {
		fee = fincore.RoundMoney(overdue.Mul(s.config.LateFeeRatePct).Div(decimal.NewFromInt(100)))
	} else {
		fee = s.config.LateFeeFlat
	}
	if s.config.MinFee.IsPositive() && fee.LessThan(s.config.MinFee) {
		fee = s.config.MinFee
	}
	if s.config.MaxFee.IsPositive() && fee.GreaterThan(s.config.MaxFee) {
		fee = s.config.MaxFee
	}
	return fee
}
