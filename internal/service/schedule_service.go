package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// ScheduleService generates and persists repayment schedules
type ScheduleService struct {
	accountRepo  domain.LoanAccountRepository
	scheduleRepo domain.ScheduleRepository
	txManager    domain.TxManager
	calendar     *fincore.Calendar
	adjustMode   fincore.BusinessDayMode
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, txManager domain.TxManager, calendar *fincore.Calendar, adjustMode fincore.BusinessDayMode) *ScheduleService {
	return &ScheduleService{
		accountRepo:  accountRepo,
		scheduleRepo: scheduleRepo,
		txManager:    txManager,
		calendar:     calendar,
		adjustMode:   adjustMode,
	}
}

// ScheduleTerms is the input for a schedule preview
type ScheduleTerms struct {
	Type                fincore.ScheduleType
	Principal           decimal.Decimal
	AnnualRatePct       decimal.Decimal
	Periods             int
	Frequency           fincore.Frequency
	StartDate           time.Time
	BalloonFraction     decimal.Decimal
	StepPercent         decimal.Decimal
	StepEveryPeriods    int
	MoratoriumPeriods   int
	MoratoriumTreatment fincore.MoratoriumTreatment
}

func (t ScheduleTerms) spec(cal *fincore.Calendar, mode fincore.BusinessDayMode) fincore.ScheduleSpec {
	return fincore.ScheduleSpec{
		Type:                t.Type,
		Principal:           t.Principal,
		AnnualRatePct:       t.AnnualRatePct,
		Periods:             t.Periods,
		Frequency:           t.Frequency,
		StartDate:           t.StartDate,
		BalloonFraction:     t.BalloonFraction,
		StepPercent:         t.StepPercent,
		StepEveryPeriods:    t.StepEveryPeriods,
		MoratoriumPeriods:   t.MoratoriumPeriods,
		MoratoriumTreatment: t.MoratoriumTreatment,
		Calendar:            cal,
		BusinessDayMode:     mode,
	}
}

// Generate produces a schedule preview without touching storage
func (s *ScheduleService) Generate(terms ScheduleTerms) ([]fincore.Installment, error) {
	rows, err := fincore.GenerateSchedule(terms.spec(s.calendar, s.adjustMode))
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidInput, "generate schedule", err)
	}
	return rows, nil
}

// PersistForAccount generates the account's schedule from its stored terms
// and persists it. An account that already has a schedule is rejected;
// RegenerateForAccount is the explicit replacement path.
func (s *ScheduleService) PersistForAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	return s.persist(ctx, accountID, false)
}

// RegenerateForAccount replaces an existing schedule from the account's
// stored terms. Rows that have collected money are never discarded this way,
// so regeneration is refused once any installment has been paid against.
func (s *ScheduleService) RegenerateForAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	return s.persist(ctx, accountID, true)
}

func (s *ScheduleService) persist(ctx context.Context, accountID int64, replace bool) ([]*domain.ScheduleRow, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsOpen() {
		return nil, domain.ErrAccountNotOpen
	}

	rows, err := s.Generate(TermsFromAccount(account))
	if err != nil {
		return nil, err
	}

	persisted := toScheduleRows(accountID, rows)
	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.scheduleRepo.GetByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !replace && len(existing) > 0 {
			return domain.E(domain.KindConflictingState, "schedule already exists")
		}
		for _, row := range existing {
			if row.HasCollections() {
				return domain.E(domain.KindConflictingState, "schedule has collections and cannot be regenerated")
			}
		}
		return s.scheduleRepo.ReplaceForAccount(ctx, accountID, persisted)
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

// GetSchedule returns the persisted schedule for an account
func (s *ScheduleService) GetSchedule(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetByAccount(ctx, accountID)
}

// TermsFromAccount derives schedule terms from an account's stored fields
func TermsFromAccount(a *domain.LoanAccount) ScheduleTerms {
	return ScheduleTerms{
		Type:          a.ScheduleType,
		Principal:     a.Principal,
		AnnualRatePct: a.InterestRate,
		Periods:       a.TenurePeriods,
		Frequency:     a.Frequency,
		StartDate:     a.DisbursementDate,
	}
}

func toScheduleRows(accountID int64, rows []fincore.Installment) []*domain.ScheduleRow {
	out := make([]*domain.ScheduleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.ScheduleRow{
			AccountID:      accountID,
			Period:         r.Period,
			DueDate:        r.DueDate,
			OpeningBalance: r.OpeningBalance,
			PrincipalDue:   r.PrincipalDue,
			InterestDue:    r.InterestDue,
			TotalDue:       r.TotalDue,
			ClosingBalance: r.ClosingBalance,
			PrincipalPaid:  decimal.Zero,
			InterestPaid:   decimal.Zero,
			FeesPaid:       decimal.Zero,
			FeeDue:         decimal.Zero,
			Status:         domain.InstallmentPending,
		})
	}
	return out
}
