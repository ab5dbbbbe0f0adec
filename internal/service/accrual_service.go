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

// AccrualService books daily interest accruals, including floating rate
// resets against published benchmarks
type AccrualService struct {
	accountRepo   domain.LoanAccountRepository
	accrualRepo   domain.AccrualRepository
	benchmarkRepo domain.BenchmarkRepository
	txManager     domain.TxManager
	locks         *AccountLocks
	workers       int
}

// NewAccrualService creates a new AccrualService
func NewAccrualService(accountRepo domain.LoanAccountRepository, accrualRepo domain.AccrualRepository, benchmarkRepo domain.BenchmarkRepository, txManager domain.TxManager, locks *AccountLocks, workers int) *AccrualService {
	return &AccrualService{
		accountRepo:   accountRepo,
		accrualRepo:   accrualRepo,
		benchmarkRepo: benchmarkRepo,
		txManager:     txManager,
		locks:         locks,
		workers:       workers,
	}
}

// Accrue books one day's interest for an account. At most one non-reversed
// accrual can exist per account per date.
func (s *AccrualService) Accrue(ctx context.Context, accountID int64, date time.Time) (*domain.InterestAccrual, error) {
	var accrual *domain.InterestAccrual
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			existing, err := s.accrualRepo.GetByAccountAndDate(ctx, accountID, date)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if existing != nil && existing.Status != domain.AccrualReversed {
				return domain.ErrDuplicateAccrual
			}

			rate, err := s.effectiveRate(ctx, account, date)
			if err != nil {
				return err
			}

			dayFraction, err := fincore.YearFraction(date, date.AddDate(0, 0, 1), account.DayCount)
			if err != nil {
				return domain.Wrap(domain.KindInvalidInput, "day count", err)
			}

			amount := fincore.RoundMoney(account.OutstandingPrincipal.
				Mul(rate).Div(decimal.NewFromInt(100)).
				Mul(dayFraction))

			cumulative := amount
			if latest, err := s.accrualRepo.GetLatest(ctx, accountID); err == nil && latest != nil {
				cumulative = latest.Cumulative.Add(amount)
			}

			accrual = &domain.InterestAccrual{
				AccountID:   accountID,
				AccrualDate: date,
				Base:        account.OutstandingPrincipal,
				Rate:        rate,
				Amount:      amount,
				Cumulative:  cumulative,
				Status:      domain.AccrualAccrued,
			}
			created, err := s.accrualRepo.Create(ctx, accrual)
			if err != nil {
				return err
			}
			accrual = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return accrual, nil
}

// effectiveRate resolves the rate in effect on the date. Floating accounts
// reprice off the benchmark fixing; a change is recorded as a rate reset and
// written back to the account.
func (s *AccrualService) effectiveRate(ctx context.Context, account *domain.LoanAccount, date time.Time) (decimal.Decimal, error) {
	if account.RateType != domain.RateFloating {
		return account.InterestRate, nil
	}

	fixing, err := s.benchmarkRepo.ResolveOn(ctx, *account.BenchmarkCode, date)
	if err != nil {
		return decimal.Zero, err
	}

	rate := fincore.EffectiveRate(fixing.Rate, account.Spread, account.RateFloor, account.RateCap)
	if !rate.Equal(account.InterestRate) {
		reset := &domain.RateReset{
			AccountID: account.ID,
			ResetDate: date,
			OldRate:   account.InterestRate,
			NewRate:   rate,
			Benchmark: fixing.Rate,
		}
		if _, err := s.benchmarkRepo.RecordReset(ctx, reset); err != nil {
			return decimal.Zero, err
		}
		account.InterestRate = rate
		if _, err := s.accountRepo.Update(ctx, account); err != nil {
			return decimal.Zero, err
		}
		log.Info().
			Int64("account_id", account.ID).
			Str("old_rate", reset.OldRate.String()).
			Str("new_rate", rate.String()).
			Msg("Floating rate reset")
	}
	return rate, nil
}

// CatchUp accrues every missing day in [from, to], skipping days already
// accrued
func (s *AccrualService) CatchUp(ctx context.Context, accountID int64, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, domain.E(domain.KindInvalidInput, "catch-up range is inverted")
	}

	booked := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return booked, err
		}
		_, err := s.Accrue(ctx, accountID, d)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateAccrual) {
				continue
			}
			return booked, err
		}
		booked++
	}
	return booked, nil
}

// RunBatch accrues one day's interest across the active book. An account
// already accrued for the date counts as succeeded.
func (s *AccrualService) RunBatch(ctx context.Context, date time.Time) (*BatchResult, error) {
	ids, err := s.accountRepo.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := runAccountBatch(ctx, s.workers, ids, func(ctx context.Context, accountID int64) error {
		_, err := s.Accrue(ctx, accountID, date)
		if errors.Is(err, domain.ErrDuplicateAccrual) {
			return nil
		}
		return err
	})

	log.Info().
		Time("date", date).
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("Accrual batch completed")
	return result, nil
}

// UpsertBenchmark publishes or corrects a benchmark fixing
func (s *AccrualService) UpsertBenchmark(ctx context.Context, code string, effectiveDate time.Time, rate decimal.Decimal) (*domain.BenchmarkRate, error) {
	if code == "" {
		return nil, domain.E(domain.KindInvalidInput, "benchmark code is required")
	}
	return s.benchmarkRepo.Upsert(ctx, &domain.BenchmarkRate{
		Code:          code,
		EffectiveDate: effectiveDate,
		Rate:          rate,
	})
}

// History lists an account's accruals over a date range
func (s *AccrualService) History(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.InterestAccrual, error) {
	return s.accrualRepo.ListByAccount(ctx, accountID, from, to)
}

// Resets lists the rate resets applied to an account
func (s *AccrualService) Resets(ctx context.Context, accountID int64) ([]*domain.RateReset, error) {
	return s.benchmarkRepo.ListResets(ctx, accountID)
}
