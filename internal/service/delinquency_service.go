package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// DelinquencyConfig holds bucket boundaries and the NPA trigger
type DelinquencyConfig struct {
	SMABoundaries [3]int // upper DPD bound of sma_0, sma_1, sma_2
	NPATriggerDPD int    // entering DPD for NPA classification
	DoubtfulDPD   int    // lower DPD bound of the doubtful category
	LossDPD       int    // lower DPD bound of the loss category
}

// DefaultDelinquencyConfig returns the standard SMA ladder: 30/60/90 with
// NPA at 90+, doubtful beyond one year, loss beyond three.
func DefaultDelinquencyConfig() DelinquencyConfig {
	return DelinquencyConfig{
		SMABoundaries: [3]int{30, 60, 90},
		NPATriggerDPD: 90,
		DoubtfulDPD:   366,
		LossDPD:       1096,
	}
}

// DelinquencyService computes days past due, buckets and NPA state
type DelinquencyService struct {
	accountRepo     domain.LoanAccountRepository
	scheduleRepo    domain.ScheduleRepository
	delinquencyRepo domain.DelinquencyRepository
	txManager       domain.TxManager
	locks           *AccountLocks
	config          DelinquencyConfig
	workers         int
}

// NewDelinquencyService creates a new DelinquencyService
func NewDelinquencyService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, delinquencyRepo domain.DelinquencyRepository, txManager domain.TxManager, locks *AccountLocks, config DelinquencyConfig, workers int) *DelinquencyService {
	return &DelinquencyService{
		accountRepo:     accountRepo,
		scheduleRepo:    scheduleRepo,
		delinquencyRepo: delinquencyRepo,
		txManager:       txManager,
		locks:           locks,
		config:          config,
		workers:         workers,
	}
}

// DPDFromRows returns days past due from the oldest unsettled row with an
// amount due on or before asOf. Zero when nothing is overdue.
func DPDFromRows(rows []*domain.ScheduleRow, asOf time.Time) int {
	for _, row := range rows {
		if row.IsSettled() {
			continue
		}
		if row.UnpaidTotal().LessThanOrEqual(decimal.Zero) {
			continue
		}
		if row.DueDate.After(asOf) {
			break
		}
		days := int(asOf.Sub(row.DueDate).Hours() / 24)
		if days < 0 {
			days = 0
		}
		return days
	}
	return 0
}

// Bucket maps a DPD to its delinquency bucket
func (c DelinquencyConfig) Bucket(dpd int) string {
	switch {
	case dpd == 0:
		return domain.BucketCurrent
	case dpd <= c.SMABoundaries[0]:
		return domain.BucketSMA0
	case dpd <= c.SMABoundaries[1]:
		return domain.BucketSMA1
	case dpd <= c.SMABoundaries[2]:
		return domain.BucketSMA2
	case dpd < c.DoubtfulDPD:
		return domain.BucketSubstandard
	case dpd < c.LossDPD:
		return domain.BucketDoubtful
	default:
		return domain.BucketLoss
	}
}

// NPACategory maps a DPD to an NPA category; empty below the trigger
func (c DelinquencyConfig) NPACategory(dpd int) string {
	switch {
	case dpd <= c.NPATriggerDPD:
		return ""
	case dpd < c.DoubtfulDPD:
		return domain.NPACategorySubstandard
	case dpd < c.LossDPD:
		return domain.NPACategoryDoubtful
	default:
		return domain.NPACategoryLoss
	}
}

// Refresh recomputes the account's delinquency position as of the date and
// stores a snapshot. NPA state is sticky: an account classified NPA stays
// NPA until DPD returns to zero, regardless of partial catch-up.
func (s *DelinquencyService) Refresh(ctx context.Context, accountID int64, asOf time.Time) (*domain.DelinquencySnapshot, error) {
	var snapshot *domain.DelinquencySnapshot
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			if account.Status == domain.AccountClosed {
				return domain.ErrAccountNotOpen
			}

			rows, err := s.scheduleRepo.GetByAccount(ctx, accountID)
			if err != nil {
				return err
			}

			dpd := DPDFromRows(rows, asOf)
			overduePrincipal, overdueInterest, overdueFees := overdueComponents(rows, asOf)

			npa := account.NPA
			if dpd > s.config.NPATriggerDPD {
				npa = true
			} else if dpd == 0 {
				npa = false
			}

			category := ""
			if npa {
				category = s.config.NPACategory(dpd)
				if category == "" {
					// Sticky NPA below the trigger keeps its last category
					category = account.NPACategory
					if category == "" {
						category = domain.NPACategorySubstandard
					}
				}
			}

			account.DPD = dpd
			account.Bucket = s.config.Bucket(dpd)
			account.NPA = npa
			account.NPACategory = category
			if _, err := s.accountRepo.Update(ctx, account); err != nil {
				return err
			}

			snapshot = &domain.DelinquencySnapshot{
				AccountID:        accountID,
				AsOf:             asOf,
				DPD:              dpd,
				Bucket:           account.Bucket,
				NPA:              npa,
				NPACategory:      category,
				OverduePrincipal: overduePrincipal,
				OverdueInterest:  overdueInterest,
				OverdueFees:      overdueFees,
			}
			created, err := s.delinquencyRepo.Create(ctx, snapshot)
			if err != nil {
				return err
			}
			snapshot = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RunBatch refreshes delinquency for every active account
func (s *DelinquencyService) RunBatch(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	ids, err := s.accountRepo.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := runAccountBatch(ctx, s.workers, ids, func(ctx context.Context, accountID int64) error {
		_, err := s.Refresh(ctx, accountID, asOf)
		return err
	})

	log.Info().
		Time("as_of", asOf).
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("Delinquency batch completed")
	return result, nil
}

// Latest returns the most recent snapshot for an account
func (s *DelinquencyService) Latest(ctx context.Context, accountID int64) (*domain.DelinquencySnapshot, error) {
	return s.delinquencyRepo.GetLatest(ctx, accountID)
}

// Trend returns the snapshot history for an account over a date range
func (s *DelinquencyService) Trend(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.DelinquencySnapshot, error) {
	return s.delinquencyRepo.ListByAccount(ctx, accountID, from, to)
}

// BucketDistribution aggregates the book by bucket on a date
func (s *DelinquencyService) BucketDistribution(ctx context.Context, asOf time.Time) ([]*domain.BucketDistribution, error) {
	return s.delinquencyRepo.BucketDistributionOn(ctx, asOf)
}

func overdueComponents(rows []*domain.ScheduleRow, asOf time.Time) (principal, interest, fees decimal.Decimal) {
	principal, interest, fees = decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.IsSettled() || row.DueDate.After(asOf) {
			continue
		}
		principal = principal.Add(row.UnpaidPrincipal())
		interest = interest.Add(row.UnpaidInterest())
		fees = fees.Add(row.UnpaidFees())
	}
	return principal, interest, fees
}
