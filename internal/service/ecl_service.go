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

// ECLService stages accounts for impairment and computes expected credit
// loss provisions
type ECLService struct {
	accountRepo   domain.LoanAccountRepository
	eclRepo       domain.ECLRepository
	lifecycleRepo domain.LifecycleRepository
	txManager     domain.TxManager
	locks         *AccountLocks
	config        domain.ECLConfig
	workers       int
}

// NewECLService creates a new ECLService
func NewECLService(accountRepo domain.LoanAccountRepository, eclRepo domain.ECLRepository, lifecycleRepo domain.LifecycleRepository, txManager domain.TxManager, locks *AccountLocks, config domain.ECLConfig, workers int) *ECLService {
	return &ECLService{
		accountRepo:   accountRepo,
		eclRepo:       eclRepo,
		lifecycleRepo: lifecycleRepo,
		txManager:     txManager,
		locks:         locks,
		config:        config,
		workers:       workers,
	}
}

// StageFor derives the impairment stage for an account. Credit-impaired
// conditions dominate, then significant-increase conditions, then stage 1.
func (s *ECLService) StageFor(account *domain.LoanAccount, writtenOff bool, sicr bool) (int, string) {
	switch {
	case writtenOff || account.Status == domain.AccountWrittenOff:
		return 3, "written_off"
	case account.NPA:
		return 3, "npa"
	case account.DPD > 90:
		return 3, "dpd_over_90"
	case account.Restructured:
		return 2, "restructured"
	case account.DPD > 30:
		return 2, "dpd_over_30"
	case sicr:
		return 2, "sicr_flag"
	default:
		return 1, "performing"
	}
}

// pdFor returns the probability of default per stage; stage 3 is certain
func (s *ECLService) pdFor(stage int) decimal.Decimal {
	switch stage {
	case 1:
		return s.config.PDStage1
	case 2:
		return s.config.PDStage2
	default:
		return decimal.NewFromInt(1)
	}
}

// ECLResult pairs an account's staging decision with its provision
type ECLResult struct {
	Staging   *domain.ECLStaging   `json:"staging"`
	Provision *domain.ECLProvision `json:"provision"`
}

// Run stages one account and books its provision as of the reporting date
func (s *ECLService) Run(ctx context.Context, accountID int64, asOf time.Time, sicr bool) (*ECLResult, error) {
	var result *ECLResult
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			if account.Status == domain.AccountClosed {
				return domain.ErrAccountNotOpen
			}

			writtenOff := account.Status == domain.AccountWrittenOff
			if !writtenOff {
				if _, err := s.lifecycleRepo.GetWriteOff(ctx, accountID); err == nil {
					writtenOff = true
				} else if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
			}

			stage, reason := s.StageFor(account, writtenOff, sicr)

			previousStage := 1
			if latest, err := s.eclRepo.GetLatestStaging(ctx, accountID); err == nil && latest != nil {
				previousStage = latest.Stage
			}

			staging, err := s.eclRepo.CreateStaging(ctx, &domain.ECLStaging{
				AccountID:     accountID,
				AsOf:          asOf,
				Stage:         stage,
				PreviousStage: previousStage,
				Reason:        reason,
			})
			if err != nil {
				return err
			}

			ead := account.TotalOutstanding()
			pd := s.pdFor(stage)
			lgd := s.config.LGDFor(account.Secured)
			amount := fincore.RoundMoney(ead.Mul(pd).Mul(lgd))

			opening := decimal.Zero
			if prior, err := s.eclRepo.GetLatestProvision(ctx, accountID); err == nil && prior != nil {
				opening = prior.Provision
			} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			charge, release := decimal.Zero, decimal.Zero
			if movement := amount.Sub(opening); movement.IsPositive() {
				charge = movement
			} else {
				release = movement.Neg()
			}

			provision, err := s.eclRepo.CreateProvision(ctx, &domain.ECLProvision{
				AccountID: accountID,
				AsOf:      asOf,
				Stage:     stage,
				EAD:       ead,
				PD:        pd,
				LGD:       lgd,
				Opening:   opening,
				Charge:    charge,
				Release:   release,
				Provision: amount,
			})
			if err != nil {
				return err
			}

			result = &ECLResult{Staging: staging, Provision: provision}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunBatch stages and provisions the whole book for the reporting date
func (s *ECLService) RunBatch(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	ids, err := s.accountRepo.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := runAccountBatch(ctx, s.workers, ids, func(ctx context.Context, accountID int64) error {
		_, err := s.Run(ctx, accountID, asOf, false)
		return err
	})

	log.Info().
		Time("as_of", asOf).
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("ECL batch completed")
	return result, nil
}

// PortfolioSummary aggregates provisions by stage for a reporting date
func (s *ECLService) PortfolioSummary(ctx context.Context, asOf time.Time) ([]*domain.ECLPortfolioSummary, error) {
	return s.eclRepo.PortfolioSummaryOn(ctx, asOf)
}

// LatestProvision returns the most recent provision for an account
func (s *ECLService) LatestProvision(ctx context.Context, accountID int64) (*domain.ECLProvision, error) {
	return s.eclRepo.GetLatestProvision(ctx, accountID)
}
