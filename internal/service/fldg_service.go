package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// FLDGService manages default guarantee pools: claims against the cover and
// recoveries that replenish it
type FLDGService struct {
	fldgRepo          domain.FLDGRepository
	accountRepo       domain.LoanAccountRepository
	participationRepo domain.ParticipationRepository
	txManager         domain.TxManager
}

// NewFLDGService creates a new FLDGService
func NewFLDGService(fldgRepo domain.FLDGRepository, accountRepo domain.LoanAccountRepository, participationRepo domain.ParticipationRepository, txManager domain.TxManager) *FLDGService {
	return &FLDGService{
		fldgRepo:          fldgRepo,
		accountRepo:       accountRepo,
		participationRepo: participationRepo,
		txManager:         txManager,
	}
}

// CreateArrangement registers a guarantee pool for a program
func (s *FLDGService) CreateArrangement(ctx context.Context, arr *domain.FLDGArrangement) (*domain.FLDGArrangement, error) {
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	arr.Utilized = decimal.Zero
	arr.Recovered = decimal.Zero
	return s.fldgRepo.CreateArrangement(ctx, arr)
}

// GetArrangement fetches a pool with its computed limit and balance
func (s *FLDGService) GetArrangement(ctx context.Context, id int64) (*domain.FLDGArrangement, error) {
	return s.fldgRepo.GetArrangement(ctx, id)
}

// ClaimInput identifies a loss to be drawn against the pool
type ClaimInput struct {
	ProgramCode string
	AccountID   int64
	ClaimDate   time.Time
	Reason      domain.FLDGClaimReason
	Amount      decimal.Decimal
}

// Claim draws a defaulted exposure from the guarantee pool. The honored
// amount is capped at the remaining cover; a pool with nothing left rejects
// the claim outright.
func (s *FLDGService) Claim(ctx context.Context, input ClaimInput) (*domain.FLDGUtilization, error) {
	var utilization *domain.FLDGUtilization
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		utilization, err = s.claimInTx(ctx, input.ProgramCode, input.AccountID, input.ClaimDate, input.Reason, input.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return utilization, nil
}

// claimInTx performs the claim inside the caller's transaction
func (s *FLDGService) claimInTx(ctx context.Context, programCode string, accountID int64, claimDate time.Time, reason domain.FLDGClaimReason, amount decimal.Decimal) (*domain.FLDGUtilization, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindInvalidInput, "claim amount must be positive")
	}

	arr, err := s.fldgRepo.GetArrangementByProgram(ctx, programCode)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if reason == domain.ClaimReasonDPD && account.DPD < arr.TriggerDPD {
		return nil, domain.E(domain.KindConflictingState, "account dpd below claim trigger")
	}

	if arr.Structure == domain.FLDGSecondLoss && arr.Utilized.Add(amount).LessThanOrEqual(arr.FirstLossThreshold) {
		return nil, domain.E(domain.KindConflictingState, "loss within the first loss tranche")
	}

	available := arr.Balance()
	if available.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrFLDGExhausted
	}

	honored := amount
	if honored.GreaterThan(available) {
		honored = available
	}

	utilization, err := s.fldgRepo.CreateUtilization(ctx, &domain.FLDGUtilization{
		ArrangementID: arr.ID,
		AccountID:     accountID,
		ClaimDate:     claimDate,
		Reason:        reason,
		Claimed:       amount,
		Honored:       honored,
	})
	if err != nil {
		return nil, err
	}

	arr.Utilized = arr.Utilized.Add(honored)
	if _, err := s.fldgRepo.UpdateArrangement(ctx, arr); err != nil {
		return nil, err
	}

	if err := s.postClaimLedger(ctx, accountID, claimDate, honored); err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Str("program", programCode).
		Str("claimed", amount.String()).
		Str("honored", honored.String()).
		Msg("FLDG claim honored")
	return utilization, nil
}

// FLDGRecoveryInput routes a recovery back through a pool
type FLDGRecoveryInput struct {
	ProgramCode  string
	AccountID    int64
	RecoveryDate time.Time
	Amount       decimal.Decimal
}

// Recovery replenishes the pool up to its utilized amount; any excess flows
// to the lender.
func (s *FLDGService) Recovery(ctx context.Context, input FLDGRecoveryInput) (*domain.FLDGRecovery, error) {
	var recovery *domain.FLDGRecovery
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		recovery, err = s.recoveryInTx(ctx, input.ProgramCode, input.AccountID, input.RecoveryDate, input.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recovery, nil
}

// recoveryInTx performs the recovery inside the caller's transaction
func (s *FLDGService) recoveryInTx(ctx context.Context, programCode string, accountID int64, recoveryDate time.Time, amount decimal.Decimal) (*domain.FLDGRecovery, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindInvalidInput, "recovery amount must be positive")
	}

	arr, err := s.fldgRepo.GetArrangementByProgram(ctx, programCode)
	if err != nil {
		return nil, err
	}

	// Replenishment caps at what this account actually drew, net of its
	// earlier recoveries, never at the pool-wide draw
	outstandingDraw, err := s.accountDraw(ctx, arr.ID, accountID)
	if err != nil {
		return nil, err
	}

	replenished := amount
	if replenished.GreaterThan(outstandingDraw) {
		replenished = outstandingDraw
	}
	toLender := amount.Sub(replenished)

	recovery, err := s.fldgRepo.CreateRecovery(ctx, &domain.FLDGRecovery{
		ArrangementID: arr.ID,
		AccountID:     accountID,
		RecoveryDate:  recoveryDate,
		Amount:        amount,
		Replenished:   replenished,
		ToLender:      toLender,
	})
	if err != nil {
		return nil, err
	}

	arr.Recovered = arr.Recovered.Add(replenished)
	if _, err := s.fldgRepo.UpdateArrangement(ctx, arr); err != nil {
		return nil, err
	}

	if toLender.IsPositive() {
		if err := s.postRecoveryLedger(ctx, accountID, recoveryDate, toLender); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int64("account_id", accountID).
		Str("program", programCode).
		Str("replenished", replenished.String()).
		Str("to_lender", toLender.String()).
		Msg("FLDG recovery applied")
	return recovery, nil
}

// accountDraw returns the honored claims of one account net of its prior
// replenishments
func (s *FLDGService) accountDraw(ctx context.Context, arrangementID, accountID int64) (decimal.Decimal, error) {
	utilizations, err := s.fldgRepo.ListUtilizations(ctx, arrangementID)
	if err != nil {
		return decimal.Zero, err
	}
	honored := decimal.Zero
	for _, u := range utilizations {
		if u.AccountID == accountID {
			honored = honored.Add(u.Honored)
		}
	}

	recoveries, err := s.fldgRepo.ListRecoveries(ctx, arrangementID)
	if err != nil {
		return decimal.Zero, err
	}
	replenished := decimal.Zero
	for _, r := range recoveries {
		if r.AccountID == accountID {
			replenished = replenished.Add(r.Replenished)
		}
	}

	draw := honored.Sub(replenished)
	if draw.IsNegative() {
		draw = decimal.Zero
	}
	return draw, nil
}

// postClaimLedger credits lenders with their share of an honored claim
func (s *FLDGService) postClaimLedger(ctx context.Context, accountID int64, date time.Time, honored decimal.Decimal) error {
	return s.postLedgerShares(ctx, accountID, date, honored, domain.LedgerFLDGClaim)
}

// postRecoveryLedger passes excess recovery to lenders by share
func (s *FLDGService) postRecoveryLedger(ctx context.Context, accountID int64, date time.Time, amount decimal.Decimal) error {
	return s.postLedgerShares(ctx, accountID, date, amount, domain.LedgerRecovery)
}

func (s *FLDGService) postLedgerShares(ctx context.Context, accountID int64, date time.Time, amount decimal.Decimal, entryType domain.LedgerEntryType) error {
	parts, err := s.participationRepo.GetByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, part := range parts {
		if part.Role != domain.RoleLender {
			continue
		}
		share := fincore.RoundMoney(amount.Mul(part.SharePercent).Div(decimal.NewFromInt(100)))
		balance, err := s.participationRepo.LatestLedgerBalance(ctx, accountID, part.PartnerCode)
		if err != nil {
			return err
		}
		if _, err := s.participationRepo.CreateLedgerEntry(ctx, &domain.PartnerLedgerEntry{
			AccountID:   accountID,
			PartnerCode: part.PartnerCode,
			EntryDate:   date,
			Type:        entryType,
			Amount:      share,
			Balance:     balance.Add(share),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Utilizations lists the claims drawn against a pool
func (s *FLDGService) Utilizations(ctx context.Context, arrangementID int64) ([]*domain.FLDGUtilization, error) {
	return s.fldgRepo.ListUtilizations(ctx, arrangementID)
}

// Recoveries lists the recoveries routed through a pool
func (s *FLDGService) Recoveries(ctx context.Context, arrangementID int64) ([]*domain.FLDGRecovery, error) {
	return s.fldgRepo.ListRecoveries(ctx, arrangementID)
}
