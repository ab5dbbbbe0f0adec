package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// ColendingService splits disbursements and collections across participants
// and accrues the servicer fee and excess spread
type ColendingService struct {
	accountRepo       domain.LoanAccountRepository
	participationRepo domain.ParticipationRepository
	txManager         domain.TxManager
	locks             *AccountLocks
}

// NewColendingService creates a new ColendingService
func NewColendingService(accountRepo domain.LoanAccountRepository, participationRepo domain.ParticipationRepository, txManager domain.TxManager, locks *AccountLocks) *ColendingService {
	return &ColendingService{
		accountRepo:       accountRepo,
		participationRepo: participationRepo,
		txManager:         txManager,
		locks:             locks,
	}
}

// Register records the participation structure for an account and posts the
// disbursement split to the partner ledgers
func (s *ColendingService) Register(ctx context.Context, accountID int64, parts []*domain.LoanParticipation, servicer *domain.ServicerArrangement) error {
	if err := domain.ValidateParticipations(parts); err != nil {
		return err
	}

	return s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}

			for _, p := range parts {
				p.AccountID = accountID
			}
			if err := s.participationRepo.CreateAll(ctx, parts); err != nil {
				return err
			}

			if servicer != nil {
				servicer.AccountID = accountID
				if _, err := s.participationRepo.SaveServicerArrangement(ctx, servicer); err != nil {
					return err
				}
			}

			splits := splitByShare(account.Principal, parts)
			for i, p := range parts {
				if _, err := s.participationRepo.CreateLedgerEntry(ctx, &domain.PartnerLedgerEntry{
					AccountID:   accountID,
					PartnerCode: p.PartnerCode,
					EntryDate:   account.DisbursementDate,
					Type:        domain.LedgerDisbursement,
					Amount:      splits[i],
					Balance:     splits[i],
				}); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// CollectionSplit is one partner's cut of a collection
type CollectionSplit struct {
	PartnerCode string          `json:"partnerCode"`
	Role        domain.ParticipantRole `json:"role"`
	Principal   decimal.Decimal `json:"principal"`
	Interest    decimal.Decimal `json:"interest"`
	Fees        decimal.Decimal `json:"fees"`
}

// SplitCollection divides a posted collection across participants by share.
// The last participant absorbs the rounding residual so the splits always
// sum to the collected amounts.
func (s *ColendingService) SplitCollection(ctx context.Context, accountID int64, valueDate time.Time, principal, interest, fees decimal.Decimal) ([]*CollectionSplit, error) {
	var result []*CollectionSplit
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			parts, err := s.participationRepo.GetByAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if len(parts) == 0 {
				return domain.E(domain.KindNotFound, "no participations registered for account")
			}

			principalSplits := splitByShare(principal, parts)
			interestSplits := splitByShare(interest, parts)
			feeSplits := splitByShare(fees, parts)

			for i, p := range parts {
				split := &CollectionSplit{
					PartnerCode: p.PartnerCode,
					Role:        p.Role,
					Principal:   principalSplits[i],
					Interest:    interestSplits[i],
					Fees:        feeSplits[i],
				}
				result = append(result, split)

				for _, posting := range []struct {
					entryType domain.LedgerEntryType
					amount    decimal.Decimal
				}{
					{domain.LedgerPrincipal, split.Principal},
					{domain.LedgerInterest, split.Interest},
					{domain.LedgerFees, split.Fees},
				} {
					if posting.amount.IsZero() {
						continue
					}
					balance, err := s.participationRepo.LatestLedgerBalance(ctx, accountID, p.PartnerCode)
					if err != nil {
						return err
					}
					if _, err := s.participationRepo.CreateLedgerEntry(ctx, &domain.PartnerLedgerEntry{
						AccountID:   accountID,
						PartnerCode: p.PartnerCode,
						EntryDate:   valueDate,
						Type:        posting.entryType,
						Amount:      posting.amount,
						Balance:     balance.Add(posting.amount),
					}); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Int("participants", len(result)).
		Msg("Collection split across participants")
	return result, nil
}

// AccrueServicerFee accrues the originator's servicing fee from the last
// accrual date through asOf. The fee base is either total outstanding or the
// lender share of it.
func (s *ColendingService) AccrueServicerFee(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	var fee decimal.Decimal
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			arr, err := s.participationRepo.GetServicerArrangement(ctx, accountID)
			if err != nil {
				return err
			}
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			parts, err := s.participationRepo.GetByAccount(ctx, accountID)
			if err != nil {
				return err
			}

			from := account.DisbursementDate
			if arr.LastAccrued != nil {
				from = *arr.LastAccrued
			}
			days := int(asOf.Sub(from).Hours() / 24)
			if days <= 0 {
				return domain.E(domain.KindConflictingState, "servicer fee already accrued through date")
			}

			base := account.TotalOutstanding()
			if arr.FeeBase == domain.FeeBaseLenderShare {
				lenderPct := decimal.Zero
				for _, p := range parts {
					if p.Role == domain.RoleLender {
						lenderPct = lenderPct.Add(p.SharePercent)
					}
				}
				base = base.Mul(lenderPct).Div(decimal.NewFromInt(100))
			}

			fee = fincore.RoundMoney(base.
				Mul(arr.FeeRatePct).Div(decimal.NewFromInt(100)).
				Mul(decimal.NewFromInt(int64(days))).
				Div(decimal.NewFromInt(365)))

			originator := originatorOf(parts)
			if originator == "" {
				return domain.E(domain.KindConflictingState, "no originator participation on account")
			}

			// The fee is withheld from the lenders' interest share, so every
			// credit to the servicer carries matching lender debits and the
			// ledger stays conserved.
			for _, debit := range withholdFromLenders(fee, parts) {
				if err := s.post(ctx, accountID, debit.partnerCode, asOf, domain.LedgerServicerFee, debit.amount.Neg()); err != nil {
					return err
				}
			}
			if err := s.post(ctx, accountID, originator, asOf, domain.LedgerServicerFee, fee); err != nil {
				return err
			}

			accruedAt := asOf
			arr.LastAccrued = &accruedAt
			_, err = s.participationRepo.SaveServicerArrangement(ctx, arr)
			return err
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return fee, nil
}

// ExcessSpread computes and posts the originator's excess spread on a
// collected interest amount: the portion of interest above what the lender's
// yield entitles them to on their share.
func (s *ColendingService) ExcessSpread(ctx context.Context, accountID int64, valueDate time.Time, interestCollected decimal.Decimal) (decimal.Decimal, error) {
	if interestCollected.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.E(domain.KindInvalidInput, "interest collected must be positive")
	}

	var spread decimal.Decimal
	err := s.locks.WithLock(accountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return err
			}
			parts, err := s.participationRepo.GetByAccount(ctx, accountID)
			if err != nil {
				return err
			}

			var debits []partnerAmount
			total := decimal.Zero
			for _, p := range parts {
				if p.Role != domain.RoleLender || p.LenderYield == nil {
					continue
				}
				if account.InterestRate.LessThanOrEqual(*p.LenderYield) {
					continue
				}
				lenderInterest := interestCollected.
					Mul(p.SharePercent).Div(decimal.NewFromInt(100))
				portion := fincore.RoundMoney(lenderInterest.
					Mul(account.InterestRate.Sub(*p.LenderYield)).
					Div(account.InterestRate))
				if portion.IsPositive() {
					debits = append(debits, partnerAmount{p.PartnerCode, portion})
					total = total.Add(portion)
				}
			}
			spread = total
			if spread.LessThanOrEqual(decimal.Zero) {
				return nil
			}

			originator := originatorOf(parts)
			if originator == "" {
				return domain.E(domain.KindConflictingState, "no originator participation on account")
			}

			// Withheld from each lender's interest, credited to the servicer
			for _, debit := range debits {
				if err := s.post(ctx, accountID, debit.partnerCode, valueDate, domain.LedgerExcessSpread, debit.amount.Neg()); err != nil {
					return err
				}
			}
			return s.post(ctx, accountID, originator, valueDate, domain.LedgerExcessSpread, spread)
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return spread, nil
}

// Ledger returns one partner's posting history on an account
func (s *ColendingService) Ledger(ctx context.Context, accountID int64, partnerCode string) ([]*domain.PartnerLedgerEntry, error) {
	return s.participationRepo.ListLedger(ctx, accountID, partnerCode)
}

// Participations returns the participation structure of an account
func (s *ColendingService) Participations(ctx context.Context, accountID int64) ([]*domain.LoanParticipation, error) {
	return s.participationRepo.GetByAccount(ctx, accountID)
}

// post appends a signed ledger entry for one partner, carrying the running
// balance forward
func (s *ColendingService) post(ctx context.Context, accountID int64, partnerCode string, entryDate time.Time, entryType domain.LedgerEntryType, amount decimal.Decimal) error {
	balance, err := s.participationRepo.LatestLedgerBalance(ctx, accountID, partnerCode)
	if err != nil {
		return err
	}
	_, err = s.participationRepo.CreateLedgerEntry(ctx, &domain.PartnerLedgerEntry{
		AccountID:   accountID,
		PartnerCode: partnerCode,
		EntryDate:   entryDate,
		Type:        entryType,
		Amount:      amount,
		Balance:     balance.Add(amount),
	})
	return err
}

type partnerAmount struct {
	partnerCode string
	amount      decimal.Decimal
}

// withholdFromLenders apportions a withheld amount across lender
// participations pro-rata by share, the last lender taking the residual
func withholdFromLenders(amount decimal.Decimal, parts []*domain.LoanParticipation) []partnerAmount {
	var lenders []*domain.LoanParticipation
	lenderPct := decimal.Zero
	for _, p := range parts {
		if p.Role == domain.RoleLender {
			lenders = append(lenders, p)
			lenderPct = lenderPct.Add(p.SharePercent)
		}
	}
	if len(lenders) == 0 || !lenderPct.IsPositive() {
		return nil
	}

	out := make([]partnerAmount, len(lenders))
	allocated := decimal.Zero
	for i, p := range lenders {
		if i == len(lenders)-1 {
			out[i] = partnerAmount{p.PartnerCode, amount.Sub(allocated)}
			break
		}
		portion := fincore.RoundMoney(amount.Mul(p.SharePercent).Div(lenderPct))
		out[i] = partnerAmount{p.PartnerCode, portion}
		allocated = allocated.Add(portion)
	}
	return out
}

// splitByShare divides amount by participation shares, assigning the
// rounding residual to the last participant
func splitByShare(amount decimal.Decimal, parts []*domain.LoanParticipation) []decimal.Decimal {
	splits := make([]decimal.Decimal, len(parts))
	allocated := decimal.Zero
	for i, p := range parts {
		if i == len(parts)-1 {
			splits[i] = amount.Sub(allocated)
			break
		}
		splits[i] = fincore.RoundMoney(amount.Mul(p.SharePercent).Div(decimal.NewFromInt(100)))
		allocated = allocated.Add(splits[i])
	}
	return splits
}

func originatorOf(parts []*domain.LoanParticipation) string {
	for _, p := range parts {
		if p.Role == domain.RoleOriginator {
			return p.PartnerCode
		}
	}
	return ""
}
