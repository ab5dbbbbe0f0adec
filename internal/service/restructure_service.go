package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// RestructureService runs the restructure workflow: request, decision, and
// forward-only schedule regeneration
type RestructureService struct {
	accountRepo   domain.LoanAccountRepository
	scheduleRepo  domain.ScheduleRepository
	lifecycleRepo domain.LifecycleRepository
	txManager     domain.TxManager
	locks         *AccountLocks
}

// NewRestructureService creates a new RestructureService
func NewRestructureService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, lifecycleRepo domain.LifecycleRepository, txManager domain.TxManager, locks *AccountLocks) *RestructureService {
	return &RestructureService{
		accountRepo:   accountRepo,
		scheduleRepo:  scheduleRepo,
		lifecycleRepo: lifecycleRepo,
		txManager:     txManager,
		locks:         locks,
	}
}

// Request files a restructure proposal for decision
func (s *RestructureService) Request(ctx context.Context, req *domain.RestructureRequest) (*domain.RestructureRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsOpen() {
		return nil, domain.ErrAccountNotOpen
	}

	req.Status = domain.RestructurePending
	req.RequestedAt = time.Now().UTC()
	return s.lifecycleRepo.CreateRestructureRequest(ctx, req)
}

// Approve marks a pending request approved
func (s *RestructureService) Approve(ctx context.Context, requestID int64) (*domain.RestructureRequest, error) {
	return s.decide(ctx, requestID, domain.RestructureApproved)
}

// Reject marks a pending request rejected
func (s *RestructureService) Reject(ctx context.Context, requestID int64, reason string) (*domain.RestructureRequest, error) {
	req, err := s.decide(ctx, requestID, domain.RestructureRejected)
	if err != nil {
		return nil, err
	}
	req.Reason = reason
	return s.lifecycleRepo.UpdateRestructureRequest(ctx, req)
}

func (s *RestructureService) decide(ctx context.Context, requestID int64, status domain.RestructureStatus) (*domain.RestructureRequest, error) {
	req, err := s.lifecycleRepo.GetRestructureRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RestructurePending {
		return nil, domain.ErrRestructureDecided
	}
	now := time.Now().UTC()
	req.Status = status
	req.DecidedAt = &now
	return s.lifecycleRepo.UpdateRestructureRequest(ctx, req)
}

// Apply regenerates the schedule under the approved terms. Paid installments
// are preserved; only unpaid periods are rebuilt. The account is flagged
// restructured regardless of the change applied.
func (s *RestructureService) Apply(ctx context.Context, requestID int64) (*domain.RestructureEvent, error) {
	req, err := s.lifecycleRepo.GetRestructureRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RestructureApproved {
		return nil, domain.Wrap(domain.KindConflictingState, "restructure request is not approved", domain.ErrRestructureDecided)
	}

	var event *domain.RestructureEvent
	err = s.locks.WithLock(req.AccountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, req.AccountID)
			if err != nil {
				return err
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			rows, err := s.scheduleRepo.GetByAccount(ctx, req.AccountID)
			if err != nil {
				return err
			}

			plan, err := buildRestructurePlan(account, req, rows)
			if err != nil {
				return err
			}

			if err := s.scheduleRepo.ReplaceFromPeriod(ctx, account.ID, plan.fromPeriod, plan.rows); err != nil {
				return err
			}

			oldRate := account.InterestRate
			oldTenure := account.TenurePeriods
			account.InterestRate = plan.newRate
			account.TenurePeriods = plan.newTenure
			account.Restructured = true
			account.OutstandingPrincipal = plan.newBalance.Add(plan.carried)
			if _, err := s.accountRepo.Update(ctx, account); err != nil {
				return err
			}

			now := time.Now().UTC()
			req.Status = domain.RestructureApplied
			req.AppliedAt = &now
			if _, err := s.lifecycleRepo.UpdateRestructureRequest(ctx, req); err != nil {
				return err
			}

			event = &domain.RestructureEvent{
				AccountID:  account.ID,
				RequestID:  req.ID,
				Type:       req.Type,
				OldRate:    oldRate,
				NewRate:    plan.newRate,
				OldTenure:  oldTenure,
				NewTenure:  plan.newTenure,
				OldBalance: plan.oldBalance,
				NewBalance: plan.newBalance,
				AppliedAt:  now,
			}
			created, err := s.lifecycleRepo.CreateRestructureEvent(ctx, event)
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
		Int64("account_id", event.AccountID).
		Str("type", string(event.Type)).
		Str("old_rate", event.OldRate.String()).
		Str("new_rate", event.NewRate.String()).
		Msg("Restructure applied")
	return event, nil
}

type restructurePlan struct {
	fromPeriod int
	rows       []*domain.ScheduleRow
	newRate    decimal.Decimal
	newTenure  int
	oldBalance decimal.Decimal
	newBalance decimal.Decimal
	carried    decimal.Decimal // unpaid principal on preserved partial rows
}

// buildRestructurePlan derives the new terms and regenerates the unpaid tail
// of the schedule
func buildRestructurePlan(account *domain.LoanAccount, req *domain.RestructureRequest, rows []*domain.ScheduleRow) (*restructurePlan, error) {
	fromPeriod := len(rows) + 1
	balance := decimal.Zero
	carried := decimal.Zero
	anchor := account.DisbursementDate
	for _, row := range rows {
		if row.IsSettled() {
			anchor = row.DueDate
			continue
		}
		if row.HasCollections() {
			// A partially paid installment keeps its billed dues and paid
			// amounts; the new terms take effect from the next period
			anchor = row.DueDate
			fromPeriod = row.Period + 1
			carried = carried.Add(row.UnpaidPrincipal())
			continue
		}
		fromPeriod = row.Period
		break
	}
	for _, row := range rows {
		if row.Period >= fromPeriod && row.Status != domain.InstallmentWaived {
			balance = balance.Add(row.UnpaidPrincipal())
		}
	}
	if balance.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindConflictingState, "no unpaid principal to restructure")
	}

	oldBalance := balance
	newRate := account.InterestRate
	remaining := account.TenurePeriods - fromPeriod + 1

	if req.NewRate != nil {
		newRate = *req.NewRate
	}
	if req.ExtensionPeriods > 0 {
		remaining += req.ExtensionPeriods
	}
	if req.HaircutAmount != nil {
		balance = balance.Sub(*req.HaircutAmount)
		if balance.LessThanOrEqual(decimal.Zero) {
			return nil, domain.E(domain.KindInvalidInput, "haircut exceeds unpaid principal")
		}
	}

	var (
		generated []fincore.Installment
		err       error
	)
	if req.Type == domain.RestructureEMIReschedule {
		generated, err = fincore.GenerateFixedInstallment(balance, newRate, *req.NewInstallment, account.Frequency, anchor)
		if err != nil {
			return nil, domain.Wrap(domain.KindInvalidInput, "reschedule installment", err)
		}
		remaining = len(generated)
	} else {
		generated, err = fincore.GenerateSchedule(fincore.ScheduleSpec{
			Type:          fincore.ScheduleEMI,
			Principal:     balance,
			AnnualRatePct: newRate,
			Periods:       remaining,
			Frequency:     account.Frequency,
			StartDate:     anchor,
		})
		if err != nil {
			return nil, domain.Wrap(domain.KindInvalidInput, "regenerate schedule", err)
		}
	}

	newRows := toScheduleRows(account.ID, generated)
	for i, row := range newRows {
		row.Period = fromPeriod + i
	}

	return &restructurePlan{
		fromPeriod: fromPeriod,
		rows:       newRows,
		newRate:    newRate,
		newTenure:  fromPeriod - 1 + remaining,
		oldBalance: oldBalance,
		newBalance: balance,
		carried:    carried,
	}, nil
}

// RestructureImpact compares the current terms with a proposal without
// applying anything
type RestructureImpact struct {
	CurrentInstallment  decimal.Decimal `json:"currentInstallment"`
	ProposedInstallment decimal.Decimal `json:"proposedInstallment"`
	CurrentTenure       int             `json:"currentTenure"`
	ProposedTenure      int             `json:"proposedTenure"`
	CurrentRate         decimal.Decimal `json:"currentRate"`
	ProposedRate        decimal.Decimal `json:"proposedRate"`
}

// Impact previews the effect of a restructure proposal
func (s *RestructureService) Impact(ctx context.Context, req *domain.RestructureRequest) (*RestructureImpact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.scheduleRepo.GetByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	plan, err := buildRestructurePlan(account, req, rows)
	if err != nil {
		return nil, err
	}

	ppy := account.Frequency.PeriodsPerYear()
	remaining := account.TenurePeriods - plan.fromPeriod + 1
	current, err := fincore.EMI(plan.oldBalance, account.InterestRate, remaining, ppy)
	if err != nil {
		return nil, err
	}

	proposed := decimal.Zero
	if len(plan.rows) > 0 {
		proposed = plan.rows[0].TotalDue
	}

	return &RestructureImpact{
		CurrentInstallment:  current,
		ProposedInstallment: proposed,
		CurrentTenure:       account.TenurePeriods,
		ProposedTenure:      plan.newTenure,
		CurrentRate:         account.InterestRate,
		ProposedRate:        plan.newRate,
	}, nil
}
