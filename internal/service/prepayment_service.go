package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// PrepaymentService handles partial prepayments and foreclosure
type PrepaymentService struct {
	accountRepo   domain.LoanAccountRepository
	scheduleRepo  domain.ScheduleRepository
	lifecycleRepo domain.LifecycleRepository
	txManager     domain.TxManager
	locks         *AccountLocks
	penaltyRate   decimal.Decimal // percent of prepaid principal
}

// NewPrepaymentService creates a new PrepaymentService
func NewPrepaymentService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, lifecycleRepo domain.LifecycleRepository, txManager domain.TxManager, locks *AccountLocks, penaltyRate decimal.Decimal) *PrepaymentService {
	return &PrepaymentService{
		accountRepo:   accountRepo,
		scheduleRepo:  scheduleRepo,
		lifecycleRepo: lifecycleRepo,
		txManager:     txManager,
		locks:         locks,
		penaltyRate:   penaltyRate,
	}
}

// PrepaymentImpact previews both prepayment modes side by side
type PrepaymentImpact struct {
	CurrentEMI     decimal.Decimal `json:"currentEmi"`
	ReducedEMI     decimal.Decimal `json:"reducedEmi"`
	CurrentTenure  int             `json:"currentTenure"`
	ReducedTenure  int             `json:"reducedTenure"`
	InterestSaved  decimal.Decimal `json:"interestSaved"`
	PayoffAmount   decimal.Decimal `json:"payoffAmount"`
	Penalty        decimal.Decimal `json:"penalty"`
	RemainingAfter decimal.Decimal `json:"remainingAfter"`
}

// Impact computes the effect of prepaying amount without changing anything
func (s *PrepaymentService) Impact(ctx context.Context, accountID int64, amount decimal.Decimal) (*PrepaymentImpact, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindInvalidInput, "prepayment amount must be positive")
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsOpen() {
		return nil, domain.ErrAccountNotOpen
	}
	rows, err := s.scheduleRepo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	pos := schedulePosition(account, rows)
	if amount.GreaterThanOrEqual(pos.balance) {
		return nil, domain.E(domain.KindInvalidInput, "prepayment reaches payoff; use foreclosure")
	}

	ppy := account.Frequency.PeriodsPerYear()
	r := fincore.PeriodicRate(account.InterestRate, ppy)
	newBalance := pos.balance.Sub(amount)

	reducedEMI, err := fincore.EMI(newBalance, account.InterestRate, pos.remaining, ppy)
	if err != nil {
		return nil, err
	}
	reducedTenure, err := fincore.RemainingTenure(newBalance, pos.installment, r)
	if err != nil {
		return nil, err
	}

	// Interest saved under the tenure-reduction option
	oldInterest := remainingInterest(rows, pos.fromPeriod)
	newRows, err := fincore.GenerateFixedInstallment(newBalance, account.InterestRate, pos.installment, account.Frequency, pos.anchor)
	if err != nil {
		return nil, err
	}
	newInterest := decimal.Zero
	for _, row := range newRows {
		newInterest = newInterest.Add(row.InterestDue)
	}

	return &PrepaymentImpact{
		CurrentEMI:     pos.installment,
		ReducedEMI:     reducedEMI,
		CurrentTenure:  account.TenurePeriods,
		ReducedTenure:  pos.fromPeriod - 1 + reducedTenure,
		InterestSaved:  fincore.RoundMoney(oldInterest.Sub(newInterest)),
		PayoffAmount:   account.TotalOutstanding(),
		Penalty:        s.penalty(amount, false),
		RemainingAfter: newBalance,
	}, nil
}

// ApplyPrepaymentInput contains input for applying a prepayment
type ApplyPrepaymentInput struct {
	AccountID    int64
	Amount       decimal.Decimal
	Mode         domain.PrepaymentMode
	ValueDate    time.Time
	WaivePenalty bool
}

// Apply executes a prepayment. reduce_emi keeps the tenure and lowers the
// installment, reduce_tenure keeps the installment and shortens the loan,
// foreclosure settles everything and closes the account.
func (s *PrepaymentService) Apply(ctx context.Context, input ApplyPrepaymentInput) (*domain.PrepaymentEvent, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.E(domain.KindInvalidInput, "prepayment amount must be positive")
	}

	var event *domain.PrepaymentEvent
	err := s.locks.WithLock(input.AccountID, func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, input.AccountID)
			if err != nil {
				return err
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}
			rows, err := s.scheduleRepo.GetByAccount(ctx, input.AccountID)
			if err != nil {
				return err
			}
			pos := schedulePosition(account, rows)

			switch input.Mode {
			case domain.PrepayForeclose:
				event, err = s.foreclose(ctx, account, rows, input)
			case domain.PrepayReduceEMI, domain.PrepayReduceTenure:
				event, err = s.partial(ctx, account, pos, input)
			default:
				err = domain.E(domain.KindInvalidInput, "unknown prepayment mode")
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", input.AccountID).
		Str("mode", string(input.Mode)).
		Str("amount", input.Amount.String()).
		Msg("Prepayment applied")
	return event, nil
}

func (s *PrepaymentService) partial(ctx context.Context, account *domain.LoanAccount, pos position, input ApplyPrepaymentInput) (*domain.PrepaymentEvent, error) {
	if input.Amount.GreaterThanOrEqual(pos.balance) {
		return nil, domain.E(domain.KindInvalidInput, "prepayment reaches payoff; use foreclosure")
	}

	newBalance := pos.balance.Sub(input.Amount)
	var (
		generated []fincore.Installment
		newEMI    decimal.Decimal
		newTenure int
		err       error
	)

	if input.Mode == domain.PrepayReduceEMI {
		generated, err = fincore.GenerateSchedule(fincore.ScheduleSpec{
			Type:          fincore.ScheduleEMI,
			Principal:     newBalance,
			AnnualRatePct: account.InterestRate,
			Periods:       pos.remaining,
			Frequency:     account.Frequency,
			StartDate:     pos.anchor,
		})
		if err != nil {
			return nil, err
		}
		newTenure = account.TenurePeriods
	} else {
		generated, err = fincore.GenerateFixedInstallment(newBalance, account.InterestRate, pos.installment, account.Frequency, pos.anchor)
		if err != nil {
			return nil, err
		}
		newTenure = pos.fromPeriod - 1 + len(generated)
	}
	if len(generated) > 0 {
		newEMI = generated[0].TotalDue
	}

	newRows := toScheduleRows(account.ID, generated)
	for i, row := range newRows {
		row.Period = pos.fromPeriod + i
	}
	if err := s.scheduleRepo.ReplaceFromPeriod(ctx, account.ID, pos.fromPeriod, newRows); err != nil {
		return nil, err
	}

	account.OutstandingPrincipal = newBalance.Add(pos.carried)
	account.TenurePeriods = newTenure
	if _, err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	return s.lifecycleRepo.CreatePrepaymentEvent(ctx, &domain.PrepaymentEvent{
		AccountID: account.ID,
		Mode:      input.Mode,
		Amount:    input.Amount,
		Penalty:   s.penalty(input.Amount, input.WaivePenalty),
		OldEMI:    pos.installment,
		NewEMI:    newEMI,
		OldTenure: pos.oldTenure,
		NewTenure: newTenure,
		ValueDate: input.ValueDate,
	})
}

func (s *PrepaymentService) foreclose(ctx context.Context, account *domain.LoanAccount, rows []*domain.ScheduleRow, input ApplyPrepaymentInput) (*domain.PrepaymentEvent, error) {
	payoff := account.TotalOutstanding()
	penalty := s.penalty(account.OutstandingPrincipal, input.WaivePenalty)
	required := payoff.Add(penalty)
	if input.Amount.LessThan(required) {
		return nil, domain.E(domain.KindInvalidInput, "foreclosure amount below payoff plus penalty")
	}

	for _, row := range rows {
		if row.IsSettled() {
			continue
		}
		row.PrincipalPaid = row.PrincipalDue
		row.InterestPaid = row.InterestDue
		row.FeesPaid = row.FeeDue
		row.RefreshStatus(input.ValueDate)
		if err := s.scheduleRepo.UpdateRow(ctx, row); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	closure := domain.ClosureForeclosed
	account.Status = domain.AccountClosed
	account.ClosureType = &closure
	account.ClosedAt = &now
	account.OutstandingPrincipal = decimal.Zero
	account.OutstandingInterest = decimal.Zero
	account.OutstandingFees = decimal.Zero
	account.DPD = 0
	account.Bucket = domain.BucketCurrent
	account.NPA = false
	account.NPACategory = ""
	if _, err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	if _, err := s.lifecycleRepo.CreateClosureEvent(ctx, &domain.ClosureEvent{
		AccountID:    account.ID,
		Type:         domain.ClosureForeclosed,
		ClosureDate:  input.ValueDate,
		AmountPaid:   input.Amount,
		WaivedAmount: decimal.Zero,
	}); err != nil {
		return nil, err
	}

	return s.lifecycleRepo.CreatePrepaymentEvent(ctx, &domain.PrepaymentEvent{
		AccountID: account.ID,
		Mode:      domain.PrepayForeclose,
		Amount:    input.Amount,
		Penalty:   penalty,
		OldEMI:    decimal.Zero,
		NewEMI:    decimal.Zero,
		OldTenure: account.TenurePeriods,
		NewTenure: 0,
		ValueDate: input.ValueDate,
	})
}

func (s *PrepaymentService) penalty(principal decimal.Decimal, waived bool) decimal.Decimal {
	if waived || s.penaltyRate.IsZero() {
		return decimal.Zero
	}
	return fincore.RoundMoney(principal.Mul(s.penaltyRate).Div(decimal.NewFromInt(100)))
}

// position summarizes where an account stands in its schedule. carried is the
// unpaid principal of partially paid installments that stay billed as-is and
// are never regenerated.
type position struct {
	fromPeriod  int
	remaining   int
	oldTenure   int
	balance     decimal.Decimal
	carried     decimal.Decimal
	installment decimal.Decimal
	anchor      time.Time
}

func schedulePosition(account *domain.LoanAccount, rows []*domain.ScheduleRow) position {
	pos := position{
		fromPeriod: len(rows) + 1,
		oldTenure:  account.TenurePeriods,
		balance:    decimal.Zero,
		carried:    decimal.Zero,
		anchor:     account.DisbursementDate,
	}
	for _, row := range rows {
		if row.IsSettled() {
			pos.anchor = row.DueDate
			continue
		}
		if row.HasCollections() {
			// A partially paid installment keeps its billed dues and paid
			// amounts; regeneration starts after it
			pos.anchor = row.DueDate
			pos.fromPeriod = row.Period + 1
			pos.carried = pos.carried.Add(row.UnpaidPrincipal())
			continue
		}
		pos.fromPeriod = row.Period
		pos.installment = row.TotalDue
		break
	}
	for _, row := range rows {
		if row.Period >= pos.fromPeriod && row.Status != domain.InstallmentWaived {
			pos.balance = pos.balance.Add(row.UnpaidPrincipal())
		}
	}
	pos.remaining = account.TenurePeriods - pos.fromPeriod + 1
	return pos
}

func remainingInterest(rows []*domain.ScheduleRow, fromPeriod int) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Period >= fromPeriod && !row.IsSettled() {
			total = total.Add(row.UnpaidInterest())
		}
	}
	return total
}
