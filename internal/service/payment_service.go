package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
	ws "github.com/anvayfin/lms-backend/internal/websocket"
)

// PaymentService applies collections to loan accounts through the component
// waterfall
type PaymentService struct {
	accountRepo  domain.LoanAccountRepository
	scheduleRepo domain.ScheduleRepository
	paymentRepo  domain.PaymentRepository
	accrualRepo  domain.AccrualRepository
	txManager    domain.TxManager
	locks        *AccountLocks
	waterfall    fincore.WaterfallPolicy
	publisher    ws.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, paymentRepo domain.PaymentRepository, accrualRepo domain.AccrualRepository, txManager domain.TxManager, locks *AccountLocks, waterfall fincore.WaterfallPolicy, publisher ws.EventPublisher) *PaymentService {
	if publisher == nil {
		publisher = &ws.NoOpPublisher{}
	}
	return &PaymentService{
		accountRepo:  accountRepo,
		scheduleRepo: scheduleRepo,
		paymentRepo:  paymentRepo,
		accrualRepo:  accrualRepo,
		txManager:    txManager,
		locks:        locks,
		waterfall:    waterfall,
		publisher:    publisher,
	}
}

// ApplyPaymentInput contains input for applying a payment
type ApplyPaymentInput struct {
	AccountID   int64
	ExternalRef string // generated when empty
	Amount      decimal.Decimal
	Channel     string // defaults to "manual"
	ValueDate   time.Time
}

// PaymentResult is the outcome of applying a payment. Replayed is true when
// the external reference had already been processed and the stored result is
// returned unchanged.
type PaymentResult struct {
	Payment  *domain.Payment `json:"payment"`
	Replayed bool            `json:"replayed"`
}

// ApplyPayment allocates a collection across unpaid installments, oldest due
// first, each installment's components in waterfall order. The whole
// operation runs under the account lock in a single transaction and is
// idempotent by external reference.
func (s *PaymentService) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*PaymentResult, error) {
	if input.ExternalRef == "" {
		input.ExternalRef = uuid.New().String()
	}
	if input.Channel == "" {
		input.Channel = "manual"
	}

	payment := &domain.Payment{
		AccountID:   input.AccountID,
		ExternalRef: input.ExternalRef,
		Amount:      input.Amount,
		Channel:     input.Channel,
		ValueDate:   input.ValueDate,
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	var result *PaymentResult
	err := s.locks.WithLock(input.AccountID, func() error {
		existing, err := s.paymentRepo.GetByExternalRef(ctx, input.AccountID, input.ExternalRef)
		if err == nil && existing != nil {
			result = &PaymentResult{Payment: existing, Replayed: true}
			return nil
		}

		return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
			account, err := s.accountRepo.GetByID(ctx, input.AccountID)
			if err != nil {
				return err
			}
			if !account.IsOpen() {
				return domain.ErrAccountNotOpen
			}

			rows, err := s.scheduleRepo.GetUnpaidByAccount(ctx, input.AccountID)
			if err != nil {
				return err
			}

			allocations, remainder := s.allocate(payment, rows)
			payment.Unallocated = remainder
			payment.Allocations = allocations

			created, err := s.paymentRepo.Create(ctx, payment)
			if err != nil {
				return err
			}
			created.Allocations = allocations

			for _, row := range rows {
				row.RefreshStatus(input.ValueDate)
				if err := s.scheduleRepo.UpdateRow(ctx, row); err != nil {
					return err
				}
			}

			if err := s.refreshAccount(ctx, account, input.ValueDate); err != nil {
				return err
			}

			if _, err := s.accrualRepo.MarkPosted(ctx, account.ID, input.ValueDate); err != nil {
				return err
			}

			result = &PaymentResult{Payment: created}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		s.publisher.Publish(ws.TopicOperations, ws.PaymentApplied(result.Payment))
		log.Info().
			Int64("account_id", input.AccountID).
			Str("external_ref", input.ExternalRef).
			Str("amount", input.Amount.String()).
			Msg("Payment applied")
	}
	return result, nil
}

// allocate walks unpaid rows oldest first, mutating paid amounts and
// collecting allocation records
func (s *PaymentService) allocate(payment *domain.Payment, rows []*domain.ScheduleRow) ([]*domain.PaymentAllocation, decimal.Decimal) {
	remaining := payment.Amount
	var allocations []*domain.PaymentAllocation

	for _, row := range rows {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if row.IsSettled() {
			continue
		}

		due := fincore.Dues{
			Fees:      row.UnpaidFees(),
			Interest:  row.UnpaidInterest(),
			Principal: row.UnpaidPrincipal(),
		}
		applied, left := s.waterfall.Allocate(remaining, due)

		for _, a := range applied {
			switch a.Component {
			case fincore.ComponentFees:
				row.FeesPaid = row.FeesPaid.Add(a.Amount)
			case fincore.ComponentInterest:
				row.InterestPaid = row.InterestPaid.Add(a.Amount)
			case fincore.ComponentPrincipal:
				row.PrincipalPaid = row.PrincipalPaid.Add(a.Amount)
			}
			allocations = append(allocations, &domain.PaymentAllocation{
				RowID:     row.ID,
				Period:    row.Period,
				Component: a.Component,
				Amount:    a.Amount,
			})
		}
		remaining = left
	}
	return allocations, remaining
}

// refreshAccount recomputes outstanding components and DPD from the schedule
func (s *PaymentService) refreshAccount(ctx context.Context, account *domain.LoanAccount, asOf time.Time) error {
	rows, err := s.scheduleRepo.GetByAccount(ctx, account.ID)
	if err != nil {
		return err
	}

	principal, interest, fees := decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.Status == domain.InstallmentWaived {
			continue
		}
		principal = principal.Add(row.UnpaidPrincipal())
		interest = interest.Add(row.UnpaidInterest())
		fees = fees.Add(row.UnpaidFees())
	}
	account.OutstandingPrincipal = principal
	account.OutstandingInterest = interest
	account.OutstandingFees = fees
	account.DPD = DPDFromRows(rows, asOf)

	_, err = s.accountRepo.Update(ctx, account)
	return err
}
