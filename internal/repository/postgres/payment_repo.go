package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create inserts a payment together with its allocations
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return nil, err
	}
	unallocated, err := decimalToPgNumeric(payment.Unallocated)
	if err != nil {
		return nil, err
	}

	db := q(ctx, r.pool)
	err = db.QueryRow(ctx, `
		INSERT INTO payments (account_id, external_ref, amount, channel, value_date, unallocated)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, received_at`,
		payment.AccountID, payment.ExternalRef, amount, payment.Channel, payment.ValueDate, unallocated,
	).Scan(&payment.ID, &payment.ReceivedAt)
	if err != nil {
		return nil, err
	}

	for _, alloc := range payment.Allocations {
		allocAmount, err := decimalToPgNumeric(alloc.Amount)
		if err != nil {
			return nil, err
		}
		err = db.QueryRow(ctx, `
			INSERT INTO payment_allocations (payment_id, row_id, period, component, amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			payment.ID, alloc.RowID, alloc.Period, string(alloc.Component), allocAmount,
		).Scan(&alloc.ID)
		if err != nil {
			return nil, err
		}
		alloc.PaymentID = payment.ID
	}
	return payment, nil
}

// GetByID retrieves a payment with its allocations
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, external_ref, amount, channel, value_date, unallocated, received_at
		FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if err := r.loadAllocations(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// GetByExternalRef retrieves a payment by its idempotency reference
func (r *PaymentRepository) GetByExternalRef(ctx context.Context, accountID int64, externalRef string) (*domain.Payment, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, external_ref, amount, channel, value_date, unallocated, received_at
		FROM payments WHERE account_id = $1 AND external_ref = $2`, accountID, externalRef)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if err := r.loadAllocations(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListByAccount retrieves all payments on an account, newest first
func (r *PaymentRepository) ListByAccount(ctx context.Context, accountID int64) ([]*domain.Payment, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, account_id, external_ref, amount, channel, value_date, unallocated, received_at
		FROM payments WHERE account_id = $1 ORDER BY value_date DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) loadAllocations(ctx context.Context, payment *domain.Payment) error {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, payment_id, row_id, period, component, amount
		FROM payment_allocations WHERE payment_id = $1 ORDER BY id`, payment.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			alloc     domain.PaymentAllocation
			component string
			amount    pgtype.Numeric
		)
		if err := rows.Scan(&alloc.ID, &alloc.PaymentID, &alloc.RowID, &alloc.Period, &component, &amount); err != nil {
			return err
		}
		alloc.Component = fincore.Component(component)
		alloc.Amount = pgNumericToDecimal(amount)
		payment.Allocations = append(payment.Allocations, &alloc)
	}
	return rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment             domain.Payment
		amount, unallocated pgtype.Numeric
	)
	err := row.Scan(&payment.ID, &payment.AccountID, &payment.ExternalRef,
		&amount, &payment.Channel, &payment.ValueDate, &unallocated, &payment.ReceivedAt)
	if err != nil {
		return nil, err
	}
	payment.Amount = pgNumericToDecimal(amount)
	payment.Unallocated = pgNumericToDecimal(unallocated)
	return &payment, nil
}
