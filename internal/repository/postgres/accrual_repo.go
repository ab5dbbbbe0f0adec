package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvayfin/lms-backend/internal/domain"
)

const accrualColumns = `id, account_id, accrual_date, base, rate, amount, cumulative, status, created_at`

// AccrualRepository implements domain.AccrualRepository using PostgreSQL
type AccrualRepository struct {
	pool *pgxpool.Pool
}

// NewAccrualRepository creates a new AccrualRepository
func NewAccrualRepository(pool *pgxpool.Pool) *AccrualRepository {
	return &AccrualRepository{pool: pool}
}

// Create inserts one daily accrual
func (r *AccrualRepository) Create(ctx context.Context, accrual *domain.InterestAccrual) (*domain.InterestAccrual, error) {
	base, err := decimalToPgNumeric(accrual.Base)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(accrual.Rate)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(accrual.Amount)
	if err != nil {
		return nil, err
	}
	cumulative, err := decimalToPgNumeric(accrual.Cumulative)
	if err != nil {
		return nil, err
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO interest_accruals (account_id, accrual_date, base, rate, amount, cumulative, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+accrualColumns,
		accrual.AccountID, accrual.AccrualDate, base, rate, amount, cumulative, string(accrual.Status))
	return scanAccrual(row)
}

// GetByAccountAndDate retrieves the accrual booked for one account and date
func (r *AccrualRepository) GetByAccountAndDate(ctx context.Context, accountID int64, date time.Time) (*domain.InterestAccrual, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accrualColumns+` FROM interest_accruals
		WHERE account_id = $1 AND accrual_date = $2`, accountID, date)
	accrual, err := scanAccrual(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return accrual, nil
}

// GetLatest retrieves the most recent accrual on an account
func (r *AccrualRepository) GetLatest(ctx context.Context, accountID int64) (*domain.InterestAccrual, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accrualColumns+` FROM interest_accruals
		WHERE account_id = $1 ORDER BY accrual_date DESC LIMIT 1`, accountID)
	accrual, err := scanAccrual(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return accrual, nil
}

// ListByAccount retrieves the accruals of an account inside a date range
func (r *AccrualRepository) ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.InterestAccrual, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT `+accrualColumns+` FROM interest_accruals
		WHERE account_id = $1 AND accrual_date BETWEEN $2 AND $3
		ORDER BY accrual_date`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accruals []*domain.InterestAccrual
	for rows.Next() {
		accrual, err := scanAccrual(rows)
		if err != nil {
			return nil, err
		}
		accruals = append(accruals, accrual)
	}
	return accruals, rows.Err()
}

// MarkPosted flips accrued entries to posted through a date and returns how
// many were updated
func (r *AccrualRepository) MarkPosted(ctx context.Context, accountID int64, through time.Time) (int64, error) {
	tag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE interest_accruals SET status = $3
		WHERE account_id = $1 AND accrual_date <= $2 AND status = $4`,
		accountID, through, string(domain.AccrualPosted), string(domain.AccrualAccrued))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAccrual(row pgx.Row) (*domain.InterestAccrual, error) {
	var (
		accrual                        domain.InterestAccrual
		base, rate, amount, cumulative pgtype.Numeric
		status                         string
	)
	err := row.Scan(&accrual.ID, &accrual.AccountID, &accrual.AccrualDate,
		&base, &rate, &amount, &cumulative, &status, &accrual.CreatedAt)
	if err != nil {
		return nil, err
	}
	accrual.Base = pgNumericToDecimal(base)
	accrual.Rate = pgNumericToDecimal(rate)
	accrual.Amount = pgNumericToDecimal(amount)
	accrual.Cumulative = pgNumericToDecimal(cumulative)
	accrual.Status = domain.AccrualStatus(status)
	return &accrual, nil
}
