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

// BenchmarkRepository implements domain.BenchmarkRepository using PostgreSQL
type BenchmarkRepository struct {
	pool *pgxpool.Pool
}

// NewBenchmarkRepository creates a new BenchmarkRepository
func NewBenchmarkRepository(pool *pgxpool.Pool) *BenchmarkRepository {
	return &BenchmarkRepository{pool: pool}
}

// Upsert publishes a fixing, correcting any earlier publication for the same
// code and date
func (r *BenchmarkRepository) Upsert(ctx context.Context, rate *domain.BenchmarkRate) (*domain.BenchmarkRate, error) {
	value, err := decimalToPgNumeric(rate.Rate)
	if err != nil {
		return nil, err
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO benchmark_rates (code, effective_date, rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (code, effective_date) DO UPDATE SET rate = EXCLUDED.rate
		RETURNING id, code, effective_date, rate, created_at`,
		rate.Code, rate.EffectiveDate, value)
	return scanBenchmark(row)
}

// ResolveOn returns the fixing effective on the date, falling back to the
// latest earlier publication
func (r *BenchmarkRepository) ResolveOn(ctx context.Context, code string, date time.Time) (*domain.BenchmarkRate, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, code, effective_date, rate, created_at FROM benchmark_rates
		WHERE code = $1 AND effective_date <= $2
		ORDER BY effective_date DESC LIMIT 1`, code, date)
	fixing, err := scanBenchmark(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBenchmarkUnavailable
		}
		return nil, err
	}
	return fixing, nil
}

// RecordReset stores a repricing applied to a floating rate account
func (r *BenchmarkRepository) RecordReset(ctx context.Context, reset *domain.RateReset) (*domain.RateReset, error) {
	oldRate, err := decimalToPgNumeric(reset.OldRate)
	if err != nil {
		return nil, err
	}
	newRate, err := decimalToPgNumeric(reset.NewRate)
	if err != nil {
		return nil, err
	}
	benchmark, err := decimalToPgNumeric(reset.Benchmark)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO rate_resets (account_id, reset_date, old_rate, new_rate, benchmark)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		reset.AccountID, reset.ResetDate, oldRate, newRate, benchmark,
	).Scan(&reset.ID, &reset.CreatedAt)
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// ListResets retrieves the repricing history of an account
func (r *BenchmarkRepository) ListResets(ctx context.Context, accountID int64) ([]*domain.RateReset, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, account_id, reset_date, old_rate, new_rate, benchmark, created_at
		FROM rate_resets WHERE account_id = $1 ORDER BY reset_date`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resets []*domain.RateReset
	for rows.Next() {
		var (
			reset                    domain.RateReset
			oldRate, newRate, fixing pgtype.Numeric
		)
		if err := rows.Scan(&reset.ID, &reset.AccountID, &reset.ResetDate,
			&oldRate, &newRate, &fixing, &reset.CreatedAt); err != nil {
			return nil, err
		}
		reset.OldRate = pgNumericToDecimal(oldRate)
		reset.NewRate = pgNumericToDecimal(newRate)
		reset.Benchmark = pgNumericToDecimal(fixing)
		resets = append(resets, &reset)
	}
	return resets, rows.Err()
}

func scanBenchmark(row pgx.Row) (*domain.BenchmarkRate, error) {
	var (
		rate  domain.BenchmarkRate
		value pgtype.Numeric
	)
	err := row.Scan(&rate.ID, &rate.Code, &rate.EffectiveDate, &value, &rate.CreatedAt)
	if err != nil {
		return nil, err
	}
	rate.Rate = pgNumericToDecimal(value)
	return &rate, nil
}
