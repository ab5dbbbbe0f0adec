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

const delinquencyColumns = `id, account_id, as_of, dpd, bucket, npa, npa_category,
	overdue_principal, overdue_interest, overdue_fees, created_at`

// DelinquencyRepository implements domain.DelinquencyRepository using PostgreSQL
type DelinquencyRepository struct {
	pool *pgxpool.Pool
}

// NewDelinquencyRepository creates a new DelinquencyRepository
func NewDelinquencyRepository(pool *pgxpool.Pool) *DelinquencyRepository {
	return &DelinquencyRepository{pool: pool}
}

// Create inserts a daily delinquency snapshot
func (r *DelinquencyRepository) Create(ctx context.Context, snapshot *domain.DelinquencySnapshot) (*domain.DelinquencySnapshot, error) {
	principal, err := decimalToPgNumeric(snapshot.OverduePrincipal)
	if err != nil {
		return nil, err
	}
	interest, err := decimalToPgNumeric(snapshot.OverdueInterest)
	if err != nil {
		return nil, err
	}
	fees, err := decimalToPgNumeric(snapshot.OverdueFees)
	if err != nil {
		return nil, err
	}
	category := pgtype.Text{}
	if snapshot.NPACategory != "" {
		category.String = snapshot.NPACategory
		category.Valid = true
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO delinquency_snapshots (
			account_id, as_of, dpd, bucket, npa, npa_category,
			overdue_principal, overdue_interest, overdue_fees
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+delinquencyColumns,
		snapshot.AccountID, snapshot.AsOf, snapshot.DPD, snapshot.Bucket,
		snapshot.NPA, category, principal, interest, fees)
	return scanSnapshot(row)
}

// GetLatest retrieves the most recent snapshot of an account
func (r *DelinquencyRepository) GetLatest(ctx context.Context, accountID int64) (*domain.DelinquencySnapshot, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+delinquencyColumns+` FROM delinquency_snapshots
		WHERE account_id = $1 ORDER BY as_of DESC LIMIT 1`, accountID)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// ListByAccount retrieves the snapshots of an account inside a date range
func (r *DelinquencyRepository) ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.DelinquencySnapshot, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT `+delinquencyColumns+` FROM delinquency_snapshots
		WHERE account_id = $1 AND as_of BETWEEN $2 AND $3
		ORDER BY as_of`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.DelinquencySnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// BucketDistributionOn aggregates the latest snapshot per account on or
// before the date into per-bucket counts and overdue exposure
func (r *DelinquencyRepository) BucketDistributionOn(ctx context.Context, asOf time.Time) ([]*domain.BucketDistribution, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT bucket, count(*), coalesce(sum(overdue_principal + overdue_interest + overdue_fees), 0)
		FROM (
			SELECT DISTINCT ON (account_id) bucket, overdue_principal, overdue_interest, overdue_fees
			FROM delinquency_snapshots
			WHERE as_of <= $1
			ORDER BY account_id, as_of DESC
		) latest
		GROUP BY bucket
		ORDER BY bucket`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var distribution []*domain.BucketDistribution
	for rows.Next() {
		var (
			entry       domain.BucketDistribution
			outstanding pgtype.Numeric
		)
		if err := rows.Scan(&entry.Bucket, &entry.Accounts, &outstanding); err != nil {
			return nil, err
		}
		entry.Outstanding = pgNumericToDecimal(outstanding)
		distribution = append(distribution, &entry)
	}
	return distribution, rows.Err()
}

func scanSnapshot(row pgx.Row) (*domain.DelinquencySnapshot, error) {
	var (
		snapshot                  domain.DelinquencySnapshot
		principal, interest, fees pgtype.Numeric
		category                  pgtype.Text
	)
	err := row.Scan(&snapshot.ID, &snapshot.AccountID, &snapshot.AsOf, &snapshot.DPD,
		&snapshot.Bucket, &snapshot.NPA, &category, &principal, &interest, &fees,
		&snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}
	snapshot.OverduePrincipal = pgNumericToDecimal(principal)
	snapshot.OverdueInterest = pgNumericToDecimal(interest)
	snapshot.OverdueFees = pgNumericToDecimal(fees)
	if category.Valid {
		snapshot.NPACategory = category.String
	}
	return &snapshot, nil
}
