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

// ECLRepository implements domain.ECLRepository using PostgreSQL
type ECLRepository struct {
	pool *pgxpool.Pool
}

// NewECLRepository creates a new ECLRepository
func NewECLRepository(pool *pgxpool.Pool) *ECLRepository {
	return &ECLRepository{pool: pool}
}

// CreateStaging records an account's impairment stage for a reporting date
func (r *ECLRepository) CreateStaging(ctx context.Context, staging *domain.ECLStaging) (*domain.ECLStaging, error) {
	err := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO ecl_stagings (account_id, as_of, stage, previous_stage, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		staging.AccountID, staging.AsOf, staging.Stage, staging.PreviousStage, staging.Reason,
	).Scan(&staging.ID, &staging.CreatedAt)
	if err != nil {
		return nil, err
	}
	return staging, nil
}

// GetLatestStaging retrieves the most recent staging of an account
func (r *ECLRepository) GetLatestStaging(ctx context.Context, accountID int64) (*domain.ECLStaging, error) {
	var staging domain.ECLStaging
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, as_of, stage, previous_stage, reason, created_at
		FROM ecl_stagings WHERE account_id = $1
		ORDER BY as_of DESC LIMIT 1`, accountID,
	).Scan(&staging.ID, &staging.AccountID, &staging.AsOf, &staging.Stage,
		&staging.PreviousStage, &staging.Reason, &staging.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &staging, nil
}

// CreateProvision records the expected credit loss computed for an account
func (r *ECLRepository) CreateProvision(ctx context.Context, provision *domain.ECLProvision) (*domain.ECLProvision, error) {
	ead, err := decimalToPgNumeric(provision.EAD)
	if err != nil {
		return nil, err
	}
	pd, err := decimalToPgNumeric(provision.PD)
	if err != nil {
		return nil, err
	}
	lgd, err := decimalToPgNumeric(provision.LGD)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(provision.Provision)
	if err != nil {
		return nil, err
	}
	opening, err := decimalToPgNumeric(provision.Opening)
	if err != nil {
		return nil, err
	}
	charge, err := decimalToPgNumeric(provision.Charge)
	if err != nil {
		return nil, err
	}
	release, err := decimalToPgNumeric(provision.Release)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO ecl_provisions (account_id, as_of, stage, ead, pd, lgd, opening, charge, release, provision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		provision.AccountID, provision.AsOf, provision.Stage, ead, pd, lgd, opening, charge, release, amount,
	).Scan(&provision.ID, &provision.CreatedAt)
	if err != nil {
		return nil, err
	}
	return provision, nil
}

// GetLatestProvision retrieves the most recent provision of an account
func (r *ECLRepository) GetLatestProvision(ctx context.Context, accountID int64) (*domain.ECLProvision, error) {
	var (
		provision                                      domain.ECLProvision
		ead, pd, lgd, opening, charge, release, amount pgtype.Numeric
	)
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, as_of, stage, ead, pd, lgd, opening, charge, release, provision, created_at
		FROM ecl_provisions WHERE account_id = $1
		ORDER BY as_of DESC LIMIT 1`, accountID,
	).Scan(&provision.ID, &provision.AccountID, &provision.AsOf, &provision.Stage,
		&ead, &pd, &lgd, &opening, &charge, &release, &amount, &provision.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	provision.EAD = pgNumericToDecimal(ead)
	provision.PD = pgNumericToDecimal(pd)
	provision.LGD = pgNumericToDecimal(lgd)
	provision.Opening = pgNumericToDecimal(opening)
	provision.Charge = pgNumericToDecimal(charge)
	provision.Release = pgNumericToDecimal(release)
	provision.Provision = pgNumericToDecimal(amount)
	return &provision, nil
}

// PortfolioSummaryOn aggregates provisions by stage for one reporting date
func (r *ECLRepository) PortfolioSummaryOn(ctx context.Context, asOf time.Time) ([]*domain.ECLPortfolioSummary, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT stage, count(*), coalesce(sum(ead), 0), coalesce(sum(provision), 0)
		FROM ecl_provisions WHERE as_of = $1
		GROUP BY stage ORDER BY stage`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary []*domain.ECLPortfolioSummary
	for rows.Next() {
		var (
			entry          domain.ECLPortfolioSummary
			ead, provision pgtype.Numeric
		)
		if err := rows.Scan(&entry.Stage, &entry.Accounts, &ead, &provision); err != nil {
			return nil, err
		}
		entry.EAD = pgNumericToDecimal(ead)
		entry.Provision = pgNumericToDecimal(provision)
		summary = append(summary, &entry)
	}
	return summary, rows.Err()
}
