package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvayfin/lms-backend/internal/domain"
)

const fldgColumns = `id, program_code, partner_code, structure, cover_percent, absolute_cap,
	portfolio_amount, first_loss_threshold, trigger_dpd, utilized, recovered, created_at, updated_at`

// FLDGRepository implements domain.FLDGRepository using PostgreSQL
type FLDGRepository struct {
	pool *pgxpool.Pool
}

// NewFLDGRepository creates a new FLDGRepository
func NewFLDGRepository(pool *pgxpool.Pool) *FLDGRepository {
	return &FLDGRepository{pool: pool}
}

// CreateArrangement inserts a guarantee arrangement
func (r *FLDGRepository) CreateArrangement(ctx context.Context, arr *domain.FLDGArrangement) (*domain.FLDGArrangement, error) {
	cover, err := decimalToPgNumeric(arr.CoverPercent)
	if err != nil {
		return nil, err
	}
	capAmount, err := decimalToPgNumeric(arr.AbsoluteCap)
	if err != nil {
		return nil, err
	}
	portfolio, err := decimalToPgNumeric(arr.PortfolioAmount)
	if err != nil {
		return nil, err
	}
	threshold, err := decimalToPgNumeric(arr.FirstLossThreshold)
	if err != nil {
		return nil, err
	}
	utilized, err := decimalToPgNumeric(arr.Utilized)
	if err != nil {
		return nil, err
	}
	recovered, err := decimalToPgNumeric(arr.Recovered)
	if err != nil {
		return nil, err
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO fldg_arrangements (
			program_code, partner_code, structure, cover_percent, absolute_cap,
			portfolio_amount, first_loss_threshold, trigger_dpd, utilized, recovered
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+fldgColumns,
		arr.ProgramCode, arr.PartnerCode, string(arr.Structure), cover, capAmount,
		portfolio, threshold, arr.TriggerDPD, utilized, recovered)
	return scanFLDGArrangement(row)
}

// GetArrangement retrieves an arrangement by ID
func (r *FLDGRepository) GetArrangement(ctx context.Context, id int64) (*domain.FLDGArrangement, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+fldgColumns+` FROM fldg_arrangements WHERE id = $1`, id)
	arr, err := scanFLDGArrangement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return arr, nil
}

// GetArrangementByProgram retrieves an arrangement by program code
func (r *FLDGRepository) GetArrangementByProgram(ctx context.Context, programCode string) (*domain.FLDGArrangement, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+fldgColumns+` FROM fldg_arrangements WHERE program_code = $1`, programCode)
	arr, err := scanFLDGArrangement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return arr, nil
}

// UpdateArrangement persists the utilization counters of an arrangement
func (r *FLDGRepository) UpdateArrangement(ctx context.Context, arr *domain.FLDGArrangement) (*domain.FLDGArrangement, error) {
	utilized, err := decimalToPgNumeric(arr.Utilized)
	if err != nil {
		return nil, err
	}
	recovered, err := decimalToPgNumeric(arr.Recovered)
	if err != nil {
		return nil, err
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		UPDATE fldg_arrangements SET utilized = $2, recovered = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+fldgColumns, arr.ID, utilized, recovered)
	updated, err := scanFLDGArrangement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

// CreateUtilization records one claim against the pool
func (r *FLDGRepository) CreateUtilization(ctx context.Context, u *domain.FLDGUtilization) (*domain.FLDGUtilization, error) {
	claimed, err := decimalToPgNumeric(u.Claimed)
	if err != nil {
		return nil, err
	}
	honored, err := decimalToPgNumeric(u.Honored)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO fldg_utilizations (arrangement_id, account_id, claim_date, reason, claimed, honored)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		u.ArrangementID, u.AccountID, u.ClaimDate, string(u.Reason), claimed, honored,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUtilizations retrieves the claims drawn on an arrangement
func (r *FLDGRepository) ListUtilizations(ctx context.Context, arrangementID int64) ([]*domain.FLDGUtilization, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, arrangement_id, account_id, claim_date, reason, claimed, honored, created_at
		FROM fldg_utilizations WHERE arrangement_id = $1 ORDER BY id`, arrangementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var utilizations []*domain.FLDGUtilization
	for rows.Next() {
		var (
			u                domain.FLDGUtilization
			reason           string
			claimed, honored pgtype.Numeric
		)
		if err := rows.Scan(&u.ID, &u.ArrangementID, &u.AccountID, &u.ClaimDate,
			&reason, &claimed, &honored, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Reason = domain.FLDGClaimReason(reason)
		u.Claimed = pgNumericToDecimal(claimed)
		u.Honored = pgNumericToDecimal(honored)
		utilizations = append(utilizations, &u)
	}
	return utilizations, rows.Err()
}

// CreateRecovery records a post-claim recovery
func (r *FLDGRepository) CreateRecovery(ctx context.Context, rec *domain.FLDGRecovery) (*domain.FLDGRecovery, error) {
	amount, err := decimalToPgNumeric(rec.Amount)
	if err != nil {
		return nil, err
	}
	replenished, err := decimalToPgNumeric(rec.Replenished)
	if err != nil {
		return nil, err
	}
	toLender, err := decimalToPgNumeric(rec.ToLender)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO fldg_recoveries (arrangement_id, account_id, recovery_date, amount, replenished, to_lender)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.ArrangementID, rec.AccountID, rec.RecoveryDate, amount, replenished, toLender,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecoveries retrieves the recoveries routed through an arrangement
func (r *FLDGRepository) ListRecoveries(ctx context.Context, arrangementID int64) ([]*domain.FLDGRecovery, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, arrangement_id, account_id, recovery_date, amount, replenished, to_lender, created_at
		FROM fldg_recoveries WHERE arrangement_id = $1 ORDER BY id`, arrangementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recoveries []*domain.FLDGRecovery
	for rows.Next() {
		var (
			rec                           domain.FLDGRecovery
			amount, replenished, toLender pgtype.Numeric
		)
		if err := rows.Scan(&rec.ID, &rec.ArrangementID, &rec.AccountID, &rec.RecoveryDate,
			&amount, &replenished, &toLender, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Amount = pgNumericToDecimal(amount)
		rec.Replenished = pgNumericToDecimal(replenished)
		rec.ToLender = pgNumericToDecimal(toLender)
		recoveries = append(recoveries, &rec)
	}
	return recoveries, rows.Err()
}

func scanFLDGArrangement(row pgx.Row) (*domain.FLDGArrangement, error) {
	var (
		arr                            domain.FLDGArrangement
		structure                      string
		cover, capAmount, portfolio    pgtype.Numeric
		threshold, utilized, recovered pgtype.Numeric
	)
	err := row.Scan(&arr.ID, &arr.ProgramCode, &arr.PartnerCode, &structure,
		&cover, &capAmount, &portfolio, &threshold, &arr.TriggerDPD,
		&utilized, &recovered, &arr.CreatedAt, &arr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	arr.Structure = domain.FLDGStructure(structure)
	arr.CoverPercent = pgNumericToDecimal(cover)
	arr.AbsoluteCap = pgNumericToDecimal(capAmount)
	arr.PortfolioAmount = pgNumericToDecimal(portfolio)
	arr.FirstLossThreshold = pgNumericToDecimal(threshold)
	arr.Utilized = pgNumericToDecimal(utilized)
	arr.Recovered = pgNumericToDecimal(recovered)
	return &arr, nil
}
