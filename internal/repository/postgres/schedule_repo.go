package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvayfin/lms-backend/internal/domain"
)

const scheduleColumns = `id, account_id, period, due_date, opening_balance, principal_due,
	interest_due, fee_due, total_due, closing_balance, principal_paid, interest_paid,
	fees_paid, status, paid_at, created_at, updated_at`

// ScheduleRepository implements domain.ScheduleRepository using PostgreSQL
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// ReplaceForAccount swaps the full schedule of an account
func (r *ScheduleRepository) ReplaceForAccount(ctx context.Context, accountID int64, rows []*domain.ScheduleRow) error {
	db := q(ctx, r.pool)
	if _, err := db.Exec(ctx, `DELETE FROM schedule_rows WHERE account_id = $1`, accountID); err != nil {
		return err
	}
	return r.insertRows(ctx, db, rows)
}

// ReplaceFromPeriod swaps the schedule tail from a period onward, keeping the
// settled history before it
func (r *ScheduleRepository) ReplaceFromPeriod(ctx context.Context, accountID int64, fromPeriod int, rows []*domain.ScheduleRow) error {
	db := q(ctx, r.pool)
	if _, err := db.Exec(ctx, `
		DELETE FROM schedule_rows WHERE account_id = $1 AND period >= $2`, accountID, fromPeriod); err != nil {
		return err
	}
	return r.insertRows(ctx, db, rows)
}

func (r *ScheduleRepository) insertRows(ctx context.Context, db querier, rows []*domain.ScheduleRow) error {
	for _, row := range rows {
		opening, err := decimalToPgNumeric(row.OpeningBalance)
		if err != nil {
			return err
		}
		principalDue, err := decimalToPgNumeric(row.PrincipalDue)
		if err != nil {
			return err
		}
		interestDue, err := decimalToPgNumeric(row.InterestDue)
		if err != nil {
			return err
		}
		feeDue, err := decimalToPgNumeric(row.FeeDue)
		if err != nil {
			return err
		}
		totalDue, err := decimalToPgNumeric(row.TotalDue)
		if err != nil {
			return err
		}
		closing, err := decimalToPgNumeric(row.ClosingBalance)
		if err != nil {
			return err
		}
		principalPaid, err := decimalToPgNumeric(row.PrincipalPaid)
		if err != nil {
			return err
		}
		interestPaid, err := decimalToPgNumeric(row.InterestPaid)
		if err != nil {
			return err
		}
		feesPaid, err := decimalToPgNumeric(row.FeesPaid)
		if err != nil {
			return err
		}

		status := row.Status
		if status == "" {
			status = domain.InstallmentPending
		}

		err = db.QueryRow(ctx, `
			INSERT INTO schedule_rows (
				account_id, period, due_date, opening_balance, principal_due, interest_due,
				fee_due, total_due, closing_balance, principal_paid, interest_paid, fees_paid, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id`,
			row.AccountID, row.Period, row.DueDate, opening, principalDue, interestDue,
			feeDue, totalDue, closing, principalPaid, interestPaid, feesPaid, string(status),
		).Scan(&row.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetByAccount retrieves the full schedule of an account ordered by period
func (r *ScheduleRepository) GetByAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	rows, err := r.list(ctx, `
		SELECT `+scheduleColumns+` FROM schedule_rows
		WHERE account_id = $1 ORDER BY period`, accountID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrScheduleNotFound
	}
	return rows, nil
}

// GetUnpaidByAccount retrieves the rows still owing, ordered by period
func (r *ScheduleRepository) GetUnpaidByAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	return r.list(ctx, `
		SELECT `+scheduleColumns+` FROM schedule_rows
		WHERE account_id = $1 AND status IN ($2, $3) ORDER BY period`,
		accountID, string(domain.InstallmentPending), string(domain.InstallmentPartial))
}

func (r *ScheduleRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.ScheduleRow, error) {
	rows, err := q(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ScheduleRow
	for rows.Next() {
		row, err := scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpdateRow persists the paid amounts and status of one installment
func (r *ScheduleRepository) UpdateRow(ctx context.Context, row *domain.ScheduleRow) error {
	principalPaid, err := decimalToPgNumeric(row.PrincipalPaid)
	if err != nil {
		return err
	}
	interestPaid, err := decimalToPgNumeric(row.InterestPaid)
	if err != nil {
		return err
	}
	feesPaid, err := decimalToPgNumeric(row.FeesPaid)
	if err != nil {
		return err
	}
	paidAt := pgtype.Timestamptz{}
	if row.PaidAt != nil {
		paidAt.Time = *row.PaidAt
		paidAt.Valid = true
	}

	tag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE schedule_rows SET
			principal_paid = $2, interest_paid = $3, fees_paid = $4,
			status = $5, paid_at = $6, updated_at = now()
		WHERE id = $1`,
		row.ID, principalPaid, interestPaid, feesPaid, string(row.Status), paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func scanScheduleRow(row pgx.Row) (*domain.ScheduleRow, error) {
	var (
		sr                                    domain.ScheduleRow
		opening, principalDue, interestDue    pgtype.Numeric
		feeDue, totalDue, closing             pgtype.Numeric
		principalPaid, interestPaid, feesPaid pgtype.Numeric
		status                                string
		paidAt                                pgtype.Timestamptz
	)

	err := row.Scan(
		&sr.ID, &sr.AccountID, &sr.Period, &sr.DueDate, &opening, &principalDue,
		&interestDue, &feeDue, &totalDue, &closing, &principalPaid, &interestPaid,
		&feesPaid, &status, &paidAt, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sr.OpeningBalance = pgNumericToDecimal(opening)
	sr.PrincipalDue = pgNumericToDecimal(principalDue)
	sr.InterestDue = pgNumericToDecimal(interestDue)
	sr.FeeDue = pgNumericToDecimal(feeDue)
	sr.TotalDue = pgNumericToDecimal(totalDue)
	sr.ClosingBalance = pgNumericToDecimal(closing)
	sr.PrincipalPaid = pgNumericToDecimal(principalPaid)
	sr.InterestPaid = pgNumericToDecimal(interestPaid)
	sr.FeesPaid = pgNumericToDecimal(feesPaid)
	sr.Status = domain.InstallmentStatus(status)
	if paidAt.Valid {
		sr.PaidAt = &paidAt.Time
	}
	return &sr, nil
}
