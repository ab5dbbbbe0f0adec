package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// LifecycleRepository implements domain.LifecycleRepository using PostgreSQL
type LifecycleRepository struct {
	pool *pgxpool.Pool
}

// NewLifecycleRepository creates a new LifecycleRepository
func NewLifecycleRepository(pool *pgxpool.Pool) *LifecycleRepository {
	return &LifecycleRepository{pool: pool}
}

// CreateRestructureRequest inserts a pending change of terms
func (r *LifecycleRepository) CreateRestructureRequest(ctx context.Context, req *domain.RestructureRequest) (*domain.RestructureRequest, error) {
	newRate := pgtype.Numeric{}
	if req.NewRate != nil {
		var err error
		if newRate, err = decimalToPgNumeric(*req.NewRate); err != nil {
			return nil, err
		}
	}
	haircut := pgtype.Numeric{}
	if req.HaircutAmount != nil {
		var err error
		if haircut, err = decimalToPgNumeric(*req.HaircutAmount); err != nil {
			return nil, err
		}
	}
	installment := pgtype.Numeric{}
	if req.NewInstallment != nil {
		var err error
		if installment, err = decimalToPgNumeric(*req.NewInstallment); err != nil {
			return nil, err
		}
	}

	err := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO restructure_requests (
			account_id, type, new_rate, extension_periods, haircut_amount,
			new_installment, status, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, requested_at`,
		req.AccountID, string(req.Type), newRate, req.ExtensionPeriods, haircut,
		installment, string(req.Status), req.Reason,
	).Scan(&req.ID, &req.RequestedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetRestructureRequest retrieves a restructure request by ID
func (r *LifecycleRepository) GetRestructureRequest(ctx context.Context, id int64) (*domain.RestructureRequest, error) {
	var (
		req                   domain.RestructureRequest
		reqType, status       string
		newRate, haircut, emi pgtype.Numeric
		reason                pgtype.Text
		decidedAt, appliedAt  pgtype.Timestamptz
	)
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, type, new_rate, extension_periods, haircut_amount,
			new_installment, status, reason, requested_at, decided_at, applied_at
		FROM restructure_requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.AccountID, &reqType, &newRate, &req.ExtensionPeriods,
		&haircut, &emi, &status, &reason, &req.RequestedAt, &decidedAt, &appliedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRestructureNotFound
		}
		return nil, err
	}

	req.Type = domain.RestructureType(reqType)
	req.Status = domain.RestructureStatus(status)
	if newRate.Valid {
		v := pgNumericToDecimal(newRate)
		req.NewRate = &v
	}
	if haircut.Valid {
		v := pgNumericToDecimal(haircut)
		req.HaircutAmount = &v
	}
	if emi.Valid {
		v := pgNumericToDecimal(emi)
		req.NewInstallment = &v
	}
	if reason.Valid {
		req.Reason = reason.String
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	if appliedAt.Valid {
		req.AppliedAt = &appliedAt.Time
	}
	return &req, nil
}

// UpdateRestructureRequest persists the workflow state of a request
func (r *LifecycleRepository) UpdateRestructureRequest(ctx context.Context, req *domain.RestructureRequest) (*domain.RestructureRequest, error) {
	decidedAt := pgtype.Timestamptz{}
	if req.DecidedAt != nil {
		decidedAt.Time = *req.DecidedAt
		decidedAt.Valid = true
	}
	appliedAt := pgtype.Timestamptz{}
	if req.AppliedAt != nil {
		appliedAt.Time = *req.AppliedAt
		appliedAt.Valid = true
	}

	tag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE restructure_requests SET status = $2, reason = $3, decided_at = $4, applied_at = $5
		WHERE id = $1`,
		req.ID, string(req.Status), req.Reason, decidedAt, appliedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrRestructureNotFound
	}
	return req, nil
}

// CreateRestructureEvent records the before and after terms of an applied
// restructure
func (r *LifecycleRepository) CreateRestructureEvent(ctx context.Context, ev *domain.RestructureEvent) (*domain.RestructureEvent, error) {
	oldRate, err := decimalToPgNumeric(ev.OldRate)
	if err != nil {
		return nil, err
	}
	newRate, err := decimalToPgNumeric(ev.NewRate)
	if err != nil {
		return nil, err
	}
	oldBalance, err := decimalToPgNumeric(ev.OldBalance)
	if err != nil {
		return nil, err
	}
	newBalance, err := decimalToPgNumeric(ev.NewBalance)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO restructure_events (
			account_id, request_id, type, old_rate, new_rate, old_tenure,
			new_tenure, old_balance, new_balance, applied_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		ev.AccountID, ev.RequestID, string(ev.Type), oldRate, newRate,
		ev.OldTenure, ev.NewTenure, oldBalance, newBalance, ev.AppliedAt,
	).Scan(&ev.ID)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// CreatePrepaymentEvent records an applied prepayment
func (r *LifecycleRepository) CreatePrepaymentEvent(ctx context.Context, ev *domain.PrepaymentEvent) (*domain.PrepaymentEvent, error) {
	amount, err := decimalToPgNumeric(ev.Amount)
	if err != nil {
		return nil, err
	}
	penalty, err := decimalToPgNumeric(ev.Penalty)
	if err != nil {
		return nil, err
	}
	oldEMI, err := decimalToPgNumeric(ev.OldEMI)
	if err != nil {
		return nil, err
	}
	newEMI, err := decimalToPgNumeric(ev.NewEMI)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO prepayment_events (
			account_id, mode, amount, penalty, old_emi, new_emi,
			old_tenure, new_tenure, value_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		ev.AccountID, string(ev.Mode), amount, penalty, oldEMI, newEMI,
		ev.OldTenure, ev.NewTenure, ev.ValueDate,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// CreateWriteOff records a full or partial write-off
func (r *LifecycleRepository) CreateWriteOff(ctx context.Context, wo *domain.WriteOff) (*domain.WriteOff, error) {
	principal, err := decimalToPgNumeric(wo.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	interest, err := decimalToPgNumeric(wo.InterestAmount)
	if err != nil {
		return nil, err
	}
	fees, err := decimalToPgNumeric(wo.FeesAmount)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO write_offs (
			account_id, write_off_date, principal_amount, interest_amount,
			fees_amount, partial, dpd_at_write_off, npa_category, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		wo.AccountID, wo.WriteOffDate, principal, interest, fees,
		wo.Partial, wo.DPDAtWriteOff, wo.NPACategory, wo.Reason,
	).Scan(&wo.ID, &wo.CreatedAt)
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// GetWriteOff retrieves the most recent write-off on an account
func (r *LifecycleRepository) GetWriteOff(ctx context.Context, accountID int64) (*domain.WriteOff, error) {
	var (
		wo                        domain.WriteOff
		principal, interest, fees pgtype.Numeric
		category, reason          pgtype.Text
	)
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, write_off_date, principal_amount, interest_amount,
			fees_amount, partial, dpd_at_write_off, npa_category, reason, created_at
		FROM write_offs WHERE account_id = $1
		ORDER BY write_off_date DESC LIMIT 1`, accountID,
	).Scan(&wo.ID, &wo.AccountID, &wo.WriteOffDate, &principal, &interest,
		&fees, &wo.Partial, &wo.DPDAtWriteOff, &category, &reason, &wo.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	wo.PrincipalAmount = pgNumericToDecimal(principal)
	wo.InterestAmount = pgNumericToDecimal(interest)
	wo.FeesAmount = pgNumericToDecimal(fees)
	if category.Valid {
		wo.NPACategory = category.String
	}
	if reason.Valid {
		wo.Reason = reason.String
	}
	return &wo, nil
}

// CreateWriteOffRecovery records cash recovered after a write-off
func (r *LifecycleRepository) CreateWriteOffRecovery(ctx context.Context, rec *domain.WriteOffRecovery) (*domain.WriteOffRecovery, error) {
	amount, err := decimalToPgNumeric(rec.Amount)
	if err != nil {
		return nil, err
	}
	commission, err := decimalToPgNumeric(rec.AgencyCommission)
	if err != nil {
		return nil, err
	}
	net, err := decimalToPgNumeric(rec.Net)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO write_off_recoveries (
			write_off_id, account_id, recovery_date, amount, agency_commission, net
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.WriteOffID, rec.AccountID, rec.RecoveryDate, amount, commission, net,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateClosureEvent records how an account reached closed state
func (r *LifecycleRepository) CreateClosureEvent(ctx context.Context, ev *domain.ClosureEvent) (*domain.ClosureEvent, error) {
	amountPaid, err := decimalToPgNumeric(ev.AmountPaid)
	if err != nil {
		return nil, err
	}
	waived, err := decimalToPgNumeric(ev.WaivedAmount)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO closure_events (account_id, type, closure_date, amount_paid, waived_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		ev.AccountID, string(ev.Type), ev.ClosureDate, amountPaid, waived,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
