package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// ParticipationRepository implements domain.ParticipationRepository using PostgreSQL
type ParticipationRepository struct {
	pool *pgxpool.Pool
}

// NewParticipationRepository creates a new ParticipationRepository
func NewParticipationRepository(pool *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{pool: pool}
}

// CreateAll inserts every participation of a co-lent account
func (r *ParticipationRepository) CreateAll(ctx context.Context, parts []*domain.LoanParticipation) error {
	db := q(ctx, r.pool)
	for _, part := range parts {
		share, err := decimalToPgNumeric(part.SharePercent)
		if err != nil {
			return err
		}
		yield := pgtype.Numeric{}
		if part.LenderYield != nil {
			if yield, err = decimalToPgNumeric(*part.LenderYield); err != nil {
				return err
			}
		}
		err = db.QueryRow(ctx, `
			INSERT INTO loan_participations (account_id, partner_code, role, share_percent, lender_yield)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`,
			part.AccountID, part.PartnerCode, string(part.Role), share, yield,
		).Scan(&part.ID, &part.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetByAccount retrieves the participations of an account
func (r *ParticipationRepository) GetByAccount(ctx context.Context, accountID int64) ([]*domain.LoanParticipation, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, account_id, partner_code, role, share_percent, lender_yield, created_at
		FROM loan_participations WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []*domain.LoanParticipation
	for rows.Next() {
		var (
			part  domain.LoanParticipation
			role  string
			share pgtype.Numeric
			yield pgtype.Numeric
		)
		if err := rows.Scan(&part.ID, &part.AccountID, &part.PartnerCode, &role,
			&share, &yield, &part.CreatedAt); err != nil {
			return nil, err
		}
		part.Role = domain.ParticipantRole(role)
		part.SharePercent = pgNumericToDecimal(share)
		if yield.Valid {
			y := pgNumericToDecimal(yield)
			part.LenderYield = &y
		}
		parts = append(parts, &part)
	}
	return parts, rows.Err()
}

// CreateLedgerEntry posts one entry on a partner's running ledger
func (r *ParticipationRepository) CreateLedgerEntry(ctx context.Context, entry *domain.PartnerLedgerEntry) (*domain.PartnerLedgerEntry, error) {
	amount, err := decimalToPgNumeric(entry.Amount)
	if err != nil {
		return nil, err
	}
	balance, err := decimalToPgNumeric(entry.Balance)
	if err != nil {
		return nil, err
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO partner_ledger (account_id, partner_code, entry_date, type, amount, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.AccountID, entry.PartnerCode, entry.EntryDate, string(entry.Type), amount, balance,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LatestLedgerBalance returns the running balance after the newest posting,
// zero when the ledger is empty
func (r *ParticipationRepository) LatestLedgerBalance(ctx context.Context, accountID int64, partnerCode string) (decimal.Decimal, error) {
	var balance pgtype.Numeric
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT balance FROM partner_ledger
		WHERE account_id = $1 AND partner_code = $2
		ORDER BY id DESC LIMIT 1`, accountID, partnerCode).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return pgNumericToDecimal(balance), nil
}

// ListLedger retrieves a partner's postings on an account in order
func (r *ParticipationRepository) ListLedger(ctx context.Context, accountID int64, partnerCode string) ([]*domain.PartnerLedgerEntry, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, account_id, partner_code, entry_date, type, amount, balance, created_at
		FROM partner_ledger
		WHERE account_id = $1 AND partner_code = $2 ORDER BY id`, accountID, partnerCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.PartnerLedgerEntry
	for rows.Next() {
		var (
			entry           domain.PartnerLedgerEntry
			entryType       string
			amount, balance pgtype.Numeric
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PartnerCode,
			&entry.EntryDate, &entryType, &amount, &balance, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Type = domain.LedgerEntryType(entryType)
		entry.Amount = pgNumericToDecimal(amount)
		entry.Balance = pgNumericToDecimal(balance)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// GetServicerArrangement retrieves the servicing terms of an account
func (r *ParticipationRepository) GetServicerArrangement(ctx context.Context, accountID int64) (*domain.ServicerArrangement, error) {
	var (
		arr         domain.ServicerArrangement
		rate        pgtype.Numeric
		base        string
		lastAccrued pgtype.Timestamptz
	)
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, fee_rate_pct, fee_base, last_accrued, created_at
		FROM servicer_arrangements WHERE account_id = $1`, accountID,
	).Scan(&arr.ID, &arr.AccountID, &rate, &base, &lastAccrued, &arr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	arr.FeeRatePct = pgNumericToDecimal(rate)
	arr.FeeBase = domain.ServicerFeeBase(base)
	if lastAccrued.Valid {
		arr.LastAccrued = &lastAccrued.Time
	}
	return &arr, nil
}

// SaveServicerArrangement inserts or updates the servicing terms of an account
func (r *ParticipationRepository) SaveServicerArrangement(ctx context.Context, arr *domain.ServicerArrangement) (*domain.ServicerArrangement, error) {
	rate, err := decimalToPgNumeric(arr.FeeRatePct)
	if err != nil {
		return nil, err
	}
	lastAccrued := pgtype.Timestamptz{}
	if arr.LastAccrued != nil {
		lastAccrued.Time = *arr.LastAccrued
		lastAccrued.Valid = true
	}

	err = q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO servicer_arrangements (account_id, fee_rate_pct, fee_base, last_accrued)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			fee_rate_pct = EXCLUDED.fee_rate_pct,
			fee_base = EXCLUDED.fee_base,
			last_accrued = EXCLUDED.last_accrued
		RETURNING id, created_at`,
		arr.AccountID, rate, string(arr.FeeBase), lastAccrued,
	).Scan(&arr.ID, &arr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return arr, nil
}
