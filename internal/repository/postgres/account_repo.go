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

const accountColumns = `id, account_number, product_code, borrower_ref, principal, interest_rate,
	rate_type, benchmark_code, spread, rate_floor, rate_cap, schedule_type, frequency,
	tenure_periods, day_count, secured, disbursement_date, status, outstanding_principal,
	outstanding_interest, outstanding_fees, dpd, bucket, npa, npa_category, restructured,
	closure_type, closed_at, created_at, updated_at`

// LoanAccountRepository implements domain.LoanAccountRepository using PostgreSQL
type LoanAccountRepository struct {
	pool *pgxpool.Pool
}

// NewLoanAccountRepository creates a new LoanAccountRepository
func NewLoanAccountRepository(pool *pgxpool.Pool) *LoanAccountRepository {
	return &LoanAccountRepository{pool: pool}
}

// Create inserts a new loan account
func (r *LoanAccountRepository) Create(ctx context.Context, account *domain.LoanAccount) (*domain.LoanAccount, error) {
	principal, err := decimalToPgNumeric(account.Principal)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(account.InterestRate)
	if err != nil {
		return nil, err
	}
	spread, err := decimalToPgNumeric(account.Spread)
	if err != nil {
		return nil, err
	}
	outstanding, err := decimalToPgNumeric(account.OutstandingPrincipal)
	if err != nil {
		return nil, err
	}

	floor := pgtype.Numeric{}
	if account.RateFloor != nil {
		if floor, err = decimalToPgNumeric(*account.RateFloor); err != nil {
			return nil, err
		}
	}
	cap := pgtype.Numeric{}
	if account.RateCap != nil {
		if cap, err = decimalToPgNumeric(*account.RateCap); err != nil {
			return nil, err
		}
	}
	benchmark := pgtype.Text{}
	if account.BenchmarkCode != nil {
		benchmark.String = *account.BenchmarkCode
		benchmark.Valid = true
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO loan_accounts (
			account_number, product_code, borrower_ref, principal, interest_rate,
			rate_type, benchmark_code, spread, rate_floor, rate_cap, schedule_type,
			frequency, tenure_periods, day_count, secured, disbursement_date, status,
			outstanding_principal, outstanding_interest, outstanding_fees, dpd, bucket
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 0, 0, $19, $20)
		RETURNING `+accountColumns,
		account.AccountNumber, account.ProductCode, account.BorrowerRef, principal, rate,
		string(account.RateType), benchmark, spread, floor, cap, string(account.ScheduleType),
		string(account.Frequency), account.TenurePeriods, string(account.DayCount),
		account.Secured, account.DisbursementDate, string(account.Status),
		outstanding, account.DPD, account.Bucket)
	return scanAccount(row)
}

// GetByID retrieves a loan account by its ID
func (r *LoanAccountRepository) GetByID(ctx context.Context, id int64) (*domain.LoanAccount, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+` FROM loan_accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetByAccountNumber retrieves a loan account by its account number
func (r *LoanAccountRepository) GetByAccountNumber(ctx context.Context, number string) (*domain.LoanAccount, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+accountColumns+` FROM loan_accounts WHERE account_number = $1`, number)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// Update persists the mutable state of a loan account
func (r *LoanAccountRepository) Update(ctx context.Context, account *domain.LoanAccount) (*domain.LoanAccount, error) {
	rate, err := decimalToPgNumeric(account.InterestRate)
	if err != nil {
		return nil, err
	}
	outstandingPrincipal, err := decimalToPgNumeric(account.OutstandingPrincipal)
	if err != nil {
		return nil, err
	}
	outstandingInterest, err := decimalToPgNumeric(account.OutstandingInterest)
	if err != nil {
		return nil, err
	}
	outstandingFees, err := decimalToPgNumeric(account.OutstandingFees)
	if err != nil {
		return nil, err
	}

	closureType := pgtype.Text{}
	if account.ClosureType != nil {
		closureType.String = string(*account.ClosureType)
		closureType.Valid = true
	}
	closedAt := pgtype.Timestamptz{}
	if account.ClosedAt != nil {
		closedAt.Time = *account.ClosedAt
		closedAt.Valid = true
	}
	npaCategory := pgtype.Text{}
	if account.NPACategory != "" {
		npaCategory.String = account.NPACategory
		npaCategory.Valid = true
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		UPDATE loan_accounts SET
			interest_rate = $2, tenure_periods = $3, status = $4,
			outstanding_principal = $5, outstanding_interest = $6, outstanding_fees = $7,
			dpd = $8, bucket = $9, npa = $10, npa_category = $11, restructured = $12,
			closure_type = $13, closed_at = $14, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID, rate, account.TenurePeriods, string(account.Status),
		outstandingPrincipal, outstandingInterest, outstandingFees,
		account.DPD, account.Bucket, account.NPA, npaCategory, account.Restructured,
		closureType, closedAt)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ListActiveIDs returns the IDs of every active account, ordered for
// deterministic batch dispatch
func (r *LoanAccountRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id FROM loan_accounts WHERE status = $1 ORDER BY id`, string(domain.AccountActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByStatus retrieves all accounts in a lifecycle state
func (r *LoanAccountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.LoanAccount, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT `+accountColumns+` FROM loan_accounts WHERE status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.LoanAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.LoanAccount, error) {
	var (
		account                             domain.LoanAccount
		principal, rate, spread             pgtype.Numeric
		floor, cap                          pgtype.Numeric
		outPrincipal, outInterest, outFees  pgtype.Numeric
		rateType, scheduleType, frequency   string
		dayCount, status                    string
		benchmark, npaCategory, closureType pgtype.Text
		closedAt                            pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID, &account.AccountNumber, &account.ProductCode, &account.BorrowerRef,
		&principal, &rate, &rateType, &benchmark, &spread, &floor, &cap,
		&scheduleType, &frequency, &account.TenurePeriods, &dayCount, &account.Secured,
		&account.DisbursementDate, &status, &outPrincipal, &outInterest, &outFees,
		&account.DPD, &account.Bucket, &account.NPA, &npaCategory, &account.Restructured,
		&closureType, &closedAt, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Principal = pgNumericToDecimal(principal)
	account.InterestRate = pgNumericToDecimal(rate)
	account.Spread = pgNumericToDecimal(spread)
	account.OutstandingPrincipal = pgNumericToDecimal(outPrincipal)
	account.OutstandingInterest = pgNumericToDecimal(outInterest)
	account.OutstandingFees = pgNumericToDecimal(outFees)
	account.RateType = domain.RateType(rateType)
	account.ScheduleType = fincore.ScheduleType(scheduleType)
	account.Frequency = fincore.Frequency(frequency)
	account.DayCount = fincore.DayCount(dayCount)
	account.Status = domain.AccountStatus(status)

	if benchmark.Valid {
		account.BenchmarkCode = &benchmark.String
	}
	if floor.Valid {
		f := pgNumericToDecimal(floor)
		account.RateFloor = &f
	}
	if cap.Valid {
		c := pgNumericToDecimal(cap)
		account.RateCap = &c
	}
	if npaCategory.Valid {
		account.NPACategory = npaCategory.String
	}
	if closureType.Valid {
		ct := domain.ClosureType(closureType.String)
		account.ClosureType = &ct
	}
	if closedAt.Valid {
		account.ClosedAt = &closedAt.Time
	}
	return &account, nil
}
