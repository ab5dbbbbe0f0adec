package testutil

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// dateKey normalizes a time to a per-day map key
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MockTxManager runs the function directly without a real transaction
type MockTxManager struct {
	Calls int
}

// WithinTx invokes fn with the unchanged context
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// MockLoanAccountRepository is a mock implementation of domain.LoanAccountRepository
type MockLoanAccountRepository struct {
	Accounts map[int64]*domain.LoanAccount
	ByNumber map[string]*domain.LoanAccount
	NextID   int64
	UpdateFn func(account *domain.LoanAccount) (*domain.LoanAccount, error)
}

// NewMockLoanAccountRepository creates a new MockLoanAccountRepository
func NewMockLoanAccountRepository() *MockLoanAccountRepository {
	return &MockLoanAccountRepository{
		Accounts: make(map[int64]*domain.LoanAccount),
		ByNumber: make(map[string]*domain.LoanAccount),
		NextID:   1,
	}
}

// Create creates a new loan account
func (m *MockLoanAccountRepository) Create(ctx context.Context, account *domain.LoanAccount) (*domain.LoanAccount, error) {
	account.ID = m.NextID
	m.NextID++
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	m.Accounts[account.ID] = account
	m.ByNumber[account.AccountNumber] = account
	return account, nil
}

// GetByID retrieves a loan account by ID
func (m *MockLoanAccountRepository) GetByID(ctx context.Context, id int64) (*domain.LoanAccount, error) {
	if account, ok := m.Accounts[id]; ok {
		return account, nil
	}
	return nil, domain.ErrAccountNotFound
}

// GetByAccountNumber retrieves a loan account by its account number
func (m *MockLoanAccountRepository) GetByAccountNumber(ctx context.Context, number string) (*domain.LoanAccount, error) {
	if account, ok := m.ByNumber[number]; ok {
		return account, nil
	}
	return nil, domain.ErrAccountNotFound
}

// Update updates an existing loan account
func (m *MockLoanAccountRepository) Update(ctx context.Context, account *domain.LoanAccount) (*domain.LoanAccount, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(account)
	}
	if _, ok := m.Accounts[account.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	m.Accounts[account.ID] = account
	m.ByNumber[account.AccountNumber] = account
	return account, nil
}

// ListActiveIDs lists the IDs of all active accounts in ID order
func (m *MockLoanAccountRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	for id, account := range m.Accounts {
		if account.Status == domain.AccountActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ListByStatus lists accounts in a given status in ID order
func (m *MockLoanAccountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.LoanAccount, error) {
	accounts := make([]*domain.LoanAccount, 0)
	for _, account := range m.Accounts {
		if account.Status == status {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// AddAccount adds an account to the mock repository (helper for tests)
func (m *MockLoanAccountRepository) AddAccount(account *domain.LoanAccount) {
	if account.ID == 0 {
		account.ID = m.NextID
		m.NextID++
	} else if account.ID >= m.NextID {
		m.NextID = account.ID + 1
	}
	m.Accounts[account.ID] = account
	m.ByNumber[account.AccountNumber] = account
}

// MockScheduleRepository is a mock implementation of domain.ScheduleRepository
type MockScheduleRepository struct {
	Rows   map[int64][]*domain.ScheduleRow // keyed by account ID
	NextID int64
}

// NewMockScheduleRepository creates a new MockScheduleRepository
func NewMockScheduleRepository() *MockScheduleRepository {
	return &MockScheduleRepository{
		Rows:   make(map[int64][]*domain.ScheduleRow),
		NextID: 1,
	}
}

// ReplaceForAccount replaces the whole schedule of an account
func (m *MockScheduleRepository) ReplaceForAccount(ctx context.Context, accountID int64, rows []*domain.ScheduleRow) error {
	for _, row := range rows {
		row.ID = m.NextID
		m.NextID++
		row.AccountID = accountID
	}
	m.Rows[accountID] = rows
	m.sortRows(accountID)
	return nil
}

// ReplaceFromPeriod replaces the schedule tail from the given period onward
func (m *MockScheduleRepository) ReplaceFromPeriod(ctx context.Context, accountID int64, fromPeriod int, rows []*domain.ScheduleRow) error {
	kept := make([]*domain.ScheduleRow, 0)
	for _, row := range m.Rows[accountID] {
		if row.Period < fromPeriod {
			kept = append(kept, row)
		}
	}
	for _, row := range rows {
		row.ID = m.NextID
		m.NextID++
		row.AccountID = accountID
		kept = append(kept, row)
	}
	m.Rows[accountID] = kept
	m.sortRows(accountID)
	return nil
}

// GetByAccount returns the full schedule ordered by period
func (m *MockScheduleRepository) GetByAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	rows, ok := m.Rows[accountID]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return rows, nil
}

// GetUnpaidByAccount returns unsettled rows ordered by period
func (m *MockScheduleRepository) GetUnpaidByAccount(ctx context.Context, accountID int64) ([]*domain.ScheduleRow, error) {
	rows, ok := m.Rows[accountID]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	unpaid := make([]*domain.ScheduleRow, 0)
	for _, row := range rows {
		if !row.IsSettled() {
			unpaid = append(unpaid, row)
		}
	}
	return unpaid, nil
}

// UpdateRow updates one schedule row
func (m *MockScheduleRepository) UpdateRow(ctx context.Context, row *domain.ScheduleRow) error {
	for i, existing := range m.Rows[row.AccountID] {
		if existing.ID == row.ID {
			m.Rows[row.AccountID][i] = row
			return nil
		}
	}
	return domain.ErrScheduleNotFound
}

func (m *MockScheduleRepository) sortRows(accountID int64) {
	rows := m.Rows[accountID]
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository
type MockPaymentRepository struct {
	Payments map[int64]*domain.Payment
	ByRef    map[string]*domain.Payment // keyed by accountID + "/" + externalRef
	NextID   int64
}

// NewMockPaymentRepository creates a new MockPaymentRepository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		Payments: make(map[int64]*domain.Payment),
		ByRef:    make(map[string]*domain.Payment),
		NextID:   1,
	}
}

func refKey(accountID int64, ref string) string {
	return strconv.FormatInt(accountID, 10) + "/" + ref
}

// Create creates a new payment with its allocations
func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	payment.ID = m.NextID
	m.NextID++
	payment.ReceivedAt = time.Now().UTC()
	for _, alloc := range payment.Allocations {
		alloc.PaymentID = payment.ID
	}
	m.Payments[payment.ID] = payment
	m.ByRef[refKey(payment.AccountID, payment.ExternalRef)] = payment
	return payment, nil
}

// GetByID retrieves a payment by ID
func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	if payment, ok := m.Payments[id]; ok {
		return payment, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// GetByExternalRef retrieves a payment by its idempotency reference
func (m *MockPaymentRepository) GetByExternalRef(ctx context.Context, accountID int64, externalRef string) (*domain.Payment, error) {
	if payment, ok := m.ByRef[refKey(accountID, externalRef)]; ok {
		return payment, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// ListByAccount lists payments for an account in ID order
func (m *MockPaymentRepository) ListByAccount(ctx context.Context, accountID int64) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0)
	for _, payment := range m.Payments {
		if payment.AccountID == accountID {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// MockAccrualRepository is a mock implementation of domain.AccrualRepository
type MockAccrualRepository struct {
	Accruals map[int64][]*domain.InterestAccrual // keyed by account ID, date order
	NextID   int64
}

// NewMockAccrualRepository creates a new MockAccrualRepository
func NewMockAccrualRepository() *MockAccrualRepository {
	return &MockAccrualRepository{
		Accruals: make(map[int64][]*domain.InterestAccrual),
		NextID:   1,
	}
}

// Create creates a new accrual
func (m *MockAccrualRepository) Create(ctx context.Context, accrual *domain.InterestAccrual) (*domain.InterestAccrual, error) {
	accrual.ID = m.NextID
	m.NextID++
	accrual.CreatedAt = time.Now().UTC()
	m.Accruals[accrual.AccountID] = append(m.Accruals[accrual.AccountID], accrual)
	sort.Slice(m.Accruals[accrual.AccountID], func(i, j int) bool {
		return m.Accruals[accrual.AccountID][i].AccrualDate.Before(m.Accruals[accrual.AccountID][j].AccrualDate)
	})
	return accrual, nil
}

// GetByAccountAndDate retrieves the accrual for an account on a date
func (m *MockAccrualRepository) GetByAccountAndDate(ctx context.Context, accountID int64, date time.Time) (*domain.InterestAccrual, error) {
	for _, accrual := range m.Accruals[accountID] {
		if dateKey(accrual.AccrualDate) == dateKey(date) {
			return accrual, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetLatest retrieves the most recent accrual for an account
func (m *MockAccrualRepository) GetLatest(ctx context.Context, accountID int64) (*domain.InterestAccrual, error) {
	accruals := m.Accruals[accountID]
	if len(accruals) == 0 {
		return nil, domain.ErrNotFound
	}
	return accruals[len(accruals)-1], nil
}

// ListByAccount lists accruals for an account within a date range
func (m *MockAccrualRepository) ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.InterestAccrual, error) {
	result := make([]*domain.InterestAccrual, 0)
	for _, accrual := range m.Accruals[accountID] {
		if accrual.AccrualDate.Before(from) || accrual.AccrualDate.After(to) {
			continue
		}
		result = append(result, accrual)
	}
	return result, nil
}

// MarkPosted marks accrued entries posted through the date, returning the count
func (m *MockAccrualRepository) MarkPosted(ctx context.Context, accountID int64, through time.Time) (int64, error) {
	var count int64
	for _, accrual := range m.Accruals[accountID] {
		if accrual.Status == domain.AccrualAccrued && !accrual.AccrualDate.After(through) {
			accrual.Status = domain.AccrualPosted
			count++
		}
	}
	return count, nil
}

// MockBenchmarkRepository is a mock implementation of domain.BenchmarkRepository
type MockBenchmarkRepository struct {
	Fixings map[string][]*domain.BenchmarkRate // keyed by code, date order
	Resets  map[int64][]*domain.RateReset      // keyed by account ID
	NextID  int64
}

// NewMockBenchmarkRepository creates a new MockBenchmarkRepository
func NewMockBenchmarkRepository() *MockBenchmarkRepository {
	return &MockBenchmarkRepository{
		Fixings: make(map[string][]*domain.BenchmarkRate),
		Resets:  make(map[int64][]*domain.RateReset),
		NextID:  1,
	}
}

// Upsert publishes or corrects a fixing
func (m *MockBenchmarkRepository) Upsert(ctx context.Context, rate *domain.BenchmarkRate) (*domain.BenchmarkRate, error) {
	for _, existing := range m.Fixings[rate.Code] {
		if dateKey(existing.EffectiveDate) == dateKey(rate.EffectiveDate) {
			existing.Rate = rate.Rate
			return existing, nil
		}
	}
	rate.ID = m.NextID
	m.NextID++
	rate.CreatedAt = time.Now().UTC()
	m.Fixings[rate.Code] = append(m.Fixings[rate.Code], rate)
	sort.Slice(m.Fixings[rate.Code], func(i, j int) bool {
		return m.Fixings[rate.Code][i].EffectiveDate.Before(m.Fixings[rate.Code][j].EffectiveDate)
	})
	return rate, nil
}

// ResolveOn returns the fixing effective on the date, falling back to the
// latest earlier publication
func (m *MockBenchmarkRepository) ResolveOn(ctx context.Context, code string, date time.Time) (*domain.BenchmarkRate, error) {
	fixings := m.Fixings[code]
	var best *domain.BenchmarkRate
	for _, fixing := range fixings {
		if fixing.EffectiveDate.After(date) {
			break
		}
		best = fixing
	}
	if best == nil {
		return nil, domain.ErrBenchmarkUnavailable
	}
	return best, nil
}

// RecordReset stores a rate reset
func (m *MockBenchmarkRepository) RecordReset(ctx context.Context, reset *domain.RateReset) (*domain.RateReset, error) {
	reset.ID = m.NextID
	m.NextID++
	reset.CreatedAt = time.Now().UTC()
	m.Resets[reset.AccountID] = append(m.Resets[reset.AccountID], reset)
	return reset, nil
}

// ListResets lists rate resets for an account
func (m *MockBenchmarkRepository) ListResets(ctx context.Context, accountID int64) ([]*domain.RateReset, error) {
	return m.Resets[accountID], nil
}

// MockDelinquencyRepository is a mock implementation of domain.DelinquencyRepository
type MockDelinquencyRepository struct {
	Snapshots map[int64][]*domain.DelinquencySnapshot
	NextID    int64
}

// NewMockDelinquencyRepository creates a new MockDelinquencyRepository
func NewMockDelinquencyRepository() *MockDelinquencyRepository {
	return &MockDelinquencyRepository{
		Snapshots: make(map[int64][]*domain.DelinquencySnapshot),
		NextID:    1,
	}
}

// Create stores a delinquency snapshot
func (m *MockDelinquencyRepository) Create(ctx context.Context, snapshot *domain.DelinquencySnapshot) (*domain.DelinquencySnapshot, error) {
	snapshot.ID = m.NextID
	m.NextID++
	snapshot.CreatedAt = time.Now().UTC()
	m.Snapshots[snapshot.AccountID] = append(m.Snapshots[snapshot.AccountID], snapshot)
	return snapshot, nil
}

// GetLatest retrieves the most recent snapshot for an account
func (m *MockDelinquencyRepository) GetLatest(ctx context.Context, accountID int64) (*domain.DelinquencySnapshot, error) {
	snapshots := m.Snapshots[accountID]
	if len(snapshots) == 0 {
		return nil, domain.ErrNotFound
	}
	return snapshots[len(snapshots)-1], nil
}

// ListByAccount lists snapshots for an account within a date range
func (m *MockDelinquencyRepository) ListByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.DelinquencySnapshot, error) {
	result := make([]*domain.DelinquencySnapshot, 0)
	for _, snapshot := range m.Snapshots[accountID] {
		if snapshot.AsOf.Before(from) || snapshot.AsOf.After(to) {
			continue
		}
		result = append(result, snapshot)
	}
	return result, nil
}

// BucketDistributionOn aggregates the latest snapshot per account on a date
func (m *MockDelinquencyRepository) BucketDistributionOn(ctx context.Context, asOf time.Time) ([]*domain.BucketDistribution, error) {
	byBucket := make(map[string]*domain.BucketDistribution)
	for _, snapshots := range m.Snapshots {
		var latest *domain.DelinquencySnapshot
		for _, snapshot := range snapshots {
			if snapshot.AsOf.After(asOf) {
				continue
			}
			if latest == nil || snapshot.AsOf.After(latest.AsOf) {
				latest = snapshot
			}
		}
		if latest == nil {
			continue
		}
		dist, ok := byBucket[latest.Bucket]
		if !ok {
			dist = &domain.BucketDistribution{Bucket: latest.Bucket, Outstanding: decimal.Zero}
			byBucket[latest.Bucket] = dist
		}
		dist.Accounts++
		dist.Outstanding = dist.Outstanding.Add(latest.TotalOverdue())
	}
	result := make([]*domain.BucketDistribution, 0, len(byBucket))
	for _, dist := range byBucket {
		result = append(result, dist)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Bucket < result[j].Bucket })
	return result, nil
}

// MockParticipationRepository is a mock implementation of domain.ParticipationRepository
type MockParticipationRepository struct {
	Participations map[int64][]*domain.LoanParticipation
	Ledger         map[int64][]*domain.PartnerLedgerEntry
	Servicers      map[int64]*domain.ServicerArrangement
	NextID         int64
}

// NewMockParticipationRepository creates a new MockParticipationRepository
func NewMockParticipationRepository() *MockParticipationRepository {
	return &MockParticipationRepository{
		Participations: make(map[int64][]*domain.LoanParticipation),
		Ledger:         make(map[int64][]*domain.PartnerLedgerEntry),
		Servicers:      make(map[int64]*domain.ServicerArrangement),
		NextID:         1,
	}
}

// CreateAll stores the participation structure of an account
func (m *MockParticipationRepository) CreateAll(ctx context.Context, parts []*domain.LoanParticipation) error {
	for _, part := range parts {
		part.ID = m.NextID
		m.NextID++
		part.CreatedAt = time.Now().UTC()
		m.Participations[part.AccountID] = append(m.Participations[part.AccountID], part)
	}
	return nil
}

// GetByAccount lists participations for an account
func (m *MockParticipationRepository) GetByAccount(ctx context.Context, accountID int64) ([]*domain.LoanParticipation, error) {
	return m.Participations[accountID], nil
}

// CreateLedgerEntry posts a partner ledger entry
func (m *MockParticipationRepository) CreateLedgerEntry(ctx context.Context, entry *domain.PartnerLedgerEntry) (*domain.PartnerLedgerEntry, error) {
	entry.ID = m.NextID
	m.NextID++
	entry.CreatedAt = time.Now().UTC()
	m.Ledger[entry.AccountID] = append(m.Ledger[entry.AccountID], entry)
	return entry, nil
}

// LatestLedgerBalance returns a partner's most recent running balance
func (m *MockParticipationRepository) LatestLedgerBalance(ctx context.Context, accountID int64, partnerCode string) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, entry := range m.Ledger[accountID] {
		if entry.PartnerCode == partnerCode {
			balance = entry.Balance
		}
	}
	return balance, nil
}

// ListLedger lists a partner's ledger entries on an account
func (m *MockParticipationRepository) ListLedger(ctx context.Context, accountID int64, partnerCode string) ([]*domain.PartnerLedgerEntry, error) {
	result := make([]*domain.PartnerLedgerEntry, 0)
	for _, entry := range m.Ledger[accountID] {
		if entry.PartnerCode == partnerCode {
			result = append(result, entry)
		}
	}
	return result, nil
}

// GetServicerArrangement fetches the servicer terms for an account
func (m *MockParticipationRepository) GetServicerArrangement(ctx context.Context, accountID int64) (*domain.ServicerArrangement, error) {
	if arr, ok := m.Servicers[accountID]; ok {
		return arr, nil
	}
	return nil, domain.ErrNotFound
}

// SaveServicerArrangement stores or updates servicer terms
func (m *MockParticipationRepository) SaveServicerArrangement(ctx context.Context, arr *domain.ServicerArrangement) (*domain.ServicerArrangement, error) {
	if arr.ID == 0 {
		arr.ID = m.NextID
		m.NextID++
		arr.CreatedAt = time.Now().UTC()
	}
	m.Servicers[arr.AccountID] = arr
	return arr, nil
}

// MockFLDGRepository is a mock implementation of domain.FLDGRepository
type MockFLDGRepository struct {
	Arrangements map[int64]*domain.FLDGArrangement
	ByProgram    map[string]*domain.FLDGArrangement
	Utilizations map[int64][]*domain.FLDGUtilization
	Recoveries   map[int64][]*domain.FLDGRecovery
	NextID       int64
}

// NewMockFLDGRepository creates a new MockFLDGRepository
func NewMockFLDGRepository() *MockFLDGRepository {
	return &MockFLDGRepository{
		Arrangements: make(map[int64]*domain.FLDGArrangement),
		ByProgram:    make(map[string]*domain.FLDGArrangement),
		Utilizations: make(map[int64][]*domain.FLDGUtilization),
		Recoveries:   make(map[int64][]*domain.FLDGRecovery),
		NextID:       1,
	}
}

// CreateArrangement registers a guarantee pool
func (m *MockFLDGRepository) CreateArrangement(ctx context.Context, arr *domain.FLDGArrangement) (*domain.FLDGArrangement, error) {
	arr.ID = m.NextID
	m.NextID++
	arr.CreatedAt = time.Now().UTC()
	arr.UpdatedAt = arr.CreatedAt
	m.Arrangements[arr.ID] = arr
	m.ByProgram[arr.ProgramCode] = arr
	return arr, nil
}

// GetArrangement retrieves a pool by ID
func (m *MockFLDGRepository) GetArrangement(ctx context.Context, id int64) (*domain.FLDGArrangement, error) {
	if arr, ok := m.Arrangements[id]; ok {
		return arr, nil
	}
	return nil, domain.ErrNotFound
}

// GetArrangementByProgram retrieves a pool by program code
func (m *MockFLDGRepository) GetArrangementByProgram(ctx context.Context, programCode string) (*domain.FLDGArrangement, error) {
	if arr, ok := m.ByProgram[programCode]; ok {
		return arr, nil
	}
	return nil, domain.ErrNotFound
}

// UpdateArrangement updates a pool's utilization state
func (m *MockFLDGRepository) UpdateArrangement(ctx context.Context, arr *domain.FLDGArrangement) (*domain.FLDGArrangement, error) {
	if _, ok := m.Arrangements[arr.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	arr.UpdatedAt = time.Now().UTC()
	m.Arrangements[arr.ID] = arr
	m.ByProgram[arr.ProgramCode] = arr
	return arr, nil
}

// CreateUtilization records a claim against a pool
func (m *MockFLDGRepository) CreateUtilization(ctx context.Context, u *domain.FLDGUtilization) (*domain.FLDGUtilization, error) {
	u.ID = m.NextID
	m.NextID++
	u.CreatedAt = time.Now().UTC()
	m.Utilizations[u.ArrangementID] = append(m.Utilizations[u.ArrangementID], u)
	return u, nil
}

// ListUtilizations lists claims drawn against a pool
func (m *MockFLDGRepository) ListUtilizations(ctx context.Context, arrangementID int64) ([]*domain.FLDGUtilization, error) {
	return m.Utilizations[arrangementID], nil
}

// CreateRecovery records a recovery routed through a pool
func (m *MockFLDGRepository) CreateRecovery(ctx context.Context, r *domain.FLDGRecovery) (*domain.FLDGRecovery, error) {
	r.ID = m.NextID
	m.NextID++
	r.CreatedAt = time.Now().UTC()
	m.Recoveries[r.ArrangementID] = append(m.Recoveries[r.ArrangementID], r)
	return r, nil
}

// ListRecoveries lists recoveries routed through a pool
func (m *MockFLDGRepository) ListRecoveries(ctx context.Context, arrangementID int64) ([]*domain.FLDGRecovery, error) {
	return m.Recoveries[arrangementID], nil
}

// MockECLRepository is a mock implementation of domain.ECLRepository
type MockECLRepository struct {
	Stagings   map[int64][]*domain.ECLStaging
	Provisions map[int64][]*domain.ECLProvision
	NextID     int64
}

// NewMockECLRepository creates a new MockECLRepository
func NewMockECLRepository() *MockECLRepository {
	return &MockECLRepository{
		Stagings:   make(map[int64][]*domain.ECLStaging),
		Provisions: make(map[int64][]*domain.ECLProvision),
		NextID:     1,
	}
}

// CreateStaging stores a staging decision
func (m *MockECLRepository) CreateStaging(ctx context.Context, staging *domain.ECLStaging) (*domain.ECLStaging, error) {
	staging.ID = m.NextID
	m.NextID++
	staging.CreatedAt = time.Now().UTC()
	m.Stagings[staging.AccountID] = append(m.Stagings[staging.AccountID], staging)
	return staging, nil
}

// GetLatestStaging retrieves the most recent staging for an account
func (m *MockECLRepository) GetLatestStaging(ctx context.Context, accountID int64) (*domain.ECLStaging, error) {
	stagings := m.Stagings[accountID]
	if len(stagings) == 0 {
		return nil, domain.ErrNotFound
	}
	return stagings[len(stagings)-1], nil
}

// CreateProvision stores a provision
func (m *MockECLRepository) CreateProvision(ctx context.Context, provision *domain.ECLProvision) (*domain.ECLProvision, error) {
	provision.ID = m.NextID
	m.NextID++
	provision.CreatedAt = time.Now().UTC()
	m.Provisions[provision.AccountID] = append(m.Provisions[provision.AccountID], provision)
	return provision, nil
}

// GetLatestProvision retrieves the most recent provision for an account
func (m *MockECLRepository) GetLatestProvision(ctx context.Context, accountID int64) (*domain.ECLProvision, error) {
	provisions := m.Provisions[accountID]
	if len(provisions) == 0 {
		return nil, domain.ErrNotFound
	}
	return provisions[len(provisions)-1], nil
}

// PortfolioSummaryOn aggregates provisions by stage for a reporting date
func (m *MockECLRepository) PortfolioSummaryOn(ctx context.Context, asOf time.Time) ([]*domain.ECLPortfolioSummary, error) {
	byStage := make(map[int]*domain.ECLPortfolioSummary)
	for _, provisions := range m.Provisions {
		var latest *domain.ECLProvision
		for _, provision := range provisions {
			if provision.AsOf.After(asOf) {
				continue
			}
			if latest == nil || provision.AsOf.After(latest.AsOf) {
				latest = provision
			}
		}
		if latest == nil {
			continue
		}
		summary, ok := byStage[latest.Stage]
		if !ok {
			summary = &domain.ECLPortfolioSummary{
				Stage:     latest.Stage,
				EAD:       decimal.Zero,
				Provision: decimal.Zero,
			}
			byStage[latest.Stage] = summary
		}
		summary.Accounts++
		summary.EAD = summary.EAD.Add(latest.EAD)
		summary.Provision = summary.Provision.Add(latest.Provision)
	}
	result := make([]*domain.ECLPortfolioSummary, 0, len(byStage))
	for _, summary := range byStage {
		result = append(result, summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Stage < result[j].Stage })
	return result, nil
}

// MockLifecycleRepository is a mock implementation of domain.LifecycleRepository
type MockLifecycleRepository struct {
	RestructureRequests map[int64]*domain.RestructureRequest
	RestructureEvents   []*domain.RestructureEvent
	PrepaymentEvents    []*domain.PrepaymentEvent
	WriteOffs           map[int64]*domain.WriteOff // keyed by account ID
	WriteOffRecoveries  []*domain.WriteOffRecovery
	ClosureEvents       []*domain.ClosureEvent
	NextID              int64
}

// NewMockLifecycleRepository creates a new MockLifecycleRepository
func NewMockLifecycleRepository() *MockLifecycleRepository {
	return &MockLifecycleRepository{
		RestructureRequests: make(map[int64]*domain.RestructureRequest),
		WriteOffs:           make(map[int64]*domain.WriteOff),
		NextID:              1,
	}
}

// CreateRestructureRequest stores a restructure request
func (m *MockLifecycleRepository) CreateRestructureRequest(ctx context.Context, req *domain.RestructureRequest) (*domain.RestructureRequest, error) {
	req.ID = m.NextID
	m.NextID++
	m.RestructureRequests[req.ID] = req
	return req, nil
}

// GetRestructureRequest retrieves a restructure request by ID
func (m *MockLifecycleRepository) GetRestructureRequest(ctx context.Context, id int64) (*domain.RestructureRequest, error) {
	if req, ok := m.RestructureRequests[id]; ok {
		return req, nil
	}
	return nil, domain.ErrRestructureNotFound
}

// UpdateRestructureRequest updates a restructure request
func (m *MockLifecycleRepository) UpdateRestructureRequest(ctx context.Context, req *domain.RestructureRequest) (*domain.RestructureRequest, error) {
	if _, ok := m.RestructureRequests[req.ID]; !ok {
		return nil, domain.ErrRestructureNotFound
	}
	m.RestructureRequests[req.ID] = req
	return req, nil
}

// CreateRestructureEvent stores a restructure event
func (m *MockLifecycleRepository) CreateRestructureEvent(ctx context.Context, ev *domain.RestructureEvent) (*domain.RestructureEvent, error) {
	ev.ID = m.NextID
	m.NextID++
	m.RestructureEvents = append(m.RestructureEvents, ev)
	return ev, nil
}

// CreatePrepaymentEvent stores a prepayment event
func (m *MockLifecycleRepository) CreatePrepaymentEvent(ctx context.Context, ev *domain.PrepaymentEvent) (*domain.PrepaymentEvent, error) {
	ev.ID = m.NextID
	m.NextID++
	ev.CreatedAt = time.Now().UTC()
	m.PrepaymentEvents = append(m.PrepaymentEvents, ev)
	return ev, nil
}

// CreateWriteOff stores a write-off
func (m *MockLifecycleRepository) CreateWriteOff(ctx context.Context, wo *domain.WriteOff) (*domain.WriteOff, error) {
	wo.ID = m.NextID
	m.NextID++
	wo.CreatedAt = time.Now().UTC()
	m.WriteOffs[wo.AccountID] = wo
	return wo, nil
}

// GetWriteOff retrieves the write-off for an account
func (m *MockLifecycleRepository) GetWriteOff(ctx context.Context, accountID int64) (*domain.WriteOff, error) {
	if wo, ok := m.WriteOffs[accountID]; ok {
		return wo, nil
	}
	return nil, domain.ErrNotFound
}

// CreateWriteOffRecovery stores a write-off recovery
func (m *MockLifecycleRepository) CreateWriteOffRecovery(ctx context.Context, rec *domain.WriteOffRecovery) (*domain.WriteOffRecovery, error) {
	rec.ID = m.NextID
	m.NextID++
	rec.CreatedAt = time.Now().UTC()
	m.WriteOffRecoveries = append(m.WriteOffRecoveries, rec)
	return rec, nil
}

// CreateClosureEvent stores a closure event
func (m *MockLifecycleRepository) CreateClosureEvent(ctx context.Context, ev *domain.ClosureEvent) (*domain.ClosureEvent, error) {
	ev.ID = m.NextID
	m.NextID++
	ev.CreatedAt = time.Now().UTC()
	m.ClosureEvents = append(m.ClosureEvents, ev)
	return ev, nil
}
