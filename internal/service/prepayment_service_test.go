package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newPrepaymentService(f *testFixture) *PrepaymentService {
	return NewPrepaymentService(f.accounts, f.schedules, f.lifecycle, f.tx, f.locks, dec("2"))
}

func TestPrepaymentService_Impact(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	impact, err := svc.Impact(context.Background(), account.ID, dec("30000"))
	require.NoError(t, err)

	assert.True(t, impact.CurrentEMI.Equal(dec("8884.88")))
	assert.True(t, impact.ReducedEMI.LessThan(impact.CurrentEMI))
	assert.Equal(t, 12, impact.CurrentTenure)
	assert.Less(t, impact.ReducedTenure, impact.CurrentTenure)
	assert.True(t, impact.InterestSaved.IsPositive())
	assert.True(t, impact.RemainingAfter.Equal(dec("70000")))
	// 2% of 30000
	assert.True(t, impact.Penalty.Equal(dec("600.00")), "penalty is %s", impact.Penalty)
}

func TestPrepaymentService_Impact_ReachesPayoff(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	_, err := svc.Impact(context.Background(), account.ID, dec("100000"))
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestPrepaymentService_Apply_ReduceEMI(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	event, err := svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID: account.ID,
		Amount:    dec("30000"),
		Mode:      domain.PrepayReduceEMI,
		ValueDate: date(2024, time.January, 15),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PrepayReduceEMI, event.Mode)
	assert.True(t, event.NewEMI.LessThan(event.OldEMI),
		"EMI drops from %s to %s", event.OldEMI, event.NewEMI)
	assert.Equal(t, 12, event.NewTenure, "tenure unchanged")
	assert.True(t, event.Penalty.Equal(dec("600.00")))

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.OutstandingPrincipal.Equal(dec("70000")))

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	totalPrincipal := dec("0")
	for _, row := range rows {
		totalPrincipal = totalPrincipal.Add(row.PrincipalDue)
	}
	assert.True(t, totalPrincipal.Equal(dec("70000")), "principal sums to %s", totalPrincipal)
}

func TestPrepaymentService_Apply_PreservesPartialInstallment(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	// Pay the interest and part of the principal of period 1
	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	rows[0].InterestPaid = rows[0].InterestDue
	rows[0].PrincipalPaid = dec("500")
	rows[0].RefreshStatus(date(2024, time.January, 20))
	require.Equal(t, domain.InstallmentPartial, rows[0].Status)

	_, err = svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID: account.ID,
		Amount:    dec("10000"),
		Mode:      domain.PrepayReduceEMI,
		ValueDate: date(2024, time.January, 20),
	})
	require.NoError(t, err)

	after, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, after, 12)

	// The partially paid row keeps its collections; only periods 2+ rebuild
	assert.Equal(t, domain.InstallmentPartial, after[0].Status)
	assert.True(t, after[0].InterestPaid.Equal(dec("1000.00")), "interest paid is %s", after[0].InterestPaid)
	assert.True(t, after[0].PrincipalPaid.Equal(dec("500")))
	assert.Equal(t, 2, after[1].Period)
	assert.Equal(t, domain.InstallmentPending, after[1].Status)

	// 100000 less 500 collected and 10000 prepaid
	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.OutstandingPrincipal.Equal(dec("89500.00")),
		"outstanding principal is %s", updated.OutstandingPrincipal)
}

func TestPrepaymentService_Apply_ReduceTenure(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	event, err := svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID:    account.ID,
		Amount:       dec("30000"),
		Mode:         domain.PrepayReduceTenure,
		ValueDate:    date(2024, time.January, 15),
		WaivePenalty: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PrepayReduceTenure, event.Mode)
	assert.Less(t, event.NewTenure, event.OldTenure,
		"tenure drops from %d to %d", event.OldTenure, event.NewTenure)
	assert.True(t, event.Penalty.IsZero(), "penalty waived")

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, event.NewTenure, updated.TenurePeriods)

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Len(t, rows, event.NewTenure)
	// The kept installment level stays close to the original EMI
	assert.True(t, rows[0].TotalDue.Equal(dec("8884.88")))
}

func TestPrepaymentService_Apply_Foreclosure(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()
	account.OutstandingInterest = dec("1000")

	// Payoff 101000 + 2% penalty on 100000 principal
	event, err := svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID: account.ID,
		Amount:    dec("103000"),
		Mode:      domain.PrepayForeclose,
		ValueDate: date(2024, time.June, 1),
	})
	require.NoError(t, err)
	assert.True(t, event.Penalty.Equal(dec("2000.00")))

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountClosed, updated.Status)
	require.NotNil(t, updated.ClosureType)
	assert.Equal(t, domain.ClosureForeclosed, *updated.ClosureType)
	assert.True(t, updated.TotalOutstanding().IsZero())

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	for _, row := range rows {
		assert.True(t, row.IsSettled(), "period %d should be settled", row.Period)
	}

	require.Len(t, f.lifecycle.ClosureEvents, 1)
	assert.Equal(t, domain.ClosureForeclosed, f.lifecycle.ClosureEvents[0].Type)
}

func TestPrepaymentService_Apply_ForeclosureBelowPayoff(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	_, err := svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID: account.ID,
		Amount:    dec("50000"),
		Mode:      domain.PrepayForeclose,
		ValueDate: date(2024, time.June, 1),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestPrepaymentService_Apply_InvalidMode(t *testing.T) {
	f := newTestFixture()
	svc := newPrepaymentService(f)
	account := f.seedEMIAccount()

	_, err := svc.Apply(context.Background(), ApplyPrepaymentInput{
		AccountID: account.ID,
		Amount:    dec("1000"),
		Mode:      "unknown",
		ValueDate: date(2024, time.June, 1),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}
