package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newRestructureService(f *testFixture) *RestructureService {
	return NewRestructureService(f.accounts, f.schedules, f.lifecycle, f.tx, f.locks)
}

func TestRestructureService_Workflow(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	newRate := dec("9")
	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID: account.ID,
		Type:      domain.RestructureRateReduction,
		NewRate:   &newRate,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RestructurePending, req.Status)

	approved, err := svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RestructureApproved, approved.Status)
	require.NotNil(t, approved.DecidedAt)

	// Deciding twice is rejected
	_, err = svc.Approve(context.Background(), req.ID)
	assert.ErrorIs(t, err, domain.ErrRestructureDecided)
}

func TestRestructureService_Reject(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID:        account.ID,
		Type:             domain.RestructureTenureExtension,
		ExtensionPeriods: 6,
	})
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), req.ID, "insufficient hardship evidence")
	require.NoError(t, err)
	assert.Equal(t, domain.RestructureRejected, rejected.Status)
	assert.Equal(t, "insufficient hardship evidence", rejected.Reason)

	// Rejected requests cannot be applied
	_, err = svc.Apply(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))
}

func TestRestructureService_Apply_RateReduction(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	newRate := dec("9")
	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID: account.ID,
		Type:      domain.RestructureRateReduction,
		NewRate:   &newRate,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	event, err := svc.Apply(context.Background(), req.ID)
	require.NoError(t, err)

	assert.True(t, event.OldRate.Equal(dec("12")))
	assert.True(t, event.NewRate.Equal(dec("9")))
	assert.Equal(t, 12, event.NewTenure)

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.InterestRate.Equal(dec("9")))
	assert.True(t, updated.Restructured, "account is flagged restructured")

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	// Lower rate means a lower installment
	assert.True(t, rows[0].TotalDue.LessThan(dec("8884.88")),
		"new installment %s should be below the old one", rows[0].TotalDue)
}

func TestRestructureService_Apply_PreservesPaidInstallments(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	// Settle the first two installments before restructuring
	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	for _, row := range rows[:2] {
		row.PrincipalPaid = row.PrincipalDue
		row.InterestPaid = row.InterestDue
		row.RefreshStatus(date(2024, time.March, 1))
	}
	firstDue := rows[0].TotalDue

	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID:        account.ID,
		Type:             domain.RestructureTenureExtension,
		ExtensionPeriods: 6,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	event, err := svc.Apply(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, event.OldTenure)
	assert.Equal(t, 18, event.NewTenure)

	after, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, after, 18)
	assert.Equal(t, domain.InstallmentPaid, after[0].Status, "paid rows survive")
	assert.True(t, after[0].TotalDue.Equal(firstDue))
	assert.Equal(t, domain.InstallmentPending, after[2].Status)
	// Periods stay contiguous after the regenerated tail
	for i, row := range after {
		assert.Equal(t, i+1, row.Period)
	}
}

func TestRestructureService_Apply_PreservesPartialInstallment(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	// Settle period 1, pay the interest and part of the principal of period 2
	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	rows[0].PrincipalPaid = rows[0].PrincipalDue
	rows[0].InterestPaid = rows[0].InterestDue
	rows[0].RefreshStatus(date(2024, time.February, 1))
	rows[1].InterestPaid = rows[1].InterestDue
	rows[1].PrincipalPaid = dec("1000")
	rows[1].RefreshStatus(date(2024, time.March, 1))
	require.Equal(t, domain.InstallmentPartial, rows[1].Status)
	partialDue := rows[1].TotalDue

	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID:        account.ID,
		Type:             domain.RestructureTenureExtension,
		ExtensionPeriods: 6,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), req.ID)
	require.NoError(t, err)

	after, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, after, 18)

	// The partially paid row keeps its dues and collections
	assert.Equal(t, domain.InstallmentPartial, after[1].Status)
	assert.True(t, after[1].TotalDue.Equal(partialDue))
	assert.True(t, after[1].InterestPaid.Equal(dec("921.15")), "interest paid is %s", after[1].InterestPaid)
	assert.True(t, after[1].PrincipalPaid.Equal(dec("1000")))
	assert.Equal(t, domain.InstallmentPending, after[2].Status)

	collected := decimal.Zero
	for _, row := range after {
		collected = collected.Add(row.InterestPaid)
	}
	assert.True(t, collected.Equal(dec("1921.15")), "collected interest survives regeneration, got %s", collected)

	// Outstanding covers the regenerated tail plus the partial row's residue
	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.OutstandingPrincipal.Equal(dec("91115.12")),
		"outstanding principal is %s", updated.OutstandingPrincipal)
}

func TestRestructureService_Apply_Haircut(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	haircut := dec("20000")
	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID:     account.ID,
		Type:          domain.RestructureHaircut,
		HaircutAmount: &haircut,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	event, err := svc.Apply(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, event.OldBalance.Equal(dec("100000")))
	assert.True(t, event.NewBalance.Equal(dec("80000")))

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.OutstandingPrincipal.Equal(dec("80000")))
}

func TestRestructureService_Apply_HaircutExceedsBalance(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	haircut := dec("150000")
	req, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID:     account.ID,
		Type:          domain.RestructureHaircut,
		HaircutAmount: &haircut,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestRestructureService_Impact(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	newRate := dec("9")
	impact, err := svc.Impact(context.Background(), &domain.RestructureRequest{
		AccountID: account.ID,
		Type:      domain.RestructureRateReduction,
		NewRate:   &newRate,
	})
	require.NoError(t, err)

	assert.True(t, impact.CurrentInstallment.Equal(dec("8884.88")))
	assert.True(t, impact.ProposedInstallment.LessThan(impact.CurrentInstallment))
	assert.Equal(t, 12, impact.CurrentTenure)
	assert.Equal(t, 12, impact.ProposedTenure)
	assert.True(t, impact.ProposedRate.Equal(dec("9")))

	// Preview does not change stored state
	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, rows[0].TotalDue.Equal(dec("8884.88")))
}

func TestRestructureService_Request_Validation(t *testing.T) {
	f := newTestFixture()
	svc := newRestructureService(f)
	account := f.seedEMIAccount()

	_, err := svc.Request(context.Background(), &domain.RestructureRequest{
		AccountID: account.ID,
		Type:      domain.RestructureRateReduction,
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}
