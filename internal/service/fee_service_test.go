package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newFeeService(f *testFixture, config FeeConfig) *FeeService {
	return NewFeeService(f.accounts, f.schedules, f.tx, f.locks, config)
}

func TestFeeService_AssessLateFees_ChargesOverdueRows(t *testing.T) {
	f := newTestFixture()
	svc := newFeeService(f, DefaultFeeConfig())
	account := f.seedEMIAccount()

	// Periods 1 and 2 (due Feb 1 and Mar 1) are overdue on Mar 15
	charges, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.March, 15))
	require.NoError(t, err)
	require.Len(t, charges, 2)

	// 2% of the 8884.88 installment
	assert.Equal(t, 1, charges[0].Period)
	assert.True(t, charges[0].Amount.Equal(dec("177.70")), "late fee is %s", charges[0].Amount)
	assert.Equal(t, 43, charges[0].OverdueDays)

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, rows[0].FeeDue.Equal(dec("177.70")))
	assert.True(t, rows[0].TotalDue.Equal(dec("9062.58")), "total due is %s", rows[0].TotalDue)
	assert.True(t, rows[2].FeeDue.IsZero(), "future periods carry no late fee")

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.OutstandingFees.Equal(charges[0].Amount.Add(charges[1].Amount)))
}

func TestFeeService_AssessLateFees_Idempotent(t *testing.T) {
	f := newTestFixture()
	svc := newFeeService(f, DefaultFeeConfig())
	account := f.seedEMIAccount()

	first, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.March, 15))
	require.NoError(t, err)
	require.Len(t, first, 2)

	// A rerun on the same book charges nothing further
	second, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.March, 15))
	require.NoError(t, err)
	assert.Empty(t, second)

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, rows[0].FeeDue.Equal(dec("177.70")), "fee due stays %s", rows[0].FeeDue)
}

func TestFeeService_AssessLateFees_GracePeriod(t *testing.T) {
	f := newTestFixture()
	svc := newFeeService(f, FeeConfig{
		LateFeeRatePct: dec("2"),
		GraceDays:      15,
	})
	account := f.seedEMIAccount()

	// Period 1 is 9 days past due, inside the grace window
	charges, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.February, 10))
	require.NoError(t, err)
	assert.Empty(t, charges)
}

func TestFeeService_AssessLateFees_FlatWithCap(t *testing.T) {
	f := newTestFixture()
	svc := newFeeService(f, FeeConfig{
		LateFeeFlat: dec("750"),
		MaxFee:      dec("500"),
	})
	account := f.seedEMIAccount()

	charges, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.February, 15))
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.True(t, charges[0].Amount.Equal(dec("500")), "capped fee is %s", charges[0].Amount)
}

func TestFeeService_AssessLateFees_ClosedAccount(t *testing.T) {
	f := newTestFixture()
	svc := newFeeService(f, DefaultFeeConfig())
	account := f.seedEMIAccount()
	account.Status = domain.AccountClosed

	_, err := svc.AssessLateFees(context.Background(), account.ID, date(2024, time.March, 15))
	assert.ErrorIs(t, err, domain.ErrAccountNotOpen)
}
