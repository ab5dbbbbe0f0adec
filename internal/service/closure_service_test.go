package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newClosureService(f *testFixture, fldg *FLDGService) *ClosureService {
	return NewClosureService(f.accounts, f.schedules, f.lifecycle, fldg, f.tx, f.locks)
}

func TestClosureService_Close_Normal(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	event, err := svc.Close(context.Background(), CloseInput{
		AccountID:   account.ID,
		Type:        domain.ClosureNormal,
		ClosureDate: date(2025, time.January, 1),
		AmountPaid:  dec("100000"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClosureNormal, event.Type)
	assert.True(t, event.WaivedAmount.IsZero())

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountClosed, updated.Status)
	assert.True(t, updated.TotalOutstanding().IsZero())
	assert.Equal(t, 0, updated.DPD)
	assert.False(t, updated.NPA)
}

func TestClosureService_Close_BelowOutstanding(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.Close(context.Background(), CloseInput{
		AccountID:   account.ID,
		Type:        domain.ClosureNormal,
		ClosureDate: date(2025, time.January, 1),
		AmountPaid:  dec("50000"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))
}

func TestClosureService_Close_SettlementWithWaiver(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	event, err := svc.Close(context.Background(), CloseInput{
		AccountID:   account.ID,
		Type:        domain.ClosureSettlement,
		ClosureDate: date(2025, time.January, 1),
		AmountPaid:  dec("60000"),
		WaiveAmount: dec("40000"),
	})
	require.NoError(t, err)
	assert.True(t, event.WaivedAmount.Equal(dec("40000")))

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountClosed, updated.Status)
	require.NotNil(t, updated.ClosureType)
	assert.Equal(t, domain.ClosureSettlement, *updated.ClosureType)

	// Untouched rows are waived under a settlement
	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentWaived, rows[0].Status)
}

func TestClosureService_Close_NormalCannotWaive(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.Close(context.Background(), CloseInput{
		AccountID:   account.ID,
		Type:        domain.ClosureNormal,
		ClosureDate: date(2025, time.January, 1),
		AmountPaid:  dec("100000"),
		WaiveAmount: dec("1"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestClosureService_Close_AlreadyClosed(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()
	account.Status = domain.AccountClosed

	_, err := svc.Close(context.Background(), CloseInput{
		AccountID:   account.ID,
		Type:        domain.ClosureNormal,
		ClosureDate: date(2025, time.January, 1),
		AmountPaid:  dec("100000"),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyClosed)
}

func TestClosureService_WriteOff_Full(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()
	account.OutstandingInterest = dec("5000")
	account.DPD = 200
	account.NPA = true
	account.NPACategory = domain.NPACategorySubstandard

	writeOff, err := svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:    account.ID,
		WriteOffDate: date(2024, time.September, 1),
		Reason:       "unrecoverable",
	})
	require.NoError(t, err)

	assert.True(t, writeOff.PrincipalAmount.Equal(dec("100000")))
	assert.True(t, writeOff.InterestAmount.Equal(dec("5000")))
	assert.True(t, writeOff.Total().Equal(dec("105000")))
	assert.Equal(t, 200, writeOff.DPDAtWriteOff)
	assert.Equal(t, domain.NPACategorySubstandard, writeOff.NPACategory)
	assert.False(t, writeOff.Partial)

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountWrittenOff, updated.Status)
	assert.True(t, updated.TotalOutstanding().IsZero())
}

func TestClosureService_WriteOff_Partial(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	writeOff, err := svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:       account.ID,
		WriteOffDate:    date(2024, time.September, 1),
		Partial:         true,
		PrincipalAmount: dec("40000"),
	})
	require.NoError(t, err)
	assert.True(t, writeOff.Partial)
	assert.True(t, writeOff.PrincipalAmount.Equal(dec("40000")))

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	// Partial write-off keeps the account active on the reduced balance
	assert.Equal(t, domain.AccountActive, updated.Status)
	assert.True(t, updated.OutstandingPrincipal.Equal(dec("60000")))
}

func TestClosureService_WriteOff_PartialOutOfRange(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:       account.ID,
		WriteOffDate:    date(2024, time.September, 1),
		Partial:         true,
		PrincipalAmount: dec("150000"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestClosureService_WriteOff_Twice(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:    account.ID,
		WriteOffDate: date(2024, time.September, 1),
	})
	require.NoError(t, err)

	_, err = svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:    account.ID,
		WriteOffDate: date(2024, time.October, 1),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyWrittenOff)
}

func TestClosureService_RecordRecovery(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.WriteOff(context.Background(), WriteOffInput{
		AccountID:    account.ID,
		WriteOffDate: date(2024, time.September, 1),
	})
	require.NoError(t, err)

	recovery, err := svc.RecordRecovery(context.Background(), RecoveryInput{
		AccountID:           account.ID,
		RecoveryDate:        date(2024, time.December, 1),
		Amount:              dec("10000"),
		AgencyCommissionPct: dec("15"),
	})
	require.NoError(t, err)

	assert.True(t, recovery.AgencyCommission.Equal(dec("1500.00")))
	assert.True(t, recovery.Net.Equal(dec("8500.00")))
}

func TestClosureService_RecordRecovery_NoWriteOff(t *testing.T) {
	f := newTestFixture()
	svc := newClosureService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.RecordRecovery(context.Background(), RecoveryInput{
		AccountID:    account.ID,
		RecoveryDate: date(2024, time.December, 1),
		Amount:       dec("10000"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
