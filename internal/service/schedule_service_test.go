package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

func newScheduleService(f *testFixture) *ScheduleService {
	return NewScheduleService(f.accounts, f.schedules, f.tx, fincore.NewCalendar(nil), fincore.BusinessDayNone)
}

func seedBareAccount(f *testFixture) *domain.LoanAccount {
	account := &domain.LoanAccount{
		AccountNumber:        "LN-2001",
		ProductCode:          "PL",
		BorrowerRef:          "B-2",
		Principal:            dec("100000"),
		InterestRate:         dec("12"),
		RateType:             domain.RateFixed,
		ScheduleType:         fincore.ScheduleEMI,
		Frequency:            fincore.FrequencyMonthly,
		TenurePeriods:        12,
		DayCount:             fincore.DayCountACT365,
		DisbursementDate:     date(2024, time.January, 1),
		Status:               domain.AccountActive,
		OutstandingPrincipal: dec("100000"),
		Bucket:               domain.BucketCurrent,
	}
	f.accounts.AddAccount(account)
	return account
}

func TestScheduleService_PersistForAccount(t *testing.T) {
	f := newTestFixture()
	svc := newScheduleService(f)
	account := seedBareAccount(f)

	rows, err := svc.PersistForAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.True(t, rows[0].TotalDue.Equal(dec("8884.88")))

	stored, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 12)
}

func TestScheduleService_PersistForAccount_AlreadyExists(t *testing.T) {
	f := newTestFixture()
	svc := newScheduleService(f)
	account := f.seedEMIAccount()

	_, err := svc.PersistForAccount(context.Background(), account.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))
}

func TestScheduleService_RegenerateForAccount(t *testing.T) {
	f := newTestFixture()
	svc := newScheduleService(f)
	account := f.seedEMIAccount()

	// Untouched schedule may be rebuilt after a terms change
	account.TenurePeriods = 24
	rows, err := svc.RegenerateForAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 24)
}

func TestScheduleService_RegenerateForAccount_RefusesCollections(t *testing.T) {
	f := newTestFixture()
	svc := newScheduleService(f)
	account := f.seedEMIAccount()

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	rows[0].InterestPaid = dec("1000.00")
	require.NoError(t, f.schedules.UpdateRow(context.Background(), rows[0]))

	_, err = svc.RegenerateForAccount(context.Background(), account.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))
}
