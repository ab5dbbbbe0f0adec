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

func newAccountService(f *testFixture) *AccountService {
	scheduleService := NewScheduleService(f.accounts, f.schedules, f.tx, fincore.NewCalendar(nil), fincore.BusinessDayNone)
	return NewAccountService(f.accounts, f.schedules, scheduleService, f.tx, fincore.DayCountACT365)
}

func TestAccountService_CreateAccount(t *testing.T) {
	f := newTestFixture()
	svc := newAccountService(f)

	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		AccountNumber:    "LN-2001",
		ProductCode:      "PL",
		BorrowerRef:      "B-9",
		Principal:        dec("100000"),
		InterestRate:     dec("12"),
		ScheduleType:     fincore.ScheduleEMI,
		Frequency:        fincore.FrequencyMonthly,
		TenurePeriods:    12,
		DisbursementDate: date(2024, time.January, 1),
	})
	require.NoError(t, err)
	require.NotZero(t, account.ID)

	assert.Equal(t, domain.AccountActive, account.Status)
	assert.True(t, account.OutstandingPrincipal.Equal(dec("100000")))
	assert.Equal(t, domain.RateFixed, account.RateType)
	assert.Equal(t, fincore.DayCountACT365, account.DayCount)

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	assert.True(t, rows[0].TotalDue.Equal(dec("8884.88")), "first installment is %s", rows[0].TotalDue)
	assert.True(t, rows[0].InterestDue.Equal(dec("1000.00")))
	assert.True(t, rows[0].PrincipalDue.Equal(dec("7884.88")))
	assert.True(t, rows[11].ClosingBalance.IsZero())

	totalPrincipal := dec("0")
	for _, row := range rows {
		totalPrincipal = totalPrincipal.Add(row.PrincipalDue)
	}
	assert.True(t, totalPrincipal.Equal(dec("100000")), "principal sums to %s", totalPrincipal)
}

func TestAccountService_CreateAccount_InvalidInput(t *testing.T) {
	f := newTestFixture()
	svc := newAccountService(f)

	tests := []struct {
		name  string
		input CreateAccountInput
	}{
		{
			name: "zero principal",
			input: CreateAccountInput{
				AccountNumber:    "LN-1",
				Principal:        dec("0"),
				InterestRate:     dec("12"),
				Frequency:        fincore.FrequencyMonthly,
				TenurePeriods:    12,
				DisbursementDate: date(2024, time.January, 1),
			},
		},
		{
			name: "missing account number",
			input: CreateAccountInput{
				Principal:        dec("100000"),
				InterestRate:     dec("12"),
				Frequency:        fincore.FrequencyMonthly,
				TenurePeriods:    12,
				DisbursementDate: date(2024, time.January, 1),
			},
		},
		{
			name: "floating without benchmark",
			input: CreateAccountInput{
				AccountNumber:    "LN-2",
				Principal:        dec("100000"),
				InterestRate:     dec("12"),
				RateType:         domain.RateFloating,
				Frequency:        fincore.FrequencyMonthly,
				TenurePeriods:    12,
				DisbursementDate: date(2024, time.January, 1),
			},
		},
		{
			name: "zero tenure",
			input: CreateAccountInput{
				AccountNumber:    "LN-3",
				Principal:        dec("100000"),
				InterestRate:     dec("12"),
				Frequency:        fincore.FrequencyMonthly,
				DisbursementDate: date(2024, time.January, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
		})
	}
}

func TestAccountService_CreateAccount_BalloonSchedule(t *testing.T) {
	f := newTestFixture()
	svc := newAccountService(f)

	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		AccountNumber:    "LN-2002",
		Principal:        dec("100000"),
		InterestRate:     dec("12"),
		ScheduleType:     fincore.ScheduleBalloon,
		Frequency:        fincore.FrequencyMonthly,
		TenurePeriods:    12,
		DisbursementDate: date(2024, time.January, 1),
		BalloonFraction:  dec("0.30"),
	})
	require.NoError(t, err)

	rows, err := f.schedules.GetByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.True(t, rows[11].PrincipalDue.GreaterThanOrEqual(dec("30000")),
		"final installment carries the balloon, got %s", rows[11].PrincipalDue)
}

func TestAccountService_GetAccount(t *testing.T) {
	f := newTestFixture()
	svc := newAccountService(f)
	account := f.seedEMIAccount()

	found, err := svc.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AccountNumber, found.AccountNumber)

	byNumber, err := svc.GetAccountByNumber(context.Background(), account.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byNumber.ID)

	_, err = svc.GetAccount(context.Background(), 9999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
