package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
	"github.com/anvayfin/lms-backend/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testFixture wires mock repositories for service tests
type testFixture struct {
	accounts       *testutil.MockLoanAccountRepository
	schedules      *testutil.MockScheduleRepository
	payments       *testutil.MockPaymentRepository
	accruals       *testutil.MockAccrualRepository
	benchmarks     *testutil.MockBenchmarkRepository
	delinquencies  *testutil.MockDelinquencyRepository
	participations *testutil.MockParticipationRepository
	fldg           *testutil.MockFLDGRepository
	ecl            *testutil.MockECLRepository
	lifecycle      *testutil.MockLifecycleRepository
	tx             *testutil.MockTxManager
	locks          *AccountLocks
}

func newTestFixture() *testFixture {
	return &testFixture{
		accounts:       testutil.NewMockLoanAccountRepository(),
		schedules:      testutil.NewMockScheduleRepository(),
		payments:       testutil.NewMockPaymentRepository(),
		accruals:       testutil.NewMockAccrualRepository(),
		benchmarks:     testutil.NewMockBenchmarkRepository(),
		delinquencies:  testutil.NewMockDelinquencyRepository(),
		participations: testutil.NewMockParticipationRepository(),
		fldg:           testutil.NewMockFLDGRepository(),
		ecl:            testutil.NewMockECLRepository(),
		lifecycle:      testutil.NewMockLifecycleRepository(),
		tx:             &testutil.MockTxManager{},
		locks:          NewAccountLocks(),
	}
}

// seedEMIAccount books a standard 100000 at 12% over 12 monthly periods and
// persists its schedule
func (f *testFixture) seedEMIAccount() *domain.LoanAccount {
	account := &domain.LoanAccount{
		AccountNumber:        "LN-1001",
		ProductCode:          "PL",
		BorrowerRef:          "B-1",
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
		OutstandingInterest:  decimal.Zero,
		OutstandingFees:      decimal.Zero,
		Bucket:               domain.BucketCurrent,
	}
	f.accounts.AddAccount(account)

	installments, err := fincore.GenerateSchedule(fincore.ScheduleSpec{
		Type:          fincore.ScheduleEMI,
		Principal:     account.Principal,
		AnnualRatePct: account.InterestRate,
		Periods:       account.TenurePeriods,
		Frequency:     account.Frequency,
		StartDate:     account.DisbursementDate,
	})
	if err != nil {
		panic(err)
	}
	if err := f.schedules.ReplaceForAccount(context.Background(), account.ID, toScheduleRows(account.ID, installments)); err != nil {
		panic(err)
	}
	return account
}
