package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newECLService(f *testFixture) *ECLService {
	return NewECLService(f.accounts, f.ecl, f.lifecycle, f.tx, f.locks, domain.DefaultECLConfig(), 2)
}

func TestECLService_StageFor(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)

	tests := []struct {
		name       string
		account    domain.LoanAccount
		writtenOff bool
		sicr       bool
		wantStage  int
		wantReason string
	}{
		{"performing", domain.LoanAccount{Status: domain.AccountActive}, false, false, 1, "performing"},
		{"dpd over 30", domain.LoanAccount{Status: domain.AccountActive, DPD: 45}, false, false, 2, "dpd_over_30"},
		{"sicr flag", domain.LoanAccount{Status: domain.AccountActive}, false, true, 2, "sicr_flag"},
		{"restructured", domain.LoanAccount{Status: domain.AccountActive, Restructured: true}, false, false, 2, "restructured"},
		{"dpd over 90", domain.LoanAccount{Status: domain.AccountActive, DPD: 95}, false, false, 3, "dpd_over_90"},
		{"npa", domain.LoanAccount{Status: domain.AccountActive, NPA: true, DPD: 40}, false, false, 3, "npa"},
		{"written off", domain.LoanAccount{Status: domain.AccountWrittenOff}, true, false, 3, "written_off"},
		{"npa beats restructured", domain.LoanAccount{Status: domain.AccountActive, NPA: true, Restructured: true}, false, false, 3, "npa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, reason := svc.StageFor(&tt.account, tt.writtenOff, tt.sicr)
			assert.Equal(t, tt.wantStage, stage)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestECLService_Run_Stage1Provision(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()

	result, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Staging.Stage)
	assert.Equal(t, 1, result.Staging.PreviousStage)

	// Unsecured stage 1: 100000 * 0.02 * 0.65 = 1300.00
	assert.True(t, result.Provision.EAD.Equal(dec("100000")))
	assert.True(t, result.Provision.PD.Equal(dec("0.02")))
	assert.True(t, result.Provision.LGD.Equal(dec("0.65")))
	assert.True(t, result.Provision.Provision.Equal(dec("1300.00")),
		"provision is %s", result.Provision.Provision)
}

func TestECLService_Run_SecuredLGD(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()
	account.Secured = true

	result, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Provision.LGD.Equal(dec("0.35")))
	// 100000 * 0.02 * 0.35 = 700.00
	assert.True(t, result.Provision.Provision.Equal(dec("700.00")))
}

func TestECLService_Run_Stage3CertainDefault(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()
	account.DPD = 120
	account.NPA = true

	result, err := svc.Run(context.Background(), account.ID, date(2024, time.June, 30), false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Staging.Stage)
	assert.True(t, result.Provision.PD.Equal(dec("1")))
	// 100000 * 1.0 * 0.65 = 65000.00
	assert.True(t, result.Provision.Provision.Equal(dec("65000.00")))
}

func TestECLService_Run_StageTransitionRecorded(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()

	_, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	require.NoError(t, err)

	account.DPD = 45
	result, err := svc.Run(context.Background(), account.ID, date(2024, time.February, 29), false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Staging.Stage)
	assert.Equal(t, 1, result.Staging.PreviousStage)
}

func TestECLService_Run_ProvisionMovement(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()

	// First run opens from zero, so the whole requirement is a charge
	first, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, first.Provision.Opening.IsZero())
	assert.True(t, first.Provision.Charge.Equal(dec("1300.00")))
	assert.True(t, first.Provision.Release.IsZero())

	// Slipping to stage 2 raises the requirement to 100000 * 0.15 * 0.65
	account.DPD = 45
	second, err := svc.Run(context.Background(), account.ID, date(2024, time.February, 29), false)
	require.NoError(t, err)
	assert.True(t, second.Provision.Opening.Equal(dec("1300.00")))
	assert.True(t, second.Provision.Charge.Equal(dec("8450.00")),
		"charge is %s", second.Provision.Charge)
	assert.True(t, second.Provision.Release.IsZero())
	assert.True(t, second.Provision.Provision.Equal(dec("9750.00")))

	// Curing back to stage 1 releases the difference
	account.DPD = 0
	third, err := svc.Run(context.Background(), account.ID, date(2024, time.March, 31), false)
	require.NoError(t, err)
	assert.True(t, third.Provision.Opening.Equal(dec("9750.00")))
	assert.True(t, third.Provision.Charge.IsZero())
	assert.True(t, third.Provision.Release.Equal(dec("8450.00")))
	assert.True(t, third.Provision.Provision.Equal(dec("1300.00")))
}

func TestECLService_Run_ClosedAccount(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()
	account.Status = domain.AccountClosed

	_, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	assert.ErrorIs(t, err, domain.ErrAccountNotOpen)
}

func TestECLService_RunBatch(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	f.seedEMIAccount()

	result, err := svc.RunBatch(context.Background(), date(2024, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
}

func TestECLService_PortfolioSummary(t *testing.T) {
	f := newTestFixture()
	svc := newECLService(f)
	account := f.seedEMIAccount()

	_, err := svc.Run(context.Background(), account.ID, date(2024, time.January, 31), false)
	require.NoError(t, err)

	summary, err := svc.PortfolioSummary(context.Background(), date(2024, time.January, 31))
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 1, summary[0].Stage)
	assert.Equal(t, 1, summary[0].Accounts)
	assert.True(t, summary[0].EAD.Equal(dec("100000")))
}
