package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvayfin/lms-backend/internal/domain"
)

func newFLDGService(f *testFixture) *FLDGService {
	return NewFLDGService(f.fldg, f.accounts, f.participations, f.tx)
}

func seedFLDGArrangement(t *testing.T, svc *FLDGService) *domain.FLDGArrangement {
	t.Helper()
	arr, err := svc.CreateArrangement(context.Background(), &domain.FLDGArrangement{
		ProgramCode:     "PROG-1",
		PartnerCode:     "ORIG-1",
		Structure:       domain.FLDGFirstLoss,
		CoverPercent:    dec("5"),
		AbsoluteCap:     dec("40000"),
		PortfolioAmount: dec("1000000"),
		TriggerDPD:      90,
	})
	require.NoError(t, err)
	return arr
}

func TestFLDGArrangement_EffectiveLimit(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	arr := seedFLDGArrangement(t, svc)

	// 5% of 1000000 is 50000, capped at 40000
	assert.True(t, arr.EffectiveLimit().Equal(dec("40000")))
	assert.True(t, arr.Balance().Equal(dec("40000")))
}

func TestFLDGService_Claim(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	account := f.seedEMIAccount()
	account.DPD = 120

	utilization, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("25000"),
	})
	require.NoError(t, err)

	assert.True(t, utilization.Claimed.Equal(dec("25000")))
	assert.True(t, utilization.Honored.Equal(dec("25000")))

	arr, err := svc.GetArrangement(context.Background(), utilization.ArrangementID)
	require.NoError(t, err)
	assert.True(t, arr.Utilized.Equal(dec("25000")))
	assert.True(t, arr.Balance().Equal(dec("15000")))
}

func TestFLDGService_Claim_BelowTrigger(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	account := f.seedEMIAccount()
	account.DPD = 45

	_, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("25000"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))
}

func TestFLDGService_Claim_PartialHonor(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	account := f.seedEMIAccount()
	account.DPD = 120

	// First claim uses most of the pool
	_, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("35000"),
	})
	require.NoError(t, err)

	// Second claim exceeds the remaining 5000 and is honored partially
	utilization, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.July, 1),
		Reason:      domain.ClaimReasonNPA,
		Amount:      dec("20000"),
	})
	require.NoError(t, err)
	assert.True(t, utilization.Claimed.Equal(dec("20000")))
	assert.True(t, utilization.Honored.Equal(dec("5000")))

	// The pool is now exhausted
	_, err = svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.August, 1),
		Reason:      domain.ClaimReasonNPA,
		Amount:      dec("1000"),
	})
	assert.ErrorIs(t, err, domain.ErrFLDGExhausted)
}

func TestFLDGService_Claim_SecondLossGate(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	account := f.seedEMIAccount()
	account.DPD = 120

	_, err := svc.CreateArrangement(context.Background(), &domain.FLDGArrangement{
		ProgramCode:        "PROG-2L",
		PartnerCode:        "ORIG-1",
		Structure:          domain.FLDGSecondLoss,
		CoverPercent:       dec("10"),
		PortfolioAmount:    dec("1000000"),
		FirstLossThreshold: dec("30000"),
		TriggerDPD:         90,
	})
	require.NoError(t, err)

	// Loss within the first loss tranche is not claimable
	_, err = svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-2L",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("20000"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindConflictingState, domain.KindOf(err))

	// A loss pushing past the threshold is claimable
	_, err = svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-2L",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("50000"),
	})
	require.NoError(t, err)
}

func TestFLDGService_Recovery(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	account := f.seedEMIAccount()
	account.DPD = 120

	_, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("25000"),
	})
	require.NoError(t, err)

	// Recovery replenishes the pool first, excess flows to the lender
	recovery, err := svc.Recovery(context.Background(), FLDGRecoveryInput{
		ProgramCode:  "PROG-1",
		AccountID:    account.ID,
		RecoveryDate: date(2024, time.September, 1),
		Amount:       dec("30000"),
	})
	require.NoError(t, err)

	assert.True(t, recovery.Replenished.Equal(dec("25000")))
	assert.True(t, recovery.ToLender.Equal(dec("5000")))

	arr, err := f.fldg.GetArrangementByProgram(context.Background(), "PROG-1")
	require.NoError(t, err)
	assert.True(t, arr.Recovered.Equal(dec("25000")))
	assert.True(t, arr.Balance().Equal(dec("40000")), "pool restored to its limit")
}

func TestFLDGService_Recovery_CapsAtAccountDraw(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	first := f.seedEMIAccount()
	first.DPD = 120
	second := f.seedEMIAccount()
	second.DPD = 120

	// Two accounts draw on the same pool
	_, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   first.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("10000"),
	})
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   second.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("20000"),
	})
	require.NoError(t, err)

	// Replenishment from the first account caps at its own 10000 draw even
	// though the pool-wide draw is 30000
	recovery, err := svc.Recovery(context.Background(), FLDGRecoveryInput{
		ProgramCode:  "PROG-1",
		AccountID:    first.ID,
		RecoveryDate: date(2024, time.September, 1),
		Amount:       dec("15000"),
	})
	require.NoError(t, err)
	assert.True(t, recovery.Replenished.Equal(dec("10000")), "replenished %s", recovery.Replenished)
	assert.True(t, recovery.ToLender.Equal(dec("5000")))

	// A later recovery on the same account goes entirely to the lender
	later, err := svc.Recovery(context.Background(), FLDGRecoveryInput{
		ProgramCode:  "PROG-1",
		AccountID:    first.ID,
		RecoveryDate: date(2024, time.October, 1),
		Amount:       dec("2000"),
	})
	require.NoError(t, err)
	assert.True(t, later.Replenished.IsZero())
	assert.True(t, later.ToLender.Equal(dec("2000")))

	arr, err := f.fldg.GetArrangementByProgram(context.Background(), "PROG-1")
	require.NoError(t, err)
	assert.True(t, arr.Recovered.Equal(dec("10000")))
}

func TestFLDGService_Claim_PostsLenderLedger(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)
	seedFLDGArrangement(t, svc)
	account := f.seedEMIAccount()
	account.DPD = 120

	require.NoError(t, f.participations.CreateAll(context.Background(), []*domain.LoanParticipation{
		{AccountID: account.ID, PartnerCode: "BANK-1", Role: domain.RoleLender, SharePercent: dec("80")},
		{AccountID: account.ID, PartnerCode: "ORIG-1", Role: domain.RoleOriginator, SharePercent: dec("20")},
	}))

	_, err := svc.Claim(context.Background(), ClaimInput{
		ProgramCode: "PROG-1",
		AccountID:   account.ID,
		ClaimDate:   date(2024, time.June, 1),
		Reason:      domain.ClaimReasonDPD,
		Amount:      dec("10000"),
	})
	require.NoError(t, err)

	ledger, err := f.participations.ListLedger(context.Background(), account.ID, "BANK-1")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, domain.LedgerFLDGClaim, ledger[0].Type)
	assert.True(t, ledger[0].Amount.Equal(dec("8000.00")), "80%% of the honored claim")
}

func TestFLDGService_CreateArrangement_Validation(t *testing.T) {
	f := newTestFixture()
	svc := newFLDGService(f)

	_, err := svc.CreateArrangement(context.Background(), &domain.FLDGArrangement{
		ProgramCode:  "PROG-X",
		PartnerCode:  "ORIG-1",
		Structure:    domain.FLDGSecondLoss,
		CoverPercent: dec("10"),
		TriggerDPD:   90,
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}
