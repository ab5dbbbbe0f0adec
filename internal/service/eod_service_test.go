package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/anvayfin/lms-backend/internal/websocket"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []ws.Event
}

func (p *capturePublisher) Publish(topic string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
}

func newEODService(f *testFixture, publisher ws.EventPublisher) *EODService {
	return NewEODService(newAccrualService(f), newDelinquencyService(f), newECLService(f), publisher)
}

func TestEODService_Run_MidMonth(t *testing.T) {
	f := newTestFixture()
	publisher := &capturePublisher{}
	svc := newEODService(f, publisher)
	f.seedEMIAccount()

	result, err := svc.Run(context.Background(), date(2024, time.January, 15))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accrual.Succeeded)
	assert.Equal(t, 1, result.Delinquency.Succeeded)
	assert.Nil(t, result.ECL, "ECL only runs at month end")
	assert.False(t, result.FinishedAt.Before(result.StartedAt))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, ws.TopicOperations, publisher.topics[0])
	assert.Equal(t, ws.EntityTypeEOD, publisher.events[0].Entity)
	assert.Equal(t, "eod.completed", publisher.events[0].Type)
}

func TestEODService_Run_MonthEnd(t *testing.T) {
	f := newTestFixture()
	svc := newEODService(f, nil)
	f.seedEMIAccount()

	result, err := svc.Run(context.Background(), date(2024, time.January, 31))
	require.NoError(t, err)

	require.NotNil(t, result.ECL)
	assert.Equal(t, 1, result.ECL.Succeeded)
}

func TestEODService_Run_AccrualWrites(t *testing.T) {
	f := newTestFixture()
	svc := newEODService(f, nil)
	account := f.seedEMIAccount()

	_, err := svc.Run(context.Background(), date(2024, time.January, 2))
	require.NoError(t, err)

	accruals, err := f.accruals.ListByAccount(context.Background(), account.ID,
		date(2024, time.January, 1), date(2024, time.January, 31))
	require.NoError(t, err)
	require.Len(t, accruals, 1)
	// 100000 at 12% ACT/365 for one day
	assert.True(t, accruals[0].Amount.Equal(dec("32.88")))
}

func TestEODService_Run_Rerun(t *testing.T) {
	f := newTestFixture()
	svc := newEODService(f, nil)
	f.seedEMIAccount()
	f.seedEMIAccount()

	// Rerunning the same date is idempotent: already-accrued accounts count
	// as succeeded and no second accrual is booked.
	_, err := svc.Run(context.Background(), date(2024, time.January, 2))
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), date(2024, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accrual.Processed)
	assert.Equal(t, 2, result.Accrual.Succeeded)
	assert.Empty(t, result.Accrual.Failed)
	assert.Equal(t, 2, result.Delinquency.Succeeded)
}

func TestIsMonthEnd(t *testing.T) {
	tests := []struct {
		date time.Time
		want bool
	}{
		{date(2024, time.January, 31), true},
		{date(2024, time.January, 30), false},
		{date(2024, time.February, 29), true},
		{date(2024, time.February, 28), false},
		{date(2023, time.February, 28), true},
		{date(2024, time.December, 31), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isMonthEnd(tt.date), "%s", tt.date.Format("2006-01-02"))
	}
}
