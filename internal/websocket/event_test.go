package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{"accountId": float64(7)}
	evt := NewEvent(EventTypeApplied, EntityTypePayment, payload)

	assert.Equal(t, "payment.applied", evt.Type)
	assert.Equal(t, EntityTypePayment, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.WithinDuration(t, time.Now().UTC(), evt.Timestamp, time.Second)
}

func TestEvent_ToJSON(t *testing.T) {
	evt := PaymentApplied(map[string]interface{}{"id": float64(11)})

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "payment.applied", decoded["type"])
	assert.Equal(t, "payment", decoded["entity"])
	payload, ok := decoded["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(11), payload["id"])
}

func TestEventConstructors(t *testing.T) {
	tests := []struct {
		name       string
		event      Event
		wantType   string
		wantEntity EntityType
	}{
		{"payment applied", PaymentApplied(nil), "payment.applied", EntityTypePayment},
		{"restructure applied", RestructureApplied(nil), "restructure.applied", EntityTypeRestructure},
		{"prepayment applied", PrepaymentApplied(nil), "prepayment.applied", EntityTypePrepayment},
		{"rate reset", RateResetApplied(nil), "rate.reset", EntityTypeRate},
		{"fldg claimed", FLDGClaimed(nil), "fldg.claimed", EntityTypeFLDG},
		{"accrual batch", AccrualBatchCompleted(nil), "accrual_batch.completed", EntityTypeAccrual},
		{"delinquency batch", DelinquencyBatchCompleted(nil), "delinquency_batch.completed", EntityTypeDelinquency},
		{"ecl run", ECLRunCompleted(nil), "ecl_run.completed", EntityTypeECL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.event.Type)
			assert.Equal(t, tt.wantEntity, tt.event.Entity)
		})
	}
}

func TestEODCompleted(t *testing.T) {
	date := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	evt := EODCompleted(date, 1500*time.Millisecond)

	assert.Equal(t, "eod.completed", evt.Type)
	payload, ok := evt.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2024-06-30", payload["date"])
	assert.Equal(t, int64(1500), payload["elapsedMs"])
}
