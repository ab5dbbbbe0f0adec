package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeApplied   EventType = "applied"
	EventTypeCompleted EventType = "completed"
	EventTypeReset     EventType = "reset"
	EventTypeClaimed   EventType = "claimed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePayment     EntityType = "payment"
	EntityTypeRestructure EntityType = "restructure"
	EntityTypePrepayment  EntityType = "prepayment"
	EntityTypeRate        EntityType = "rate"
	EntityTypeFLDG        EntityType = "fldg"
	EntityTypeEOD         EntityType = "eod"
	EntityTypeAccrual     EntityType = "accrual_batch"
	EntityTypeDelinquency EntityType = "delinquency_batch"
	EntityTypeECL         EntityType = "ecl_run"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.applied"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "payment"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentApplied creates a payment.applied event
func PaymentApplied(payload interface{}) Event {
	return NewEvent(EventTypeApplied, EntityTypePayment, payload)
}

// RestructureApplied creates a restructure.applied event
func RestructureApplied(payload interface{}) Event {
	return NewEvent(EventTypeApplied, EntityTypeRestructure, payload)
}

// PrepaymentApplied creates a prepayment.applied event
func PrepaymentApplied(payload interface{}) Event {
	return NewEvent(EventTypeApplied, EntityTypePrepayment, payload)
}

// RateResetApplied creates a rate.reset event
func RateResetApplied(payload interface{}) Event {
	return NewEvent(EventTypeReset, EntityTypeRate, payload)
}

// FLDGClaimed creates a fldg.claimed event
func FLDGClaimed(payload interface{}) Event {
	return NewEvent(EventTypeClaimed, EntityTypeFLDG, payload)
}

// EODCompleted creates an eod.completed event carrying the business date and
// how long the run took
func EODCompleted(date time.Time, elapsed time.Duration) Event {
	return NewEvent(EventTypeCompleted, EntityTypeEOD, map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"elapsedMs": elapsed.Milliseconds(),
	})
}

// AccrualBatchCompleted creates an accrual_batch.completed event
func AccrualBatchCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypeAccrual, payload)
}

// DelinquencyBatchCompleted creates a delinquency_batch.completed event
func DelinquencyBatchCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypeDelinquency, payload)
}

// ECLRunCompleted creates an ecl_run.completed event
func ECLRunCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypeECL, payload)
}
