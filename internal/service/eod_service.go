package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	ws "github.com/anvayfin/lms-backend/internal/websocket"
)

// EODResult aggregates the per-phase outcomes of an end-of-day run
type EODResult struct {
	Date        time.Time    `json:"date"`
	Accrual     *BatchResult `json:"accrual"`
	Delinquency *BatchResult `json:"delinquency"`
	ECL         *BatchResult `json:"ecl,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
}

// EODService orchestrates the end-of-day batch: accruals, then delinquency,
// then ECL on the last day of the month
type EODService struct {
	accrualService     *AccrualService
	delinquencyService *DelinquencyService
	eclService         *ECLService
	publisher          ws.EventPublisher
}

// NewEODService creates a new EODService
func NewEODService(accrualService *AccrualService, delinquencyService *DelinquencyService, eclService *ECLService, publisher ws.EventPublisher) *EODService {
	if publisher == nil {
		publisher = &ws.NoOpPublisher{}
	}
	return &EODService{
		accrualService:     accrualService,
		delinquencyService: delinquencyService,
		eclService:         eclService,
		publisher:          publisher,
	}
}

// Run executes the end-of-day sequence for a business date. Phases run in
// order because delinquency reads the balances accrual wrote, and ECL reads
// the buckets delinquency wrote. Account-level failures within a phase do
// not stop the run; a fatal failure does.
func (s *EODService) Run(ctx context.Context, date time.Time) (*EODResult, error) {
	result := &EODResult{
		Date:      date,
		StartedAt: time.Now().UTC(),
	}

	log.Info().Time("date", date).Msg("EOD run started")

	accrual, err := s.accrualService.RunBatch(ctx, date)
	if err != nil {
		return nil, err
	}
	result.Accrual = accrual
	if accrual.Fatal() {
		result.FinishedAt = time.Now().UTC()
		return result, ctx.Err()
	}

	delinquency, err := s.delinquencyService.RunBatch(ctx, date)
	if err != nil {
		return nil, err
	}
	result.Delinquency = delinquency

	if isMonthEnd(date) {
		ecl, err := s.eclService.RunBatch(ctx, date)
		if err != nil {
			return nil, err
		}
		result.ECL = ecl
	}

	result.FinishedAt = time.Now().UTC()

	s.publisher.Publish(ws.TopicOperations, ws.EODCompleted(date, result.FinishedAt.Sub(result.StartedAt)))

	log.Info().
		Time("date", date).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("EOD run completed")
	return result, nil
}

// isMonthEnd reports whether date is the last calendar day of its month
func isMonthEnd(date time.Time) bool {
	return date.AddDate(0, 0, 1).Day() == 1
}
