package service

import (
	"context"
	"sync"

	"github.com/anvayfin/lms-backend/internal/domain"
)

// DefaultWorkerPoolSize bounds batch concurrency when no override is set
const DefaultWorkerPoolSize = 8

// BatchFailure records one account that failed inside a batch
type BatchFailure struct {
	AccountID int64            `json:"accountId"`
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// Fatal reports whether any failure was fatal enough to stop the run
func (r *BatchResult) Fatal() bool {
	for _, f := range r.Failed {
		if f.Kind == domain.KindFatal {
			return true
		}
	}
	return false
}

// runAccountBatch fans accountIDs out over a bounded worker pool and applies
// fn to each. Failures are collected per account and never abort the batch,
// with one exception: a Fatal error cancels the remaining work. Context
// cancellation stops dispatching between accounts.
func runAccountBatch(ctx context.Context, workers int, accountIDs []int64, fn func(ctx context.Context, accountID int64) error) *BatchResult {
	if workers <= 0 {
		workers = DefaultWorkerPoolSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int64)
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BatchResult
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := fn(ctx, id)

				mu.Lock()
				result.Processed++
				if err != nil {
					kind := domain.KindOf(err)
					result.Failed = append(result.Failed, BatchFailure{
						AccountID: id,
						Kind:      kind,
						Message:   err.Error(),
					})
					if kind == domain.KindFatal {
						cancel()
					}
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, id := range accountIDs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	return &result
}
