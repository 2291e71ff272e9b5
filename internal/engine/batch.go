package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/journal"
)

// batchResult pairs a candidate ID with its final classification. The
// raw artifact is already in the cache by the time a result exists.
type batchResult struct {
	ID             int64
	Classification journal.Classification
}

// processBatch fetches, caches and classifies every candidate ID
// concurrently, bounded only by the batch's own size. AccountPrivate
// pages get one authenticated re-fetch before the result is final.
// Results come back in candidate order. A non-nil error means at least
// one ID hit an unclassifiable page or the context finished; the
// frontier must not advance in either case.
func (e *Engine) processBatch(ctx context.Context, direction string, ids []int64) ([]batchResult, error) {
	start := time.Now()
	results := make([]batchResult, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			cls, err := e.processOne(ctx, id)
			results[i] = batchResult{ID: id, Classification: cls}
			errs[i] = err
		}(i, id)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	e.observer.ObserveBatch(direction, len(ids), time.Since(start))
	for _, r := range results {
		e.observer.ObserveOutcome(r.Classification.Outcome)
	}
	return results, nil
}

// processOne runs the fetch/cache/classify pipeline for a single ID.
// Truncated pages are re-fetched after the fixed retry delay; a
// registered-users-only page triggers a single authenticated re-fetch
// when credentials are configured.
func (e *Engine) processOne(ctx context.Context, id int64) (journal.Classification, error) {
	var (
		creds     *journal.Credentials
		authTried bool
	)
	for {
		raw, err := e.fetcher.Fetch(ctx, id, creds)
		if err != nil {
			return journal.Classification{}, err
		}
		if err := e.cache.Write(id, raw); err != nil {
			return journal.Classification{}, fmt.Errorf("cache journal %d: %w", id, err)
		}

		cls, err := e.classifier.Classify(id, raw)
		if err != nil {
			return journal.Classification{}, fmt.Errorf("journal %d: %w", id, err)
		}

		switch {
		case cls.Outcome == journal.OutcomeIncomplete:
			// Truncated read; the cached copy is useless.
			if err := e.cache.Delete(id); err != nil {
				return journal.Classification{}, fmt.Errorf("drop truncated artifact %d: %w", id, err)
			}
			e.logger.Warn("incomplete page, retrying",
				zap.Int64("journal_id", id),
				zap.Duration("retry_delay", e.cfg.RetryDelay),
			)
			if !e.sleep(ctx, e.cfg.RetryDelay) {
				return journal.Classification{}, ctx.Err()
			}
		case cls.Outcome == journal.OutcomeAccountPrivate && !authTried && e.creds != nil && !e.creds.Empty():
			e.logger.Debug("registered-only page, retrying with session",
				zap.Int64("journal_id", id),
			)
			creds = e.creds
			authTried = true
		default:
			return cls, nil
		}
	}
}
