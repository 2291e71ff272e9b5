package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/journal"
)

// Repair reconciles the artifact cache and the record store against the
// dense ID range both should cover. Artifact gaps first (IDs never
// attempted), then store gaps (IDs attempted but whose local copy may
// be known-bad).
func (e *Engine) Repair(ctx context.Context) error {
	if err := e.repairArtifactGaps(ctx); err != nil {
		return fmt.Errorf("repair artifact gaps: %w", err)
	}
	if err := e.repairRecordGaps(ctx); err != nil {
		return fmt.Errorf("repair record gaps: %w", err)
	}
	return nil
}

// repairArtifactGaps fetches and persists every ID missing from the
// cache between its lowest and highest archived IDs.
func (e *Engine) repairArtifactGaps(ctx context.Context) error {
	ids, err := e.cache.ListIDs(0, 0)
	if err != nil {
		return err
	}
	e.observer.SetArchivedFiles(len(ids))
	if len(ids) < 2 {
		return nil
	}

	prev := ids[0]
	for _, next := range ids[1:] {
		for missing := prev + 1; missing < next; missing++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Info("missing artifact, fetching", zap.Int64("journal_id", missing))
			if err := e.fetchAndPersist(ctx, missing); err != nil {
				return err
			}
		}
		prev = next
	}
	return nil
}

// repairRecordGaps persists every ID missing from the store between its
// known bounds. A cached artifact is reused unless its classification
// says the local copy is useless (truncated, a not-found page, or a
// logged-out view of a registered-only journal); those are re-fetched.
func (e *Engine) repairRecordGaps(ctx context.Context) error {
	lo, hi, ok, err := e.store.Bounds(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	present, err := e.store.ListIDsInRange(ctx, lo, hi)
	if err != nil {
		return err
	}
	have := make(map[int64]struct{}, len(present))
	for _, id := range present {
		have[id] = struct{}{}
	}

	for id := lo; id <= hi; id++ {
		if _, exists := have[id]; exists {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.repairRecord(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) repairRecord(ctx context.Context, id int64) error {
	exists, err := e.cache.Exists(id)
	if err != nil {
		return err
	}
	if !exists {
		e.logger.Info("missing record with no artifact, fetching", zap.Int64("journal_id", id))
		return e.fetchAndPersist(ctx, id)
	}

	raw, err := e.cache.Read(id)
	if err != nil {
		return err
	}
	cls, err := e.classifier.Classify(id, raw)
	if err != nil {
		return fmt.Errorf("journal %d: %w", id, err)
	}
	switch cls.Outcome {
	case journal.OutcomeIncomplete, journal.OutcomeNotFound, journal.OutcomeAccountPrivate:
		e.logger.Info("stale artifact, re-fetching",
			zap.Int64("journal_id", id),
			zap.String("outcome", string(cls.Outcome)),
		)
		if err := e.cache.Delete(id); err != nil {
			return err
		}
		return e.fetchAndPersist(ctx, id)
	default:
		return e.persist(ctx, batchResult{ID: id, Classification: cls})
	}
}

func (e *Engine) fetchAndPersist(ctx context.Context, id int64) error {
	results, err := e.processBatch(ctx, "repair", []int64{id})
	if err != nil {
		return err
	}
	return e.persist(ctx, results[0])
}

// Check classifies every cached artifact in [min, max] (max 0 meaning
// unbounded) and returns a tally per outcome.
func (e *Engine) Check(ctx context.Context, min, max int64) (map[journal.Outcome]int, error) {
	ids, err := e.cache.ListIDs(min, max)
	if err != nil {
		return nil, err
	}
	e.observer.SetArchivedFiles(len(ids))

	tally := make(map[journal.Outcome]int)
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raw, err := e.cache.Read(id)
		if err != nil {
			return nil, err
		}
		cls, err := e.classifier.Classify(id, raw)
		if err != nil {
			return nil, fmt.Errorf("journal %d: %w", id, err)
		}
		tally[cls.Outcome]++
		e.logger.Debug("checked artifact",
			zap.Int64("journal_id", id),
			zap.String("outcome", string(cls.Outcome)),
		)
	}
	return tally, nil
}
