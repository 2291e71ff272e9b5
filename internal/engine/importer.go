package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/journal"
)

// ImportOptions bound and shape a bulk import run.
type ImportOptions struct {
	// MinID/MaxID restrict which cached artifacts are imported; MaxID
	// zero means unbounded.
	MinID int64
	MaxID int64
	// MissingField restricts the run to store rows whose payload lacks
	// this dot-separated JSON path (the repopulation workflow).
	MissingField string
	// Concurrency is the fixed worker count draining the job queue.
	Concurrency int
}

// Import re-persists journals from cached artifacts through a bounded
// worker pool, independent of the live crawl's per-batch fan-out. A
// cached logged-out view of a registered-only journal is deleted
// rather than imported, so a later repair pass re-fetches it with a
// session.
func (e *Engine) Import(ctx context.Context, opts ImportOptions) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))

	ids, err := e.cache.ListIDs(opts.MinID, opts.MaxID)
	if err != nil {
		return err
	}
	e.observer.SetArchivedFiles(len(ids))
	log.Info("import starting", zap.Int("archived_files", len(ids)))

	if opts.MissingField != "" {
		wanted, err := e.store.ListIDsMissingField(ctx, opts.MissingField)
		if err != nil {
			return err
		}
		keep := make(map[int64]struct{}, len(wanted))
		for _, id := range wanted {
			keep[id] = struct{}{}
		}
		filtered := ids[:0]
		for _, id := range ids {
			if _, ok := keep[id]; ok {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
		log.Info("filtered to rows missing field",
			zap.String("field", opts.MissingField),
			zap.Int("journals", len(ids)),
		)
	}

	jobs := make(chan int64)
	errs := make([]error, opts.Concurrency)
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for id := range jobs {
				// A failed worker keeps draining so the feed loop
				// never blocks sending to a pool with no receivers.
				if errs[w] != nil {
					continue
				}
				if err := e.importOne(ctx, id, log); err != nil {
					errs[w] = err
				}
			}
		}(w)
	}

feed:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info("import finished")
	return nil
}

func (e *Engine) importOne(ctx context.Context, id int64, log *zap.Logger) error {
	raw, err := e.cache.Read(id)
	if err != nil {
		return err
	}
	cls, err := e.classifier.Classify(id, raw)
	if err != nil {
		return fmt.Errorf("journal %d: %w", id, err)
	}
	switch cls.Outcome {
	case journal.OutcomeAccountPrivate:
		log.Warn("logged-out copy of registered-only journal, deleting",
			zap.Int64("journal_id", id),
		)
		return e.cache.Delete(id)
	case journal.OutcomeIncomplete:
		log.Warn("truncated artifact, deleting", zap.Int64("journal_id", id))
		return e.cache.Delete(id)
	}
	log.Debug("importing journal", zap.Int64("journal_id", id))
	return e.persist(ctx, batchResult{ID: id, Classification: cls})
}
