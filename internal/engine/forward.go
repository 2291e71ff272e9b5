package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/journal"
)

// runForward walks toward newer IDs. The batch beyond the last
// confirmed ID is speculative: IDs are assigned monotonically, so the
// highest non-NotFound ID in the batch proves every ID below it has
// been decided, while anything above it may simply not exist yet.
func (e *Engine) runForward(ctx context.Context, lastConfirmed int64) error {
	log := e.logger.With(zap.String("direction", "forward"))
	for {
		if !e.sleep(ctx, e.cfg.BatchDelay) {
			return nil
		}

		lo := lastConfirmed + 1
		hi := lastConfirmed + int64(e.cfg.BatchSize)
		if e.cfg.Ceiling > 0 && hi > e.cfg.Ceiling {
			hi = e.cfg.Ceiling
		}
		ids := idRange(lo, hi)
		if len(ids) == 0 {
			log.Info("ceiling reached, stopping", zap.Int64("last_confirmed", lastConfirmed))
			return nil
		}

		results, err := e.processBatch(ctx, "forward", ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		frontier := int64(0)
		for _, r := range results {
			if r.Classification.Outcome != journal.OutcomeNotFound && r.ID > frontier {
				frontier = r.ID
			}
		}

		if frontier == 0 {
			// Nothing new exists yet. The artifacts are speculative
			// noise; drop them and retry the same window later.
			for _, r := range results {
				if err := e.cache.Delete(r.ID); err != nil {
					return err
				}
			}
			e.observer.ObserveEmptyBatch()
			log.Debug("empty batch, backing off",
				zap.Int64("from", lo),
				zap.Int64("to", hi),
			)
			if !e.sleep(ctx, e.cfg.EmptyBatchBackoff) {
				return nil
			}
			continue
		}

		for _, r := range results {
			if r.ID > frontier {
				// Existence unconfirmed; never assert it as missing.
				if err := e.cache.Delete(r.ID); err != nil {
					return err
				}
				continue
			}
			if err := e.persist(ctx, r); err != nil {
				return err
			}
		}

		lastConfirmed = frontier
		e.observer.SetFrontier("forward", lastConfirmed)
		log.Info("frontier advanced", zap.Int64("last_confirmed", lastConfirmed))
		e.maybeThrottle(ctx, "forward", results)
	}
}
