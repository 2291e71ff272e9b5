package engine

import (
	"context"

	"go.uber.org/zap"
)

// runBackward walks toward older IDs. Below an already-confirmed point
// there is no frontier ambiguity: a missing lower ID is a permanent
// fact, so every batch member is persisted unconditionally.
func (e *Engine) runBackward(ctx context.Context, oldestConfirmed int64) error {
	log := e.logger.With(zap.String("direction", "backward"))
	for {
		if !e.sleep(ctx, e.cfg.BatchDelay) {
			return nil
		}

		hi := oldestConfirmed - 1
		lo := oldestConfirmed - int64(e.cfg.BatchSize)
		if lo <= e.cfg.Floor {
			lo = e.cfg.Floor + 1
		}
		ids := idRange(lo, hi)
		if len(ids) == 0 {
			log.Info("floor reached, stopping", zap.Int64("oldest_confirmed", oldestConfirmed))
			return nil
		}

		results, err := e.processBatch(ctx, "backward", ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, r := range results {
			if err := e.persist(ctx, r); err != nil {
				return err
			}
		}

		oldestConfirmed = lo
		e.observer.SetFrontier("backward", oldestConfirmed)
		log.Info("frontier advanced", zap.Int64("oldest_confirmed", oldestConfirmed))
		e.maybeThrottle(ctx, "backward", results)
	}
}
