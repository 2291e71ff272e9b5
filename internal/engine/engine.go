// Package engine drives the bidirectional journal crawl: forward
// discovery with speculative look-ahead, backward backfill, gap
// repair, and bulk re-import from cached artifacts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/clock/system"
	"github.com/faarchive/journaliser/internal/journal"
)

// Classifier turns one fetched page into a typed outcome.
type Classifier interface {
	Classify(id int64, raw []byte) (journal.Classification, error)
}

// Config controls pacing, bounds and throttling.
type Config struct {
	// StartID seeds the crawl when both the record store and the
	// artifact cache are empty.
	StartID int64
	// BatchSize bounds per-worker fetch fan-out.
	BatchSize int
	// BatchDelay is the fixed sleep between consecutive batches.
	BatchDelay time.Duration
	// EmptyBatchBackoff applies when a forward batch is all NotFound.
	EmptyBatchBackoff time.Duration
	// RetryDelay applies before re-fetching a truncated page.
	RetryDelay time.Duration
	// Floor is the exclusive lower bound for the backward worker.
	Floor int64
	// Ceiling is the inclusive upper bound for the forward worker;
	// zero means crawl forward forever.
	Ceiling int64
	// PeakRegisteredThreshold is the registered-users-online count at
	// which the site is considered under peak load.
	PeakRegisteredThreshold int
	// PeakBackoff is the extra sleep applied while under peak load.
	PeakBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.StartID == 0 {
		c.StartID = 10923887
	}
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = time.Second
	}
	if c.EmptyBatchBackoff == 0 {
		c.EmptyBatchBackoff = 10 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 15 * time.Second
	}
	if c.PeakRegisteredThreshold == 0 {
		c.PeakRegisteredThreshold = 10000
	}
	if c.PeakBackoff == 0 {
		c.PeakBackoff = 30 * time.Second
	}
	return c
}

// Engine owns the crawl loops. Construct with New; all collaborators
// are required except creds and observer.
type Engine struct {
	fetcher    journal.Fetcher
	cache      journal.ArtifactCache
	store      journal.RecordStore
	classifier Classifier
	creds      *journal.Credentials
	observer   journal.Observer
	clock      journal.Clock
	logger     *zap.Logger
	cfg        Config
}

// New constructs an Engine.
func New(
	fetcher journal.Fetcher,
	cache journal.ArtifactCache,
	store journal.RecordStore,
	classifier Classifier,
	creds *journal.Credentials,
	observer journal.Observer,
	clock journal.Clock,
	cfg Config,
	logger *zap.Logger,
) (*Engine, error) {
	if fetcher == nil || cache == nil || store == nil || classifier == nil {
		return nil, errors.New("engine: fetcher, cache, store and classifier are required")
	}
	if observer == nil {
		observer = journal.NopObserver{}
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fetcher:    fetcher,
		cache:      cache,
		store:      store,
		classifier: classifier,
		creds:      creds,
		observer:   observer,
		clock:      clock,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}, nil
}

// Run starts the forward and backward workers and blocks until both
// terminate. In practice only the forward worker terminates on its own
// (when a ceiling is configured); the run otherwise ends when the
// context finishes and the in-flight batches complete.
func (e *Engine) Run(ctx context.Context) error {
	forwardFrom, backwardFrom, err := e.bootstrapFrontier(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap frontier: %w", err)
	}
	e.logger.Info("crawl starting",
		zap.Int64("forward_from", forwardFrom),
		zap.Int64("backward_from", backwardFrom),
		zap.Int("batch_size", e.cfg.BatchSize),
	)

	var (
		wg          sync.WaitGroup
		forwardErr  error
		backwardErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		forwardErr = e.runForward(ctx, forwardFrom)
	}()
	go func() {
		defer wg.Done()
		backwardErr = e.runBackward(ctx, backwardFrom)
	}()
	wg.Wait()
	return errors.Join(forwardErr, backwardErr)
}

// bootstrapFrontier recomputes the two frontiers from durable state.
// Preference order: record store bounds, artifact cache bounds, then a
// fresh seed fetch of StartID.
func (e *Engine) bootstrapFrontier(ctx context.Context) (forward, backward int64, err error) {
	lo, hi, ok, err := e.store.Bounds(ctx)
	if err != nil {
		return 0, 0, err
	}
	if ok {
		return hi, lo, nil
	}

	ids, err := e.cache.ListIDs(0, 0)
	if err != nil {
		return 0, 0, err
	}
	if len(ids) > 0 {
		return ids[len(ids)-1], ids[0], nil
	}

	seed := e.cfg.StartID
	e.logger.Info("store and cache empty, seeding crawl", zap.Int64("journal_id", seed))
	results, err := e.processBatch(ctx, "seed", []int64{seed})
	if err != nil {
		return 0, 0, err
	}
	if err := e.persist(ctx, results[0]); err != nil {
		return 0, 0, err
	}
	return seed, seed, nil
}

// sleep waits for d or for the context to finish, whichever is first.
// Returns false when the context finished.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// maybeThrottle inspects the batch's site-status snapshots and applies
// the peak-load backoff when the registered-user count crosses the
// configured threshold.
func (e *Engine) maybeThrottle(ctx context.Context, direction string, results []batchResult) {
	peak := 0
	for _, r := range results {
		if rec := r.Classification.Record; rec != nil && rec.SiteStatus.Online.Registered > peak {
			peak = rec.SiteStatus.Online.Registered
		}
	}
	if peak < e.cfg.PeakRegisteredThreshold {
		return
	}
	e.observer.ObservePeakThrottle()
	e.logger.Info("peak load detected, throttling",
		zap.String("direction", direction),
		zap.Int("registered_online", peak),
		zap.Duration("backoff", e.cfg.PeakBackoff),
	)
	e.sleep(ctx, e.cfg.PeakBackoff)
}

// Inspect fetches one journal and returns its classification without
// persisting anything to the record store. The raw artifact is still
// written through to the cache.
func (e *Engine) Inspect(ctx context.Context, id int64) (journal.Classification, error) {
	return e.processOne(ctx, id)
}

func idRange(lo, hi int64) []int64 {
	if hi < lo {
		return nil
	}
	ids := make([]int64, 0, hi-lo+1)
	for id := lo; id <= hi; id++ {
		ids = append(ids, id)
	}
	return ids
}
