package journal

import (
	"context"
	"time"
)

// Fetcher retrieves the raw page for a journal ID. Implementations
// retry transport failures internally; an error return means the
// context finished before a fetch succeeded.
type Fetcher interface {
	Fetch(ctx context.Context, id int64, creds *Credentials) ([]byte, error)
}

// ArtifactCache stores raw page bytes keyed by journal ID, sharded on
// disk so no directory grows unbounded.
type ArtifactCache interface {
	Write(id int64, data []byte) error
	Read(id int64) ([]byte, error)
	Exists(id int64) (bool, error)
	Delete(id int64) error
	// ListIDs returns the sorted archived IDs within [min, max].
	// A max of 0 means no upper bound.
	ListIDs(min, max int64) ([]int64, error)
}

// RecordStore persists one current record per journal ID.
type RecordStore interface {
	// Upsert inserts or replaces the row for rec.JournalID.
	Upsert(ctx context.Context, rec PersistedRecord) error
	// Update replaces an existing row and errors if the ID is absent.
	Update(ctx context.Context, rec PersistedRecord) error
	ListIDsInRange(ctx context.Context, min, max int64) ([]int64, error)
	// ListIDsMissingField returns IDs whose payload lacks the given
	// JSON path (dot-separated), used by the repopulation workflow.
	ListIDsMissingField(ctx context.Context, jsonPath string) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	// Bounds returns the min and max known IDs; ok is false when the
	// store is empty.
	Bounds(ctx context.Context) (min, max int64, ok bool, err error)
}

// Observer receives engine progress events. Injected so the engine
// carries no process-wide metric state.
type Observer interface {
	ObserveBatch(direction string, size int, dur time.Duration)
	ObserveOutcome(outcome Outcome)
	ObserveEmptyBatch()
	ObservePeakThrottle()
	ObserveFetchRetry()
	SetFrontier(direction string, id int64)
	SetArchivedFiles(n int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ObserveBatch(string, int, time.Duration) {}
func (NopObserver) ObserveOutcome(Outcome)                  {}
func (NopObserver) ObserveEmptyBatch()                      {}
func (NopObserver) ObservePeakThrottle()                    {}
func (NopObserver) ObserveFetchRetry()                      {}
func (NopObserver) SetFrontier(string, int64)               {}
func (NopObserver) SetArchivedFiles(int)                    {}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
