package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/faarchive/journaliser/internal/journal"
)

func TestObserverRecordsEngineEvents(t *testing.T) {
	obs := NewObserver()

	obs.ObserveBatch("forward", 5, 250*time.Millisecond)
	obs.ObserveBatch("forward", 5, 100*time.Millisecond)
	obs.ObserveOutcome(journal.OutcomeOK)
	obs.ObserveOutcome(journal.OutcomeNotFound)
	obs.ObserveOutcome(journal.OutcomeNotFound)
	obs.ObserveEmptyBatch()
	obs.ObservePeakThrottle()
	obs.ObserveFetchRetry()
	obs.SetFrontier("forward", 10923900)
	obs.SetFrontier("backward", 5000)
	obs.SetArchivedFiles(1234)

	if got := testutil.ToFloat64(obs.batchesTotal.WithLabelValues("forward")); got != 2 {
		t.Errorf("expected 2 forward batches, got %f", got)
	}
	if got := testutil.ToFloat64(obs.batchCandidatesTotal.WithLabelValues("forward")); got != 10 {
		t.Errorf("expected 10 candidates, got %f", got)
	}
	if got := testutil.ToFloat64(obs.outcomesTotal.WithLabelValues("not_found")); got != 2 {
		t.Errorf("expected 2 not-found outcomes, got %f", got)
	}
	if got := testutil.ToFloat64(obs.emptyBatchesTotal); got != 1 {
		t.Errorf("expected 1 empty batch, got %f", got)
	}
	if got := testutil.ToFloat64(obs.frontierID.WithLabelValues("forward")); got != 10923900 {
		t.Errorf("expected forward frontier gauge, got %f", got)
	}
	if got := testutil.ToFloat64(obs.archivedFiles); got != 1234 {
		t.Errorf("expected archived files gauge, got %f", got)
	}
}

func TestObserversAreIndependent(t *testing.T) {
	a := NewObserver()
	b := NewObserver()
	a.ObserveEmptyBatch()

	if got := testutil.ToFloat64(b.emptyBatchesTotal); got != 0 {
		t.Errorf("expected isolated registries, got %f", got)
	}
}
