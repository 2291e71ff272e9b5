package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackwardPersistsEveryBatchMember(t *testing.T) {
	cfg := fastConfig()
	cfg.Floor = 4
	h := newHarness(t, cfg, nil)
	// 6 and 8 exist, the rest of 5..9 are permanent gaps.
	h.classifier.byID[6] = okClassification(0)
	h.classifier.byID[8] = okClassification(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// One batch of 5..9, then the floor stops the worker.
	require.NoError(t, h.engine.runBackward(ctx, 10))

	assert.Equal(t, []int64{5, 6, 7, 8, 9}, h.store.storedIDs())
	assert.Equal(t, int64(5), h.observer.frontier("backward"))

	gap := h.store.record(t, 7)
	assert.True(t, gap.IsDeleted)
	ok := h.store.record(t, 8)
	assert.False(t, ok.IsDeleted)
}

func TestBackwardStopsAtFloorImmediately(t *testing.T) {
	cfg := fastConfig()
	cfg.Floor = 9
	h := newHarness(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.engine.runBackward(ctx, 10))
	assert.Empty(t, h.store.storedIDs())
}

func TestBackwardClipsBatchToFloor(t *testing.T) {
	cfg := fastConfig()
	cfg.BatchSize = 100
	h := newHarness(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Floor defaults to zero, so the batch is clipped to 1..2.
	require.NoError(t, h.engine.runBackward(ctx, 3))
	assert.Equal(t, []int64{1, 2}, h.store.storedIDs())
}

func TestBackwardPeakThrottle(t *testing.T) {
	cfg := fastConfig()
	cfg.Floor = 19
	cfg.BatchSize = 1
	h := newHarness(t, cfg, nil)
	h.classifier.byID[20] = okClassification(50000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.engine.runBackward(ctx, 21))
	assert.Equal(t, 1, h.observer.peakThrottles)
}
