package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faarchive/journaliser/internal/journal"
)

func TestProcessOneRetriesIncompletePages(t *testing.T) {
	h := newHarness(t, fastConfig(), nil)
	// First fetch is truncated, second parses fine.
	h.classifier.byRaw["anon:8:1"] = journal.Classification{Outcome: journal.OutcomeIncomplete}
	h.classifier.byRaw["anon:8:2"] = okClassification(3)

	cls, err := h.engine.processOne(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, journal.OutcomeOK, cls.Outcome)
	assert.Equal(t, 2, h.fetcher.fetchCount(8))

	// The cache holds the good copy, not the truncated one.
	raw, err := h.cache.Read(8)
	require.NoError(t, err)
	assert.Equal(t, "anon:8:2", string(raw))
}

func TestProcessOneRetriesPrivateWithSession(t *testing.T) {
	creds := &journal.Credentials{CookieA: "a", CookieB: "b"}
	h := newHarness(t, fastConfig(), creds)
	h.classifier.byRaw["anon:9:1"] = journal.Classification{Outcome: journal.OutcomeAccountPrivate}
	h.classifier.byRaw["auth:9:2"] = okClassification(3)

	cls, err := h.engine.processOne(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, journal.OutcomeOK, cls.Outcome)
	assert.Equal(t, 1, h.fetcher.withCreds[9])
}

func TestProcessOnePrivateStaysPrivateAfterRetry(t *testing.T) {
	creds := &journal.Credentials{CookieA: "a", CookieB: "b"}
	h := newHarness(t, fastConfig(), creds)
	h.classifier.byID[9] = journal.Classification{Outcome: journal.OutcomeAccountPrivate}

	cls, err := h.engine.processOne(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, journal.OutcomeAccountPrivate, cls.Outcome)
	// One anonymous fetch plus exactly one authenticated retry.
	assert.Equal(t, 2, h.fetcher.fetchCount(9))
	assert.Equal(t, 1, h.fetcher.withCreds[9])
}

func TestProcessOnePrivateWithoutCredentials(t *testing.T) {
	h := newHarness(t, fastConfig(), nil)
	h.classifier.byID[9] = journal.Classification{Outcome: journal.OutcomeAccountPrivate}

	cls, err := h.engine.processOne(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, journal.OutcomeAccountPrivate, cls.Outcome)
	assert.Equal(t, 1, h.fetcher.fetchCount(9))
}

func TestProcessBatchKeepsCandidateOrder(t *testing.T) {
	h := newHarness(t, fastConfig(), nil)
	ids := []int64{3, 1, 2}
	for _, id := range ids {
		h.classifier.byID[id] = okClassification(0)
	}

	results, err := h.engine.processBatch(context.Background(), "test", ids)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, id := range ids {
		assert.Equal(t, id, results[i].ID)
	}
}

func TestProcessBatchPropagatesClassifierFailure(t *testing.T) {
	h := newHarness(t, fastConfig(), nil)
	h.classifier.failID = 2
	h.classifier.byID[1] = okClassification(0)

	_, err := h.engine.processBatch(context.Background(), "test", []int64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("journal %d", 2))
}
