package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faarchive/journaliser/internal/journal"
)

var persistClock = fixedClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

func TestBuildRecordOK(t *testing.T) {
	cls := okClassification(7)
	cls.LoginUser = "archivist"
	rec, err := buildRecord(batchResult{ID: 42, Classification: cls}, persistClock)
	require.NoError(t, err)

	assert.Equal(t, int64(42), rec.JournalID)
	assert.False(t, rec.IsDeleted)
	assert.Nil(t, rec.ErrorKind)
	require.NotNil(t, rec.PayloadJSON)
	assert.Contains(t, *rec.PayloadJSON, `"registered":7`)
	require.NotNil(t, rec.IdentityUsed)
	assert.Equal(t, "archivist", *rec.IdentityUsed)
	assert.Equal(t, persistClock.t, rec.ArchivedAt)
}

func TestBuildRecordErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		cls  journal.Classification
		want string
	}{
		{
			name: "not found",
			cls:  journal.Classification{Outcome: journal.OutcomeNotFound},
			want: "Journal not found",
		},
		{
			name: "registered users only",
			cls:  journal.Classification{Outcome: journal.OutcomeAccountPrivate},
			want: "Registered users only",
		},
		{
			name: "account disabled",
			cls: journal.Classification{
				Outcome:          journal.OutcomeAccountDisabled,
				DisabledUsername: "somedude",
			},
			want: "Account disabled: somedude",
		},
		{
			name: "pending deletion",
			cls: journal.Classification{
				Outcome:           journal.OutcomePendingDeletion,
				DeletionRequestor: "the administration",
			},
			want: "Pending deletion by the administration",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := buildRecord(batchResult{ID: 7, Classification: tc.cls}, persistClock)
			require.NoError(t, err)
			assert.True(t, rec.IsDeleted)
			require.NotNil(t, rec.ErrorKind)
			assert.Equal(t, tc.want, *rec.ErrorKind)
			assert.Nil(t, rec.PayloadJSON)
		})
	}
}

func TestBuildRecordRejectsSystemError(t *testing.T) {
	_, err := buildRecord(batchResult{
		ID:             7,
		Classification: journal.Classification{Outcome: journal.OutcomeSystemError, Message: "boom"},
	}, persistClock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestBuildRecordRejectsIncomplete(t *testing.T) {
	_, err := buildRecord(batchResult{
		ID:             7,
		Classification: journal.Classification{Outcome: journal.OutcomeIncomplete},
	}, persistClock)
	require.Error(t, err)
}

// Building the same classification twice yields identical rows, so
// re-processing an artifact is a safe replacement, not a mutation.
func TestBuildRecordIdempotent(t *testing.T) {
	cls := okClassification(3)
	first, err := buildRecord(batchResult{ID: 9, Classification: cls}, persistClock)
	require.NoError(t, err)
	second, err := buildRecord(batchResult{ID: 9, Classification: cls}, persistClock)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
