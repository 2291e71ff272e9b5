package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faarchive/journaliser/internal/journal"
)

// Error-kind strings written to the record store. Stable: repair and
// reporting tooling match on them.
const (
	errKindNotFound        = "Journal not found"
	errKindAccountPrivate  = "Registered users only"
	errKindAccountDisabled = "Account disabled"
	errKindPendingDeletion = "Pending deletion"
)

// buildRecord maps a final classification onto the store's row shape.
// Exactly one of the error path and the payload is populated.
// OutcomeIncomplete never reaches persistence and OutcomeSystemError is
// fatal for the calling worker; both return an error here.
func buildRecord(r batchResult, clock journal.Clock) (journal.PersistedRecord, error) {
	rec := journal.PersistedRecord{
		JournalID:  r.ID,
		ArchivedAt: clock.Now(),
	}
	if u := r.Classification.LoginUser; u != "" {
		rec.IdentityUsed = &u
	}

	switch r.Classification.Outcome {
	case journal.OutcomeOK:
		payload, err := json.Marshal(r.Classification.Record)
		if err != nil {
			return journal.PersistedRecord{}, fmt.Errorf("encode journal %d: %w", r.ID, err)
		}
		s := string(payload)
		rec.PayloadJSON = &s
	case journal.OutcomeNotFound:
		rec.IsDeleted = true
		kind := errKindNotFound
		rec.ErrorKind = &kind
	case journal.OutcomeAccountPrivate:
		rec.IsDeleted = true
		kind := errKindAccountPrivate
		rec.ErrorKind = &kind
	case journal.OutcomeAccountDisabled:
		rec.IsDeleted = true
		kind := fmt.Sprintf("%s: %s", errKindAccountDisabled, r.Classification.DisabledUsername)
		rec.ErrorKind = &kind
	case journal.OutcomePendingDeletion:
		rec.IsDeleted = true
		kind := fmt.Sprintf("%s by %s", errKindPendingDeletion, r.Classification.DeletionRequestor)
		rec.ErrorKind = &kind
	case journal.OutcomeSystemError:
		return journal.PersistedRecord{}, fmt.Errorf("journal %d: site system error: %s", r.ID, r.Classification.Message)
	default:
		return journal.PersistedRecord{}, fmt.Errorf("journal %d: outcome %q cannot be persisted", r.ID, r.Classification.Outcome)
	}
	return rec, nil
}

// persist upserts one classified journal.
func (e *Engine) persist(ctx context.Context, r batchResult) error {
	rec, err := buildRecord(r, e.clock)
	if err != nil {
		return err
	}
	return e.store.Upsert(ctx, rec)
}
