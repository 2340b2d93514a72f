package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/showcaseworker/internal/models"
)

// StatusTracker reports pipeline progress on the character document. It is a
// sink, not a state machine: it writes whatever status it is given, and the
// orchestrator is responsible for calling it in order.
type StatusTracker struct {
	docs DocumentStore
}

func NewStatusTracker(docs DocumentStore) *StatusTracker {
	return &StatusTracker{docs: docs}
}

// Report sets visuals.showcaseProcessingStatus and nothing else.
func (t *StatusTracker) Report(ctx context.Context, key models.JobKey, status models.ShowcaseStatus) error {
	updates := []firestore.Update{
		{Path: models.FieldShowcaseStatus, Value: string(status)},
	}
	if err := t.docs.UpdateFields(ctx, key.CharacterID, updates); err != nil {
		return fmt.Errorf("%w: failed to set status %q: %w", models.ErrPersistence, status, err)
	}
	return nil
}
