package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// CharacterStore partially updates character documents.
type CharacterStore struct {
	client     *firestore.Client
	collection string
}

func NewCharacterStore(client *firestore.Client, collection string) *CharacterStore {
	return &CharacterStore{client: client, collection: collection}
}

// UpdateFields applies updates to characters/{characterID}. Paths may be
// dotted; sibling fields are left alone. The document must already exist.
func (s *CharacterStore) UpdateFields(ctx context.Context, characterID string, updates []firestore.Update) error {
	if _, err := s.client.Collection(s.collection).Doc(characterID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update character %s: %w", characterID, err)
	}
	return nil
}
