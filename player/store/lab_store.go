// player/store/lab_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rigforge/rig-services/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrLabNotFound is returned when a player has no stored lab board.
var ErrLabNotFound = errors.New("lab not found")

// LabStore represents the MongoDB data store for lab boards. The board is a
// small document keyed by owner, written whole on every change.
type LabStore struct {
	collection *mongo.Collection
}

// NewLabStore creates a new LabStore instance.
func NewLabStore(collection *mongo.Collection) *LabStore {
	return &LabStore{
		collection: collection,
	}
}

// GetLab retrieves a player's lab board.
func (ls *LabStore) GetLab(ctx context.Context, ownerID string) (*models.Lab, error) {
	var lab models.Lab
	filter := bson.M{"_id": ownerID}
	err := ls.collection.FindOne(ctx, filter).Decode(&lab)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: owner %s", ErrLabNotFound, ownerID)
		}
		return nil, fmt.Errorf("failed to get lab for owner %s: %w", ownerID, err)
	}
	return &lab, nil
}

// EnsureLab inserts the given board if the owner has none yet, then returns
// whatever is stored. An existing board is never touched.
func (ls *LabStore) EnsureLab(ctx context.Context, lab *models.Lab) (*models.Lab, error) {
	filter := bson.M{"_id": lab.OwnerID}
	update := bson.M{"$setOnInsert": lab}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.Lab
	err := ls.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure lab for owner %s: %w", lab.OwnerID, err)
	}
	return &stored, nil
}

// SaveLab replaces a player's board, stamping a fresh updated_at.
func (ls *LabStore) SaveLab(ctx context.Context, lab *models.Lab) error {
	now := time.Now()
	lab.UpdatedAt = &now

	filter := bson.M{"_id": lab.OwnerID}
	opts := options.Replace().SetUpsert(true)
	if _, err := ls.collection.ReplaceOne(ctx, filter, lab, opts); err != nil {
		return fmt.Errorf("failed to save lab for owner %s: %w", lab.OwnerID, err)
	}
	return nil
}
