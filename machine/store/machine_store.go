// machine/store/machine_store.go
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

// Store-level errors. Services translate these into their own sentinels.
var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrVersionConflict = errors.New("machine was modified concurrently")
)

// MachineStore represents the MongoDB data store for machine documents.
type MachineStore struct {
	collection *mongo.Collection
}

// NewMachineStore creates a new MachineStore instance.
func NewMachineStore(collection *mongo.Collection) *MachineStore {
	return &MachineStore{
		collection: collection,
	}
}

// GetMachine retrieves a machine document by its ID.
func (ms *MachineStore) GetMachine(ctx context.Context, machineID string) (*models.Machine, error) {
	var machine models.Machine
	filter := bson.M{"_id": machineID}
	err := ms.collection.FindOne(ctx, filter).Decode(&machine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to get machine %s: %w", machineID, err)
	}
	return &machine, nil
}

// EnsureMachine inserts the given machine document if no document with its ID
// exists yet, then returns whatever is stored. An existing document is never
// touched, so concurrent ensures for the same ID are safe.
func (ms *MachineStore) EnsureMachine(ctx context.Context, machine *models.Machine) (*models.Machine, error) {
	filter := bson.M{"_id": machine.ID}
	update := bson.M{"$setOnInsert": machine}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.Machine
	err := ms.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure machine %s: %w", machine.ID, err)
	}
	return &stored, nil
}

// UpdateMachineCAS replaces the machine document only if its updated_at still
// matches expectedUpdatedAt, stamping a fresh updated_at on success. Returns
// ErrVersionConflict when another writer got there first so the caller can
// re-read and retry.
func (ms *MachineStore) UpdateMachineCAS(ctx context.Context, machine *models.Machine, expectedUpdatedAt *time.Time) error {
	now := time.Now()
	machine.UpdatedAt = &now

	filter := bson.M{"_id": machine.ID, "updated_at": expectedUpdatedAt}
	res, err := ms.collection.ReplaceOne(ctx, filter, machine)
	if err != nil {
		return fmt.Errorf("failed to update machine %s: %w", machine.ID, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a missing document.
		count, countErr := ms.collection.CountDocuments(ctx, bson.M{"_id": machine.ID})
		if countErr != nil {
			return fmt.Errorf("failed to update machine %s: %w", machine.ID, countErr)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrMachineNotFound, machine.ID)
		}
		return fmt.Errorf("%w: %s", ErrVersionConflict, machine.ID)
	}
	return nil
}

// ListMachinesByOwner retrieves all machine documents belonging to a player.
func (ms *MachineStore) ListMachinesByOwner(ctx context.Context, ownerID string) ([]*models.Machine, error) {
	cursor, err := ms.collection.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list machines for owner %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	var machines []*models.Machine
	for cursor.Next(ctx) {
		var m models.Machine
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode machine for owner %s: %w", ownerID, err)
		}
		machines = append(machines, &m)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines for owner %s: %w", ownerID, err)
	}
	return machines, nil
}
