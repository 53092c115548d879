// player/store/player_store.go
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
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInsufficientGold = errors.New("insufficient gold")
)

// PlayerStore represents the MongoDB data store for player documents.
type PlayerStore struct {
	collection *mongo.Collection
}

// NewPlayerStore creates a new PlayerStore instance.
func NewPlayerStore(collection *mongo.Collection) *PlayerStore {
	return &PlayerStore{
		collection: collection,
	}
}

// EnsurePlayer inserts the given player document if no document with its UUID
// exists yet, then returns whatever is stored. An existing document is never
// touched, so concurrent ensures for the same player are safe.
func (ps *PlayerStore) EnsurePlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	filter := bson.M{"_id": player.ID}
	update := bson.M{"$setOnInsert": player}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.Player
	err := ps.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure player %s: %w", player.ID, err)
	}
	return &stored, nil
}

// GetPlayerByUUID retrieves a player document by UUID.
func (ps *PlayerStore) GetPlayerByUUID(ctx context.Context, uuid string) (*models.Player, error) {
	var player models.Player
	filter := bson.M{"_id": uuid}
	err := ps.collection.FindOne(ctx, filter).Decode(&player)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, uuid)
		}
		return nil, fmt.Errorf("failed to get player %s: %w", uuid, err)
	}
	return &player, nil
}

// CreditGold atomically adds gold to a player's balance and returns the new
// balance.
func (ps *PlayerStore) CreditGold(ctx context.Context, uuid string, amount int64) (int64, error) {
	now := time.Now()
	filter := bson.M{"_id": uuid}
	update := bson.M{
		"$inc": bson.M{"gold": amount},
		"$set": bson.M{"updated_at": &now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Player
	err := ps.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("%w: %s", ErrPlayerNotFound, uuid)
		}
		return 0, fmt.Errorf("failed to credit %d gold to player %s: %w", amount, uuid, err)
	}
	return updated.Gold, nil
}

// DebitGold atomically removes gold from a player's balance and returns the
// new balance. The guard in the filter makes the balance check and the
// decrement a single operation, so the balance can never go negative even
// under concurrent debits.
func (ps *PlayerStore) DebitGold(ctx context.Context, uuid string, amount int64) (int64, error) {
	now := time.Now()
	filter := bson.M{"_id": uuid, "gold": bson.M{"$gte": amount}}
	update := bson.M{
		"$inc": bson.M{"gold": -amount},
		"$set": bson.M{"updated_at": &now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Player
	err := ps.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a short balance from a missing player.
			count, countErr := ps.collection.CountDocuments(ctx, bson.M{"_id": uuid})
			if countErr != nil {
				return 0, fmt.Errorf("failed to debit %d gold from player %s: %w", amount, uuid, countErr)
			}
			if count == 0 {
				return 0, fmt.Errorf("%w: %s", ErrPlayerNotFound, uuid)
			}
			return 0, fmt.Errorf("%w: player %s needs %d gold", ErrInsufficientGold, uuid, amount)
		}
		return 0, fmt.Errorf("failed to debit %d gold from player %s: %w", amount, uuid, err)
	}
	return updated.Gold, nil
}
