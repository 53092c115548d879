// player/service/player_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rigforge/rig-services/player/store"
	"github.com/rigforge/rig-services/shared/models"
)

// Custom Errors for clear communication to API layer
var (
	ErrPlayerNotFound    = fmt.Errorf("player not found")
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
	ErrInvalidAmount     = fmt.Errorf("amount must be positive")
)

// PlayerService encapsulates the business logic for players and their gold
// balances.
type PlayerService struct {
	playerStore *store.PlayerStore
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(ps *store.PlayerStore) *PlayerService {
	return &PlayerService{
		playerStore: ps,
	}
}

// EnsurePlayer creates the player with a zero balance if it does not exist
// yet and returns the stored document either way.
func (ps *PlayerService) EnsurePlayer(ctx context.Context, uuid, username string) (*models.Player, error) {
	now := time.Now()
	player := &models.Player{
		ID:        uuid,
		Username:  username,
		Gold:      0,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	stored, err := ps.playerStore.EnsurePlayer(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("service failed to ensure player %s: %w", uuid, err)
	}
	return stored, nil
}

// GetPlayer retrieves a player by UUID.
func (ps *PlayerService) GetPlayer(ctx context.Context, uuid string) (*models.Player, error) {
	player, err := ps.playerStore.GetPlayerByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, store.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("service failed to get player %s: %w", uuid, err)
	}
	return player, nil
}

// CreditGold adds gold to a player's balance and returns the new balance.
func (ps *PlayerService) CreditGold(ctx context.Context, uuid string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := ps.playerStore.CreditGold(ctx, uuid, amount)
	if err != nil {
		if errors.Is(err, store.ErrPlayerNotFound) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("service failed to credit gold for player %s: %w", uuid, err)
	}

	log.Printf("INFO: Credited %d gold to player %s (reason: %s), balance now %d", amount, uuid, reason, balance)
	return balance, nil
}

// DebitGold removes gold from a player's balance and returns the new balance.
// The balance never goes negative; a short balance fails the whole debit.
func (ps *PlayerService) DebitGold(ctx context.Context, uuid string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := ps.playerStore.DebitGold(ctx, uuid, amount)
	if err != nil {
		if errors.Is(err, store.ErrPlayerNotFound) {
			return 0, ErrPlayerNotFound
		}
		if errors.Is(err, store.ErrInsufficientGold) {
			return 0, fmt.Errorf("%w: player %s needs %d gold", ErrInsufficientFunds, uuid, amount)
		}
		return 0, fmt.Errorf("service failed to debit gold for player %s: %w", uuid, err)
	}

	log.Printf("INFO: Debited %d gold from player %s (reason: %s), balance now %d", amount, uuid, reason, balance)
	return balance, nil
}
