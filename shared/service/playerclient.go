// shared/service/playerclient.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/models"
)

// PlayerServiceClient is a client for the Player Service.
// It uses an internal apiClient to make HTTP requests to the Player Service.
type PlayerServiceClient struct {
	apiClient *api.Client
}

// NewPlayerClient creates a new Player Service client.
// It takes the base URL of the Player Service as an argument.
func NewPlayerClient(baseURL string) *PlayerServiceClient {
	// Pass the default HTTP client for inter-service communication
	return &PlayerServiceClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// ErrInsufficientFunds is returned by DebitGold when the player cannot cover
// the requested amount.
var ErrInsufficientFunds = fmt.Errorf("insufficient funds")

// --- Request/Response DTOs for Player Service Communication ---
// These mirror the DTOs defined in player/api/handler.go for consistency.

// EnsurePlayerRequest is the structure for creating a player if missing.
type EnsurePlayerRequest struct {
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
}

// GoldMutationRequest is the structure for credit and debit requests.
type GoldMutationRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// GoldMutationResponse reports the balance after a credit or debit.
type GoldMutationResponse struct {
	UUID string `json:"uuid"`
	Gold int64  `json:"gold"`
}

// --- Client Methods for Player Service API Endpoints ---

// GetPlayer fetches a player by UUID.
// It calls the Player Service's GET /players/{uuid} endpoint.
// Returns api.ErrNotFound (wrapped) if the player does not exist.
func (c *PlayerServiceClient) GetPlayer(ctx context.Context, playerUUID string) (*models.Player, error) {
	player := &models.Player{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/players/%s", playerUUID), player)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: player %s", api.ErrNotFound, playerUUID)
		}
		return nil, fmt.Errorf("failed to get player %s from Player Service: %w", playerUUID, err)
	}
	return player, nil
}

// EnsurePlayer creates the player if it does not exist yet and returns the
// stored document either way.
// It calls the Player Service's POST /players endpoint.
func (c *PlayerServiceClient) EnsurePlayer(ctx context.Context, playerUUID, username string) (*models.Player, error) {
	reqData := EnsurePlayerRequest{UUID: playerUUID, Username: username}
	player := &models.Player{}
	err := c.apiClient.Post(ctx, "/players", reqData, player)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure player %s in Player Service: %w", playerUUID, err)
	}
	return player, nil
}

// CreditGold adds gold to a player's balance and returns the new balance.
// It calls the Player Service's POST /players/{uuid}/gold/credit endpoint.
func (c *PlayerServiceClient) CreditGold(ctx context.Context, playerUUID string, amount int64, reason string) (int64, error) {
	reqData := GoldMutationRequest{Amount: amount, Reason: reason}
	var resp GoldMutationResponse
	err := c.apiClient.Post(ctx, fmt.Sprintf("/players/%s/gold/credit", playerUUID), reqData, &resp)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return 0, fmt.Errorf("%w: player %s", api.ErrNotFound, playerUUID)
		}
		return 0, fmt.Errorf("failed to credit %d gold to player %s: %w", amount, playerUUID, err)
	}
	return resp.Gold, nil
}

// DebitGold removes gold from a player's balance and returns the new balance.
// It calls the Player Service's POST /players/{uuid}/gold/debit endpoint.
// Returns ErrInsufficientFunds if the balance cannot cover the amount.
func (c *PlayerServiceClient) DebitGold(ctx context.Context, playerUUID string, amount int64, reason string) (int64, error) {
	reqData := GoldMutationRequest{Amount: amount, Reason: reason}
	var resp GoldMutationResponse
	err := c.apiClient.Post(ctx, fmt.Sprintf("/players/%s/gold/debit", playerUUID), reqData, &resp)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return 0, fmt.Errorf("%w: player %s needs %d gold", ErrInsufficientFunds, playerUUID, amount)
		}
		if errors.Is(err, api.ErrNotFound) {
			return 0, fmt.Errorf("%w: player %s", api.ErrNotFound, playerUUID)
		}
		return 0, fmt.Errorf("failed to debit %d gold from player %s: %w", amount, playerUUID, err)
	}
	return resp.Gold, nil
}

// GetLab fetches a player's lab board.
// It calls the Player Service's GET /players/{uuid}/lab endpoint.
// Returns api.ErrNotFound (wrapped) if the player has no stored board yet.
func (c *PlayerServiceClient) GetLab(ctx context.Context, playerUUID string) (*models.Lab, error) {
	lab := &models.Lab{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/players/%s/lab", playerUUID), lab)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: lab for player %s", api.ErrNotFound, playerUUID)
		}
		return nil, fmt.Errorf("failed to get lab for player %s from Player Service: %w", playerUUID, err)
	}
	return lab, nil
}
