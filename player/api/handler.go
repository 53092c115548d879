// player/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rigforge/rig-services/engine"
	"github.com/rigforge/rig-services/player/service"
	"github.com/rigforge/rig-services/shared/api"
)

// PlayerAPIHandlers holds references to the services that handle business
// logic for the player service.
type PlayerAPIHandlers struct {
	PlayerService *service.PlayerService
	LabService    *service.LabService
}

// NewPlayerAPIHandlers is the constructor for the Player API handlers.
func NewPlayerAPIHandlers(ps *service.PlayerService, ls *service.LabService) *PlayerAPIHandlers {
	return &PlayerAPIHandlers{
		PlayerService: ps,
		LabService:    ls,
	}
}

// --- Request/Response DTOs (Data Transfer Objects) ---

// EnsurePlayerRequest is the structure for the request body of POST /players.
type EnsurePlayerRequest struct {
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
}

// GoldMutationRequest is the structure for credit and debit request bodies.
type GoldMutationRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// GoldMutationResponse reports the balance after a credit or debit.
type GoldMutationResponse struct {
	UUID string `json:"uuid"`
	Gold int64  `json:"gold"`
}

// LabSlotRequest is the structure for unlock and unequip request bodies.
type LabSlotRequest struct {
	Category  string `json:"category"`
	SlotIndex int    `json:"slot_index"`
}

// EquipRequest is the structure for the equip request body.
type EquipRequest struct {
	Category  string `json:"category"`
	SlotIndex int    `json:"slot_index"`
	ItemID    string `json:"item_id"`
}

// UnlockResponse reports the board and the gold charged for an unlock.
type UnlockResponse struct {
	Cost int64       `json:"cost"`
	Lab  interface{} `json:"lab"`
}

// writePlayerError maps service and engine errors to HTTP status codes.
func writePlayerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound):
		api.WriteNotFound(w, "Player not found")
	case errors.Is(err, service.ErrInsufficientFunds):
		api.WriteConflict(w, "Insufficient gold")
	case errors.Is(err, service.ErrInvalidAmount):
		api.WriteBadRequest(w, "Amount must be positive")
	case errors.Is(err, engine.ErrInvalidCategory):
		api.WriteBadRequest(w, "Invalid lab category")
	case errors.Is(err, engine.ErrInvalidSlot):
		api.WriteBadRequest(w, "Invalid slot index")
	case errors.Is(err, engine.ErrUnknownItem):
		api.WriteBadRequest(w, "Unknown item")
	case errors.Is(err, engine.ErrCategoryMismatch):
		api.WriteBadRequest(w, "Item does not match slot category")
	case errors.Is(err, engine.ErrSlotLocked):
		api.WriteConflict(w, "Slot is locked")
	case errors.Is(err, engine.ErrSlotAlreadyUnlocked):
		api.WriteConflict(w, "Slot is already unlocked")
	default:
		api.WriteInternalServerError(w, "Internal server error")
	}
}

// --- Handler Methods ---

// HandleEnsurePlayer handles requests to create a player if it is missing.
// POST /players
// Body: { "uuid": "<player_uuid>", "username": "..." }
func (pah *PlayerAPIHandlers) HandleEnsurePlayer(w http.ResponseWriter, r *http.Request) {
	var req EnsurePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.UUID == "" {
		api.WriteBadRequest(w, "uuid is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	player, err := pah.PlayerService.EnsurePlayer(ctx, req.UUID, req.Username)
	if err != nil {
		log.Printf("Error ensuring player %s: %v", req.UUID, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, player)
}

// HandleGetPlayer handles requests to fetch a player document.
// GET /players/{uuid}
func (pah *PlayerAPIHandlers) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	if uuid == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	player, err := pah.PlayerService.GetPlayer(ctx, uuid)
	if err != nil {
		log.Printf("Error getting player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, player)
}

// HandleCreditGold handles requests to add gold to a player's balance.
// POST /players/{uuid}/gold/credit
// Body: { "amount": 100, "reason": "..." }
func (pah *PlayerAPIHandlers) HandleCreditGold(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var req GoldMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	balance, err := pah.PlayerService.CreditGold(ctx, uuid, req.Amount, req.Reason)
	if err != nil {
		log.Printf("Error crediting gold for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, GoldMutationResponse{UUID: uuid, Gold: balance})
}

// HandleDebitGold handles requests to remove gold from a player's balance.
// POST /players/{uuid}/gold/debit
// Body: { "amount": 100, "reason": "..." }
func (pah *PlayerAPIHandlers) HandleDebitGold(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var req GoldMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	balance, err := pah.PlayerService.DebitGold(ctx, uuid, req.Amount, req.Reason)
	if err != nil {
		log.Printf("Error debiting gold for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, GoldMutationResponse{UUID: uuid, Gold: balance})
}

// HandleGetLab handles requests to fetch a player's lab board.
// GET /players/{uuid}/lab
func (pah *PlayerAPIHandlers) HandleGetLab(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	if uuid == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lab, err := pah.LabService.GetLab(ctx, uuid)
	if err != nil {
		log.Printf("Error getting lab for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, lab)
}

// HandleUnlockSlot handles requests to unlock a lab slot.
// POST /players/{uuid}/lab/unlock
// Body: { "category": "miner", "slot_index": 2 }
func (pah *PlayerAPIHandlers) HandleUnlockSlot(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var req LabSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	lab, cost, err := pah.LabService.UnlockSlot(ctx, uuid, engine.Category(req.Category), req.SlotIndex)
	if err != nil {
		log.Printf("Error unlocking lab slot for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, UnlockResponse{Cost: cost, Lab: lab})
}

// HandleEquipItem handles requests to equip an upgrade module.
// POST /players/{uuid}/lab/equip
// Body: { "category": "miner", "slot_index": 1, "item_id": "miner-rare-01" }
func (pah *PlayerAPIHandlers) HandleEquipItem(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var req EquipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	lab, err := pah.LabService.EquipItem(ctx, uuid, engine.Category(req.Category), req.SlotIndex, req.ItemID)
	if err != nil {
		log.Printf("Error equipping item for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, lab)
}

// HandleUnequipItem handles requests to clear a lab slot.
// POST /players/{uuid}/lab/unequip
// Body: { "category": "miner", "slot_index": 1 }
func (pah *PlayerAPIHandlers) HandleUnequipItem(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var req LabSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	lab, err := pah.LabService.UnequipItem(ctx, uuid, engine.Category(req.Category), req.SlotIndex)
	if err != nil {
		log.Printf("Error unequipping item for player %s: %v", uuid, err)
		writePlayerError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, lab)
}

// HandleListItems handles requests to list the upgrade module catalog.
// GET /items
func (pah *PlayerAPIHandlers) HandleListItems(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, pah.LabService.ListItems())
}

// RegisterRoutes registers all API endpoints for the Player Service.
// This method is called from main.go to set up the HTTP routes.
func (pah *PlayerAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/players", pah.HandleEnsurePlayer).Methods("POST")
	router.HandleFunc("/players/{uuid}", pah.HandleGetPlayer).Methods("GET")
	router.HandleFunc("/players/{uuid}/gold/credit", pah.HandleCreditGold).Methods("POST")
	router.HandleFunc("/players/{uuid}/gold/debit", pah.HandleDebitGold).Methods("POST")

	router.HandleFunc("/players/{uuid}/lab", pah.HandleGetLab).Methods("GET")
	router.HandleFunc("/players/{uuid}/lab/unlock", pah.HandleUnlockSlot).Methods("POST")
	router.HandleFunc("/players/{uuid}/lab/equip", pah.HandleEquipItem).Methods("POST")
	router.HandleFunc("/players/{uuid}/lab/unequip", pah.HandleUnequipItem).Methods("POST")

	router.HandleFunc("/items", pah.HandleListItems).Methods("GET")
}
