// player/service/lab_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rigforge/rig-services/engine"
	"github.com/rigforge/rig-services/player/store"
	"github.com/rigforge/rig-services/shared/models"
)

// LabService encapsulates the business logic for lab boards: unlocking slots
// and equipping upgrade modules. Slot unlocks are the only lab operation that
// costs gold; the debit happens before the board is mutated so a short
// balance leaves the board unchanged.
type LabService struct {
	labStore    *store.LabStore
	playerStore *store.PlayerStore
	catalog     *engine.Catalog
}

// NewLabService creates a new LabService instance.
func NewLabService(ls *store.LabStore, ps *store.PlayerStore, catalog *engine.Catalog) *LabService {
	return &LabService{
		labStore:    ls,
		playerStore: ps,
		catalog:     catalog,
	}
}

// GetLab returns a player's board, creating the default one on first access.
func (ls *LabService) GetLab(ctx context.Context, ownerID string) (*models.Lab, error) {
	lab, err := ls.labStore.EnsureLab(ctx, engine.NewDefaultLab(ownerID))
	if err != nil {
		return nil, fmt.Errorf("service failed to get lab for player %s: %w", ownerID, err)
	}
	return lab, nil
}

// UnlockSlot unlocks a locked slot, charging the owner the slot's gold price.
func (ls *LabService) UnlockSlot(ctx context.Context, ownerID string, category engine.Category, slotIndex int) (*models.Lab, int64, error) {
	lab, err := ls.GetLab(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	cost, err := engine.SlotUnlockCost(slotIndex)
	if err != nil {
		return nil, 0, err
	}

	// Validate the unlock on the in-memory board before any gold moves.
	if err := engine.UnlockSlot(lab, category, slotIndex); err != nil {
		return nil, 0, err
	}

	if cost > 0 {
		if _, err := ls.playerStore.DebitGold(ctx, ownerID, cost); err != nil {
			if errors.Is(err, store.ErrPlayerNotFound) {
				return nil, 0, ErrPlayerNotFound
			}
			if errors.Is(err, store.ErrInsufficientGold) {
				return nil, 0, fmt.Errorf("%w: unlocking slot %d costs %d", ErrInsufficientFunds, slotIndex, cost)
			}
			return nil, 0, fmt.Errorf("service failed to charge unlock cost for player %s: %w", ownerID, err)
		}
	}

	if err := ls.labStore.SaveLab(ctx, lab); err != nil {
		if cost > 0 {
			if _, refundErr := ls.playerStore.CreditGold(ctx, ownerID, cost); refundErr != nil {
				log.Printf("ERROR: Failed to refund %d gold to player %s after lab save failure: %v", cost, ownerID, refundErr)
			}
		}
		return nil, 0, fmt.Errorf("service failed to save lab for player %s: %w", ownerID, err)
	}

	log.Printf("INFO: Player %s unlocked %s slot %d for %d gold", ownerID, category, slotIndex, cost)
	return lab, cost, nil
}

// EquipItem places a module into an unlocked slot, replacing whatever was
// there. Equipping itself is free.
func (ls *LabService) EquipItem(ctx context.Context, ownerID string, category engine.Category, slotIndex int, itemID string) (*models.Lab, error) {
	lab, err := ls.GetLab(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := engine.EquipItem(lab, category, slotIndex, itemID, ls.catalog); err != nil {
		return nil, err
	}

	if err := ls.labStore.SaveLab(ctx, lab); err != nil {
		return nil, fmt.Errorf("service failed to save lab for player %s: %w", ownerID, err)
	}
	return lab, nil
}

// UnequipItem removes the module from a slot. The slot stays unlocked.
func (ls *LabService) UnequipItem(ctx context.Context, ownerID string, category engine.Category, slotIndex int) (*models.Lab, error) {
	lab, err := ls.GetLab(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := engine.UnequipItem(lab, category, slotIndex); err != nil {
		return nil, err
	}

	if err := ls.labStore.SaveLab(ctx, lab); err != nil {
		return nil, fmt.Errorf("service failed to save lab for player %s: %w", ownerID, err)
	}
	return lab, nil
}

// ListItems returns the full upgrade module catalog.
func (ls *LabService) ListItems() []engine.Item {
	return ls.catalog.Items()
}
