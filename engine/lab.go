// engine/lab.go
package engine

import (
	"errors"
	"time"

	"github.com/rigforge/rig-services/shared/models"
)

// Lab board rejections.
var (
	ErrInvalidCategory     = errors.New("invalid lab category")
	ErrInvalidSlot         = errors.New("invalid slot index")
	ErrSlotLocked          = errors.New("slot is locked")
	ErrSlotAlreadyUnlocked = errors.New("slot already unlocked")
	ErrUnknownItem         = errors.New("unknown item")
	ErrCategoryMismatch    = errors.New("item does not match slot category")
)

// SlotsPerCategory is the fixed board width for each module category.
const SlotsPerCategory = 5

// SlotUnlockGold is the gold price to unlock each slot, indexed by slot
// position. Slot 1 is free and unlocked from the start.
var SlotUnlockGold = [SlotsPerCategory]int64{0, 200000, 500000, 1000000, 2000000}

// NewDefaultLab builds a fresh board for a player: five slots per category,
// slot 1 unlocked, nothing equipped.
func NewDefaultLab(ownerID string) *models.Lab {
	mkSlots := func() []models.LabSlot {
		slots := make([]models.LabSlot, SlotsPerCategory)
		for i := range slots {
			slots[i] = models.LabSlot{SlotIndex: i + 1, Unlocked: i == 0}
		}
		return slots
	}
	now := time.Now()
	return &models.Lab{
		OwnerID:    ownerID,
		Miner:      mkSlots(),
		Technician: mkSlots(),
		Cooler:     mkSlots(),
		UpdatedAt:  &now,
	}
}

// SlotUnlockCost returns the gold price for unlocking the given 1-based slot.
func SlotUnlockCost(slotIndex int) (int64, error) {
	if slotIndex < 1 || slotIndex > SlotsPerCategory {
		return 0, ErrInvalidSlot
	}
	return SlotUnlockGold[slotIndex-1], nil
}

// UnlockSlot marks a locked slot as unlocked. The caller must have charged
// the unlock cost before mutating; this function never touches balances.
func UnlockSlot(lab *models.Lab, category Category, slotIndex int) error {
	slot, err := findSlot(lab, category, slotIndex)
	if err != nil {
		return err
	}
	if slot.Unlocked {
		return ErrSlotAlreadyUnlocked
	}
	slot.Unlocked = true
	return nil
}

// EquipItem places a module into an unlocked slot, replacing whatever was
// there. The item must resolve through the catalog and its category must
// match the board it is equipped on.
func EquipItem(lab *models.Lab, category Category, slotIndex int, itemID string, catalog *Catalog) error {
	slot, err := findSlot(lab, category, slotIndex)
	if err != nil {
		return err
	}
	if !slot.Unlocked {
		return ErrSlotLocked
	}
	item, ok := catalog.Resolve(itemID)
	if !ok {
		return ErrUnknownItem
	}
	if item.Category != category {
		return ErrCategoryMismatch
	}
	slot.ItemID = itemID
	return nil
}

// UnequipItem removes the module from a slot. The slot stays unlocked and
// an already-empty slot is a no-op.
func UnequipItem(lab *models.Lab, category Category, slotIndex int) error {
	slot, err := findSlot(lab, category, slotIndex)
	if err != nil {
		return err
	}
	slot.ItemID = ""
	return nil
}

func findSlot(lab *models.Lab, category Category, slotIndex int) (*models.LabSlot, error) {
	var slots []models.LabSlot
	switch category {
	case CategoryMiner:
		slots = lab.Miner
	case CategoryTechnician:
		slots = lab.Technician
	case CategoryCooler:
		slots = lab.Cooler
	default:
		return nil, ErrInvalidCategory
	}
	for i := range slots {
		if slots[i].SlotIndex == slotIndex {
			return &slots[i], nil
		}
	}
	return nil, ErrInvalidSlot
}
