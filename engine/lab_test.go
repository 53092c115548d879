// engine/lab_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultLabShape(t *testing.T) {
	lab := NewDefaultLab("player-1")

	require.Len(t, lab.Miner, SlotsPerCategory)
	require.Len(t, lab.Technician, SlotsPerCategory)
	require.Len(t, lab.Cooler, SlotsPerCategory)

	assert.True(t, lab.Miner[0].Unlocked)
	assert.Empty(t, lab.Miner[0].ItemID)
	for i := 1; i < SlotsPerCategory; i++ {
		assert.False(t, lab.Miner[i].Unlocked)
		assert.False(t, lab.Technician[i].Unlocked)
		assert.False(t, lab.Cooler[i].Unlocked)
	}
}

func TestSlotUnlockCostSchedule(t *testing.T) {
	cost, err := SlotUnlockCost(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cost)

	cost, err = SlotUnlockCost(5)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), cost)

	_, err = SlotUnlockCost(0)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = SlotUnlockCost(6)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestUnlockSlot(t *testing.T) {
	lab := NewDefaultLab("player-1")

	require.NoError(t, UnlockSlot(lab, CategoryMiner, 2))
	assert.True(t, lab.Miner[1].Unlocked)

	err := UnlockSlot(lab, CategoryMiner, 2)
	assert.ErrorIs(t, err, ErrSlotAlreadyUnlocked)

	err = UnlockSlot(lab, Category("reactor"), 2)
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestEquipItemValidations(t *testing.T) {
	lab := NewDefaultLab("player-1")
	catalog := DefaultCatalog()

	err := EquipItem(lab, CategoryMiner, 2, "miner-common-01", catalog)
	assert.ErrorIs(t, err, ErrSlotLocked)

	err = EquipItem(lab, CategoryMiner, 1, "not-a-real-module", catalog)
	assert.ErrorIs(t, err, ErrUnknownItem)

	err = EquipItem(lab, CategoryMiner, 1, "cooler-rare-01", catalog)
	assert.ErrorIs(t, err, ErrCategoryMismatch)

	require.NoError(t, EquipItem(lab, CategoryMiner, 1, "miner-rare-01", catalog))
	assert.Equal(t, "miner-rare-01", lab.Miner[0].ItemID)

	// Equipping again replaces the module in place.
	require.NoError(t, EquipItem(lab, CategoryMiner, 1, "miner-epic-01", catalog))
	assert.Equal(t, "miner-epic-01", lab.Miner[0].ItemID)
}

func TestUnequipNeverRelocksSlot(t *testing.T) {
	lab := NewDefaultLab("player-1")
	catalog := DefaultCatalog()

	require.NoError(t, UnlockSlot(lab, CategoryCooler, 2))
	require.NoError(t, EquipItem(lab, CategoryCooler, 2, "cooler-epic-01", catalog))

	require.NoError(t, UnequipItem(lab, CategoryCooler, 2))
	assert.Empty(t, lab.Cooler[1].ItemID)
	assert.True(t, lab.Cooler[1].Unlocked)

	// Unequipping an empty slot is a no-op.
	require.NoError(t, UnequipItem(lab, CategoryCooler, 2))
}
