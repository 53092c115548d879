// engine/buffs_test.go
package engine

import (
	"testing"

	"github.com/rigforge/rig-services/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotWith(index int, unlocked bool, itemID string) models.LabSlot {
	return models.LabSlot{SlotIndex: index, Unlocked: unlocked, ItemID: itemID}
}

func TestComputeLabBuffsNilLab(t *testing.T) {
	buffs := ComputeLabBuffs(nil, DefaultCatalog())
	assert.Equal(t, NeutralBuffs(), buffs)
}

func TestComputeLabBuffsEmptyLab(t *testing.T) {
	lab := NewDefaultLab("player-1")
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, NeutralBuffs(), buffs)
}

func TestComputeLabBuffsSkipsLockedAndEmptySlots(t *testing.T) {
	lab := &models.Lab{
		OwnerID: "player-1",
		Miner: []models.LabSlot{
			slotWith(1, true, "miner-common-01"),
			slotWith(2, false, "miner-mythic-01"), // locked, must not count
			slotWith(3, true, ""),
		},
	}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, 0.05, buffs.FlatAdd)
	assert.Equal(t, 1.0, buffs.Multiplier)
	assert.Equal(t, int64(0), buffs.ExtraDurationSec)
}

func TestComputeLabBuffsTechniciansMultiply(t *testing.T) {
	lab := &models.Lab{
		OwnerID: "player-1",
		Technician: []models.LabSlot{
			slotWith(1, true, "tech-common-01"),
			slotWith(2, true, "tech-common-01"),
		},
	}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.InDelta(t, 1.1025, buffs.Multiplier, 1e-9)
}

func TestComputeLabBuffsFlatAddClampedToCap(t *testing.T) {
	// Five mythic miners sum to 3.0; pad with extra slots past the cap to
	// exercise clamping on a malformed board.
	slots := make([]models.LabSlot, 10)
	for i := range slots {
		slots[i] = slotWith(i+1, true, "miner-mythic-01")
	}
	lab := &models.Lab{OwnerID: "player-1", Miner: slots}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, MaxFlatAdd, buffs.FlatAdd)
}

func TestComputeLabBuffsMultiplierClampedToCap(t *testing.T) {
	slots := make([]models.LabSlot, 10)
	for i := range slots {
		slots[i] = slotWith(i+1, true, "tech-mythic-01")
	}
	lab := &models.Lab{OwnerID: "player-1", Technician: slots}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, MaxMultiplier, buffs.Multiplier)
}

func TestComputeLabBuffsExtraDurationClampedToCap(t *testing.T) {
	slots := make([]models.LabSlot, 10)
	for i := range slots {
		slots[i] = slotWith(i+1, true, "cooler-mythic-01")
	}
	lab := &models.Lab{OwnerID: "player-1", Cooler: slots}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, MaxExtraDurationSec, buffs.ExtraDurationSec)
}

func TestComputeLabBuffsUnknownItemContributesNothing(t *testing.T) {
	lab := &models.Lab{
		OwnerID: "player-1",
		Miner: []models.LabSlot{
			slotWith(1, true, "???-garbage"),
			slotWith(2, true, "miner-rare-01"),
		},
	}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, 0.10, buffs.FlatAdd)
}

func TestComputeLabBuffsCategoryMismatchIgnored(t *testing.T) {
	// A cooler sitting on the miner board must not contribute to FlatAdd.
	lab := &models.Lab{
		OwnerID: "player-1",
		Miner:   []models.LabSlot{slotWith(1, true, "cooler-epic-01")},
	}
	buffs := ComputeLabBuffs(lab, DefaultCatalog())
	assert.Equal(t, NeutralBuffs(), buffs)
}

func TestResolveFallsBackToTierKeywords(t *testing.T) {
	catalog := DefaultCatalog()

	it, ok := catalog.Resolve("miner-legendary-99")
	require.True(t, ok)
	assert.Equal(t, CategoryMiner, it.Category)
	assert.Equal(t, MinerRate[TierLegendary], it.Effect)

	_, ok = catalog.Resolve("no-such-thing")
	assert.False(t, ok)
}

func TestResolvePrefersExplicitCatalogEntry(t *testing.T) {
	// An explicit effect wins over what the id's tier keyword would imply.
	catalog := NewCatalog([]Item{
		{ID: "miner-common-custom", Category: CategoryMiner, Tier: TierCommon, Effect: 0.42},
	})
	it, ok := catalog.Resolve("miner-common-custom")
	require.True(t, ok)
	assert.Equal(t, 0.42, it.Effect)
}
