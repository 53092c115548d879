// engine/buffs.go
package engine

import (
	"math"

	"github.com/rigforge/rig-services/shared/models"
)

// Buffs is the aggregate effect of every equipped lab module on a machine:
// a flat IGT/s addition from miners, a rate multiplier from technicians and
// extra session seconds from coolers. Buffs are computed on demand and never
// persisted.
type Buffs struct {
	FlatAdd          float64 `json:"flatAdd"`
	Multiplier       float64 `json:"multiplier"`
	ExtraDurationSec int64   `json:"extraDurationSec"`
}

// NeutralBuffs is the no-lab baseline: nothing added, rate unchanged.
func NeutralBuffs() Buffs {
	return Buffs{FlatAdd: 0, Multiplier: 1, ExtraDurationSec: 0}
}

// ComputeLabBuffs walks every slot on the lab board and aggregates the
// effects of unlocked, equipped modules. Locked and empty slots are skipped.
// Items the catalog cannot resolve, or whose category does not match the
// board they sit on, contribute nothing; a single bad slot never fails the
// whole aggregation. A nil or empty lab yields neutral buffs. Each output is
// clamped to its stacking cap.
func ComputeLabBuffs(lab *models.Lab, catalog *Catalog) Buffs {
	buffs := NeutralBuffs()
	if lab == nil || catalog == nil {
		return buffs
	}

	for _, slot := range lab.Miner {
		if !slot.Unlocked || slot.ItemID == "" {
			continue
		}
		if it, ok := catalog.Resolve(slot.ItemID); ok && it.Category == CategoryMiner {
			buffs.FlatAdd += it.Effect
		}
	}
	for _, slot := range lab.Technician {
		if !slot.Unlocked || slot.ItemID == "" {
			continue
		}
		if it, ok := catalog.Resolve(slot.ItemID); ok && it.Category == CategoryTechnician {
			// Technicians compound: two +10% modules give x1.21, not x1.20.
			buffs.Multiplier *= it.Effect
		}
	}
	for _, slot := range lab.Cooler {
		if !slot.Unlocked || slot.ItemID == "" {
			continue
		}
		if it, ok := catalog.Resolve(slot.ItemID); ok && it.Category == CategoryCooler {
			buffs.ExtraDurationSec += int64(it.Effect)
		}
	}

	if buffs.FlatAdd > MaxFlatAdd {
		buffs.FlatAdd = MaxFlatAdd
	}
	if buffs.Multiplier > MaxMultiplier {
		buffs.Multiplier = MaxMultiplier
	}
	if buffs.Multiplier < 1 {
		buffs.Multiplier = 1
	}
	if buffs.ExtraDurationSec > MaxExtraDurationSec {
		buffs.ExtraDurationSec = MaxExtraDurationSec
	}

	buffs.FlatAdd = round6(buffs.FlatAdd)
	buffs.Multiplier = round6(buffs.Multiplier)
	return buffs
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
