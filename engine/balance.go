// engine/balance.go
package engine

// Tier is a rarity rank determining a module's effect magnitude.
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
	TierMythic    Tier = "mythic"
)

// Per-tier effect scales. Tweak these during balancing, nowhere else.
var (
	// MinerRate is the flat IGT/s a miner module adds to the base rate.
	MinerRate = map[Tier]float64{
		TierCommon:    0.05,
		TierRare:      0.10,
		TierEpic:      0.20,
		TierLegendary: 0.35,
		TierMythic:    0.60,
	}

	// TechMult is the rate multiplier a technician module contributes.
	// Technicians stack multiplicatively across slots.
	TechMult = map[Tier]float64{
		TierCommon:    1.05,
		TierRare:      1.10,
		TierEpic:      1.15,
		TierLegendary: 1.20,
		TierMythic:    1.30,
	}

	// CoolerSec is the extra session duration, in seconds, a cooler adds.
	CoolerSec = map[Tier]int64{
		TierCommon:    60 * 10,
		TierRare:      60 * 20,
		TierEpic:      60 * 45,
		TierLegendary: 60 * 90,
		TierMythic:    60 * 180,
	}
)

// Stacking caps so buffs cannot run away no matter how many modules stack.
const (
	MaxFlatAdd          = 5.0
	MaxMultiplier       = 3.0
	MaxExtraDurationSec = int64(24 * 60 * 60)

	// MinSessionDurationSec is the safety floor for an effective session length.
	MinSessionDurationSec = int64(30)
)
