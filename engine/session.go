// engine/session.go
package engine

import (
	"errors"
	"math"
	"time"

	"github.com/rigforge/rig-services/shared/models"
)

// Business-rule rejections. All are local and non-retryable; callers surface
// them directly rather than treating them as faults.
var (
	ErrAlreadyRunning           = errors.New("machine already running")
	ErrMachineBroken            = errors.New("machine health depleted")
	ErrSessionNotComplete       = errors.New("session not complete")
	ErrCannotRepairWhileRunning = errors.New("cannot repair a running machine")
	ErrAlreadyHealthy           = errors.New("machine already at full health")
)

// Tuning carries the claim/repair percentages. Values are whole percents:
// ElectricBillPct 1 means a 1% fee on the health-adjusted payout.
type Tuning struct {
	ElectricBillPct  int
	DecayPerClaimPct int
	RepairPct        int
}

// DefaultTuning matches production balancing: 1% electric bill, 5 health
// lost per claim, repair priced at 1% of session gross per missing health.
func DefaultTuning() Tuning {
	return Tuning{ElectricBillPct: 1, DecayPerClaimPct: 5, RepairPct: 1}
}

// ClaimResult is the payout breakdown for one claimed session. Every amount
// is floored; only Final is credited to the player.
type ClaimResult struct {
	Gross       int64 `json:"gross"`
	AfterHealth int64 `json:"afterHealth"`
	Fee         int64 `json:"fee"`
	Final       int64 `json:"final"`
	HealthAfter int   `json:"healthAfter"`
}

// StartSession begins a new session on an idle machine, freezing the lab
// buffs into the machine's effective rate and duration for the whole run.
// The running check goes through the projector, so a machine whose session
// already ran out counts as idle here even before the sweeper has rewritten
// its stored flags. Starting over an unclaimed complete session forfeits
// that session's reward. Fails with ErrAlreadyRunning while a session is
// still in flight and ErrMachineBroken when health is depleted.
func StartSession(m *models.Machine, buffs Buffs, now time.Time) error {
	if ComputeStatus(m, now).Running {
		return ErrAlreadyRunning
	}
	if m.HealthPct <= 0 {
		return ErrMachineBroken
	}

	m.EffectiveRate = round4((m.BaseRate + buffs.FlatAdd) * buffs.Multiplier)
	m.EffectiveDurationSec = effectiveDuration(m.DurationSec, buffs.ExtraDurationSec)
	m.Running = true
	m.Complete = false
	m.ProgressSec = 0
	started := now
	m.StartedAt = &started
	return nil
}

// GrossProduction is the full-session output at the machine's effective rate,
// floored to whole IGT. Machines that never ran fall back to their base
// rate and nominal duration.
func GrossProduction(m *models.Machine) int64 {
	rate := m.EffectiveRate
	if rate == 0 {
		rate = m.BaseRate
	}
	dur := m.EffectiveDurationSec
	if dur == 0 {
		dur = m.DurationSec
	}
	return int64(math.Floor(rate * float64(dur)))
}

// ClaimSession settles a completed session: health attenuates the gross,
// the electric bill is deducted, health decays and the machine resets to
// idle. Fails with ErrSessionNotComplete while the session is still running
// or was never started. The caller is responsible for crediting Final to
// the owner's balance.
func ClaimSession(m *models.Machine, tuning Tuning, now time.Time) (*ClaimResult, error) {
	status := ComputeStatus(m, now)
	if !status.Complete {
		return nil, ErrSessionNotComplete
	}

	gross := GrossProduction(m)
	afterHealth := int64(math.Floor(float64(gross) * float64(m.HealthPct) / 100.0))
	fee := int64(math.Floor(float64(afterHealth) * float64(tuning.ElectricBillPct) / 100.0))
	final := afterHealth - fee
	if final < 0 {
		final = 0
	}

	health := m.HealthPct - tuning.DecayPerClaimPct
	if health < 0 {
		health = 0
	}

	m.HealthPct = health
	m.Running = false
	m.Complete = false
	m.ProgressSec = 0
	m.StartedAt = nil
	claimed := now
	m.LastClaimAt = &claimed

	return &ClaimResult{
		Gross:       gross,
		AfterHealth: afterHealth,
		Fee:         fee,
		Final:       final,
		HealthAfter: health,
	}, nil
}

// RepairCost prices restoring an idle machine to full health. The quote uses
// the machine's CURRENT lab buffs, not the ones frozen at the last session
// start: cost = ceil(gross * missingHealth% * repairPct%). Costs are ceiled
// where payouts are floored, so fractional units always resolve in the
// house's favor. Fails with ErrCannotRepairWhileRunning on a running machine
// and ErrAlreadyHealthy at full health.
func RepairCost(m *models.Machine, buffs Buffs, tuning Tuning) (int64, error) {
	if m.Running {
		return 0, ErrCannotRepairWhileRunning
	}
	missing := 100 - m.HealthPct
	if missing <= 0 {
		return 0, ErrAlreadyHealthy
	}

	rate := round4((m.BaseRate + buffs.FlatAdd) * buffs.Multiplier)
	dur := effectiveDuration(m.DurationSec, buffs.ExtraDurationSec)
	gross := math.Floor(rate * float64(dur))

	cost := math.Ceil(gross * float64(missing) / 100.0 * float64(tuning.RepairPct) / 100.0)
	return int64(cost), nil
}

func effectiveDuration(baseSec, extraSec int64) int64 {
	dur := baseSec + extraSec
	if dur < MinSessionDurationSec {
		dur = MinSessionDurationSec
	}
	return dur
}
