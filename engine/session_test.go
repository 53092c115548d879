// engine/session_test.go
package engine

import (
	"testing"
	"time"

	"github.com/rigforge/rig-services/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMachine(baseRate float64, durationSec int64, healthPct int) *models.Machine {
	return &models.Machine{
		ID:          "player-1-m1",
		OwnerID:     "player-1",
		BaseRate:    baseRate,
		DurationSec: durationSec,
		HealthPct:   healthPct,
	}
}

func TestStartSessionFreezesEffectiveRateAndDuration(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()

	err := StartSession(m, Buffs{FlatAdd: 0.5, Multiplier: 1.1, ExtraDurationSec: 600}, now)
	require.NoError(t, err)

	assert.True(t, m.Running)
	assert.False(t, m.Complete)
	assert.Equal(t, int64(0), m.ProgressSec)
	assert.Equal(t, 1.1, m.EffectiveRate)
	assert.Equal(t, int64(4200), m.EffectiveDurationSec)
	require.NotNil(t, m.StartedAt)
	assert.Equal(t, now, *m.StartedAt)
}

func TestStartSessionEnforcesMinimumDuration(t *testing.T) {
	m := testMachine(0.5, 10, 100)
	err := StartSession(m, NeutralBuffs(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, MinSessionDurationSec, m.EffectiveDurationSec)
}

func TestStartSessionFailsWhileRunning(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	require.NoError(t, StartSession(m, NeutralBuffs(), time.Now()))

	err := StartSession(m, NeutralBuffs(), time.Now())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStartSessionFailsWhenBroken(t *testing.T) {
	m := testMachine(0.5, 3600, 0)
	err := StartSession(m, NeutralBuffs(), time.Now())
	assert.ErrorIs(t, err, ErrMachineBroken)
}

func TestStartSessionOverExpiredUnclaimedSession(t *testing.T) {
	// The session ran out but nothing has rewritten the stored flags yet.
	// The machine is logically complete, so a new start must succeed and
	// forfeit the unclaimed reward.
	m := testMachine(0.5, 3600, 100)
	m.Running = true
	m.EffectiveRate = 0.5
	m.EffectiveDurationSec = 3600
	started := time.Now().Add(-2 * time.Hour)
	m.StartedAt = &started

	now := time.Now()
	err := StartSession(m, NeutralBuffs(), now)
	require.NoError(t, err)

	assert.True(t, m.Running)
	assert.False(t, m.Complete)
	assert.Equal(t, int64(0), m.ProgressSec)
	require.NotNil(t, m.StartedAt)
	assert.Equal(t, now, *m.StartedAt)
}

func TestStartSessionOverSweptCompleteSession(t *testing.T) {
	// Same forfeit, after the sweeper already settled the stored flags.
	m := testMachine(0.5, 3600, 100)
	m.Complete = true
	m.ProgressSec = 3600

	err := StartSession(m, NeutralBuffs(), time.Now())
	require.NoError(t, err)
	assert.True(t, m.Running)
	assert.False(t, m.Complete)
}

func TestClaimImmediatelyAfterStartFails(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()
	require.NoError(t, StartSession(m, NeutralBuffs(), now))

	_, err := ClaimSession(m, DefaultTuning(), now)
	assert.ErrorIs(t, err, ErrSessionNotComplete)
	assert.True(t, m.Running)
}

func TestClaimSessionPayoutBreakdown(t *testing.T) {
	// baseRate 0.5 IGT/s over 12s at 92% health: gross 6, afterHealth 5,
	// fee 0, final 5, health decays to 87.
	m := testMachine(0.5, 12, 92)
	m.EffectiveRate = 0.5
	m.EffectiveDurationSec = 12
	m.Running = true
	started := time.Now().Add(-30 * time.Second)
	m.StartedAt = &started

	// DurationSec below the session floor is fine here; the frozen
	// effective duration is what the claim settles against.
	res, err := ClaimSession(m, DefaultTuning(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(6), res.Gross)
	assert.Equal(t, int64(5), res.AfterHealth)
	assert.Equal(t, int64(0), res.Fee)
	assert.Equal(t, int64(5), res.Final)
	assert.Equal(t, 87, res.HealthAfter)

	assert.False(t, m.Running)
	assert.False(t, m.Complete)
	assert.Equal(t, int64(0), m.ProgressSec)
	assert.Equal(t, 87, m.HealthPct)
	assert.Nil(t, m.StartedAt)
	assert.NotNil(t, m.LastClaimAt)
}

func TestClaimSessionChargesElectricBill(t *testing.T) {
	m := testMachine(1.0, 1000, 100)
	m.EffectiveRate = 1.0
	m.EffectiveDurationSec = 1000
	m.Running = true
	started := time.Now().Add(-2000 * time.Second)
	m.StartedAt = &started

	res, err := ClaimSession(m, DefaultTuning(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(1000), res.Gross)
	assert.Equal(t, int64(1000), res.AfterHealth)
	assert.Equal(t, int64(10), res.Fee)
	assert.Equal(t, int64(990), res.Final)
}

func TestClaimPayoutMonotonicInHealth(t *testing.T) {
	claimAt := func(health int) int64 {
		m := testMachine(0.75, 600, health)
		m.EffectiveRate = 0.75
		m.EffectiveDurationSec = 600
		m.Running = true
		started := time.Now().Add(-time.Hour)
		m.StartedAt = &started
		res, err := ClaimSession(m, DefaultTuning(), time.Now())
		require.NoError(t, err)
		return res.Final
	}

	prev := claimAt(1)
	for health := 2; health <= 100; health++ {
		cur := claimAt(health)
		assert.GreaterOrEqual(t, cur, prev, "payout dropped at health %d", health)
		prev = cur
	}
}

func TestHealthStaysInRangeAcrossClaims(t *testing.T) {
	m := testMachine(0.5, 60, 100)
	tuning := DefaultTuning()

	for i := 0; i < 30; i++ {
		now := time.Now()
		err := StartSession(m, NeutralBuffs(), now)
		if err != nil {
			assert.ErrorIs(t, err, ErrMachineBroken)
			break
		}
		_, err = ClaimSession(m, tuning, now.Add(time.Duration(m.EffectiveDurationSec)*time.Second))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.HealthPct, 0)
		assert.LessOrEqual(t, m.HealthPct, 100)
	}
	assert.Equal(t, 0, m.HealthPct)
}

func TestRepairCostZeroOnlyAtFullHealth(t *testing.T) {
	m := testMachine(0.5, 14400, 100)
	_, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
	assert.ErrorIs(t, err, ErrAlreadyHealthy)

	for health := 99; health >= 0; health -= 11 {
		m.HealthPct = health
		cost, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
		require.NoError(t, err)
		assert.Greater(t, cost, int64(0), "repair at health %d should cost gold", health)
	}
}

func TestRepairCostSingleScalingFormula(t *testing.T) {
	// gross = floor(0.5*14400) = 7200; missing 50%, repairPct 1%:
	// ceil(7200 * 0.50 * 0.01) = 36.
	m := testMachine(0.5, 14400, 50)
	cost, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, int64(36), cost)
}

func TestRepairCostUsesCurrentBuffsNotFrozenOnes(t *testing.T) {
	m := testMachine(0.5, 14400, 50)
	// Stale frozen values from an old session must not leak into the quote.
	m.EffectiveRate = 99.0
	m.EffectiveDurationSec = 999999

	cost, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, int64(36), cost)
}

func TestRepairCostFreeOnZeroRateMachine(t *testing.T) {
	// A machine that produces nothing quotes a free repair, not an error.
	m := testMachine(0, 3600, 40)
	cost, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, int64(0), cost)
}

func TestRepairFailsWhileRunning(t *testing.T) {
	m := testMachine(0.5, 3600, 40)
	require.NoError(t, StartSession(m, NeutralBuffs(), time.Now()))

	_, err := RepairCost(m, NeutralBuffs(), DefaultTuning())
	assert.ErrorIs(t, err, ErrCannotRepairWhileRunning)
}
