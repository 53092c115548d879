// engine/status_test.go
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatusMidSession(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()
	require.NoError(t, StartSession(m, NeutralBuffs(), now))

	st := ComputeStatus(m, now.Add(90*time.Second))
	assert.True(t, st.Running)
	assert.Equal(t, int64(90), st.ProgressSec)
	assert.Equal(t, int64(3510), st.RemainingSec)
	assert.Equal(t, int64(3600), st.DurationSec)
	assert.False(t, st.Complete)
	assert.Equal(t, 0.5, st.EffectiveRate)
}

func TestComputeStatusCompletesAtDuration(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()
	require.NoError(t, StartSession(m, NeutralBuffs(), now))

	st := ComputeStatus(m, now.Add(3600*time.Second))
	assert.True(t, st.Complete)
	assert.False(t, st.Running)
	assert.Equal(t, int64(3600), st.ProgressSec)
	assert.Equal(t, int64(0), st.RemainingSec)
}

func TestComputeStatusClampsProgressPastDuration(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()
	require.NoError(t, StartSession(m, NeutralBuffs(), now))

	st := ComputeStatus(m, now.Add(10*time.Hour))
	assert.Equal(t, int64(3600), st.ProgressSec)
	assert.Equal(t, int64(0), st.RemainingSec)
	assert.True(t, st.Complete)
}

func TestComputeStatusIdempotent(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	now := time.Now()
	require.NoError(t, StartSession(m, NeutralBuffs(), now))

	at := now.Add(42 * time.Second)
	first := ComputeStatus(m, at)
	second := ComputeStatus(m, at)
	assert.Equal(t, first, second)
}

func TestComputeStatusIdleReportsStoredFields(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	m.ProgressSec = 1200
	m.Complete = false

	st := ComputeStatus(m, time.Now())
	assert.False(t, st.Running)
	assert.Equal(t, int64(1200), st.ProgressSec)
	assert.Equal(t, int64(2400), st.RemainingSec)
	assert.False(t, st.Complete)
}

func TestComputeStatusFinalizedMachineReportsComplete(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	m.EffectiveRate = 0.5
	m.EffectiveDurationSec = 3600
	m.Running = false
	m.Complete = true
	m.ProgressSec = 3600

	st := ComputeStatus(m, time.Now())
	assert.True(t, st.Complete)
	assert.False(t, st.Running)
	assert.Equal(t, int64(0), st.RemainingSec)
}

func TestComputeStatusNeverStartedMachineFallsBackToBase(t *testing.T) {
	m := testMachine(0.75, 600, 100)
	st := ComputeStatus(m, time.Now())
	assert.Equal(t, 0.75, st.EffectiveRate)
	assert.Equal(t, int64(600), st.DurationSec)
	assert.Equal(t, int64(600), st.RemainingSec)
}

func TestComputeStatusFutureStartClampsToZero(t *testing.T) {
	m := testMachine(0.5, 3600, 100)
	started := time.Now().Add(time.Minute)
	m.Running = true
	m.StartedAt = &started
	m.EffectiveRate = 0.5
	m.EffectiveDurationSec = 3600

	st := ComputeStatus(m, time.Now())
	assert.Equal(t, int64(0), st.ProgressSec)
	assert.False(t, st.Complete)
}
