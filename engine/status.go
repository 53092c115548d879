// engine/status.go
package engine

import (
	"time"

	"github.com/rigforge/rig-services/shared/models"
)

// Status is the time-projected view of a machine for a given instant.
type Status struct {
	Running       bool    `json:"running"`
	ProgressSec   int64   `json:"progressSec"`
	RemainingSec  int64   `json:"remainingSec"`
	DurationSec   int64   `json:"durationSec"`
	Complete      bool    `json:"complete"`
	EffectiveRate float64 `json:"effectiveRate"`
}

// ComputeStatus derives a machine's current progress from its persisted
// fields and the supplied clock. It never mutates the machine and returns
// identical output for identical inputs, so it is safe to call on every
// status poll. For a running machine the elapsed wall time since StartedAt
// is authoritative; the stored ProgressSec/Complete cache is only reported
// verbatim when no session is in flight.
func ComputeStatus(m *models.Machine, now time.Time) Status {
	rate := m.EffectiveRate
	if rate == 0 {
		rate = m.BaseRate
	}
	dur := m.EffectiveDurationSec
	if dur == 0 {
		dur = m.DurationSec
	}

	if m.Running && m.StartedAt != nil {
		elapsed := int64(now.Sub(*m.StartedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > dur {
			elapsed = dur
		}
		complete := elapsed >= dur
		return Status{
			Running:       !complete,
			ProgressSec:   elapsed,
			RemainingSec:  dur - elapsed,
			DurationSec:   dur,
			Complete:      complete,
			EffectiveRate: rate,
		}
	}

	remaining := dur - m.ProgressSec
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Running:       false,
		ProgressSec:   m.ProgressSec,
		RemainingSec:  remaining,
		DurationSec:   dur,
		Complete:      m.Complete,
		EffectiveRate: rate,
	}
}
