// shared/models/machine.go
package models

import "time"

// Machine represents one mining rig owned by a player, stored persistently in MongoDB.
// While a session runs, progress is derived from StartedAt by the status projector;
// ProgressSec and Complete are denormalized caches refreshed on writes, never
// trusted as authoritative while Running is true.
type Machine struct {
	ID                   string     `bson:"_id" json:"id"`
	OwnerID              string     `bson:"owner_id" json:"ownerId"`
	BaseRate             float64    `bson:"base_rate" json:"baseRate"` // IGT/s before lab buffs
	DurationSec          int64      `bson:"duration_sec" json:"durationSec"`
	HealthPct            int        `bson:"health_pct" json:"healthPct"` // 0..100
	Running              bool       `bson:"running" json:"running"`
	Complete             bool       `bson:"complete" json:"complete"`
	ProgressSec          int64      `bson:"progress_sec" json:"progressSec"`
	StartedAt            *time.Time `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EffectiveRate        float64    `bson:"effective_rate" json:"effectiveRate"` // frozen at session start
	EffectiveDurationSec int64      `bson:"effective_duration_sec" json:"effectiveDurationSec"`
	LastClaimAt          *time.Time `bson:"last_claim_at,omitempty" json:"lastClaimAt,omitempty"`
	CreatedAt            *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt            *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}
