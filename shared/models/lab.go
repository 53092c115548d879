// shared/models/lab.go
package models

import "time"

// LabSlot is one position on a player's upgrade board. Slot indices are
// 1-based. A locked slot never holds an item; unequipping never relocks.
type LabSlot struct {
	SlotIndex int    `bson:"slot_index" json:"slotIndex"` // 1..5
	Unlocked  bool   `bson:"unlocked" json:"unlocked"`
	ItemID    string `bson:"item_id,omitempty" json:"itemId,omitempty"`
}

// Lab is a player's upgrade board: five slots per module category.
// Equipped miners add to the production rate, technicians multiply it,
// coolers extend the session duration.
type Lab struct {
	OwnerID    string     `bson:"_id" json:"ownerId"`
	Miner      []LabSlot  `bson:"miner" json:"miner"`
	Technician []LabSlot  `bson:"technician" json:"technician"`
	Cooler     []LabSlot  `bson:"cooler" json:"cooler"`
	UpdatedAt  *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}
