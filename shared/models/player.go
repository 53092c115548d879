// shared/models/player.go
package models

import "time"

// Player represents a player's profile data stored persistently in MongoDB.
// Gold is the only balance the services mutate; it is kept as whole units and
// must never go negative through a credit/debit operation.
type Player struct {
	ID        string     `bson:"_id" json:"id"`
	Username  string     `bson:"username,omitempty" json:"username,omitempty"`
	Gold      int64      `bson:"gold" json:"gold"`
	CreatedAt *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}
