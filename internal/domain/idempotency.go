// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the outcome of a previously processed booking request,
// keyed by (caller, slot_id, key). A retried POST with the same key is served
// the stored slot instead of attempting the booking again.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Caller    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_caller_slot_key,priority:1"`
	SlotID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_caller_slot_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_caller_slot_key,priority:3"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
