package domain

import (
	"time"
)

// InstrumentInfo represents persisted metadata for an instrument
type InstrumentInfo struct {
	Symbol       string    `gorm:"primaryKey" json:"symbol"`
	Name         string    `json:"name"`
	LotSize      int       `json:"lot_size"`
	IsFavorite   bool      `json:"is_favorite" gorm:"index"` // User favorite status
	LastSyncedAt time.Time `json:"last_synced_at"`           // Last static-info sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AlertEventRecord is the durable append-only form of an AlertEvent.
// The engine only ever inserts; rows are never updated or deleted.
type AlertEventRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	RuleID     string    `gorm:"index" json:"rule_id"`
	Instrument string    `gorm:"index" json:"instrument"`
	Kind       string    `json:"kind"`
	Threshold  string    `json:"threshold"`
	Value      string    `json:"value"`
	FiredAt    time.Time `gorm:"index" json:"fired_at"`
}
