package models

import "time"

// SnapshotModel stores the JSON snapshot of one aggregate
type SnapshotModel struct {
	Collection string    `gorm:"type:varchar(64);primaryKey"`
	EntityKey  string    `gorm:"type:varchar(128);primaryKey"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	Version    int       `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"not null;index:idx_snapshot_created"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SnapshotModel) TableName() string {
	return "entity_snapshots"
}

// ListEntryModel is one record of an append-only collection. DedupKey is
// unique within a collection when set.
type ListEntryModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Collection string    `gorm:"type:varchar(64);not null;index:idx_list_collection;uniqueIndex:idx_list_dedup,priority:1"`
	DedupKey   *string   `gorm:"type:varchar(128);uniqueIndex:idx_list_dedup,priority:2"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ListEntryModel) TableName() string {
	return "entity_list_entries"
}

// CounterModel is a named monotonically increasing value
type CounterModel struct {
	Name  string `gorm:"type:varchar(64);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CounterModel) TableName() string {
	return "entity_counters"
}

// All returns every model for AutoMigrate
func All() []any {
	return []any{
		&SnapshotModel{},
		&ListEntryModel{},
		&CounterModel{},
		&OutboxEntryModel{},
	}
}
