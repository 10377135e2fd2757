// Package models contains the GORM models backing the entity store.
//
// Domain aggregates never carry GORM tags. They are serialized into
// SnapshotModel rows keyed by (collection, entity_key); append-only logs use
// ListEntryModel and identifier allocation uses CounterModel.
package models
