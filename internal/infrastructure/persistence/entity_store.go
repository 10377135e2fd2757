package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errSnapshotMissing is translated into a typed NOT_FOUND by repositories
var errSnapshotMissing = errors.New("snapshot not found")

// RawSnapshot is a stored snapshot before decoding
type RawSnapshot struct {
	Key     string
	Data    []byte
	Version int
}

// EntityStore keeps whole-aggregate JSON snapshots keyed by (collection, key),
// append-only lists and named counters. Every write of a snapshot replaces it
// atomically; updates carry the version the caller read.
type EntityStore struct {
	db       *gorm.DB
	validate *validator.Validate
}

var snapshotValidator = validator.New(validator.WithRequiredStructEnabled())

// NewEntityStore creates an entity store on the given connection
func NewEntityStore(db *gorm.DB) *EntityStore {
	return &EntityStore{db: db, validate: snapshotValidator}
}

// WithTx returns a store bound to the given transaction
func (s *EntityStore) WithTx(tx *gorm.DB) *EntityStore {
	return &EntityStore{db: tx, validate: s.validate}
}

// DB exposes the underlying connection
func (s *EntityStore) DB() *gorm.DB {
	return s.db
}

// Insert stores a new snapshot with version 1. An existing key is a CONFLICT.
func (s *EntityStore) Insert(ctx context.Context, collection, key string, v any) error {
	data, err := s.encode(v)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "entity_key"}},
			DoNothing: true,
		}).
		Create(&models.SnapshotModel{
			Collection: collection,
			EntityKey:  key,
			Data:       data,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	if result.Error != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError(fmt.Sprintf("%s %s already exists", collection, key))
	}
	return nil
}

// Get decodes the snapshot into dst and returns its version
func (s *EntityStore) Get(ctx context.Context, collection, key string, dst any) (int, error) {
	var model models.SnapshotModel
	err := s.db.WithContext(ctx).
		Where("collection = ? AND entity_key = ?", collection, key).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errSnapshotMissing
		}
		return 0, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(model.Data, dst); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return model.Version, nil
}

// Update replaces a snapshot if it still has expectedVersion and returns the
// new version. A lost race yields CONCURRENT_MODIFICATION.
func (s *EntityStore) Update(ctx context.Context, collection, key string, v any, expectedVersion int) (int, error) {
	data, err := s.encode(v)
	if err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).
		Model(&models.SnapshotModel{}).
		Where("collection = ? AND entity_key = ? AND version = ?", collection, key, expectedVersion).
		Updates(map[string]any{
			"data":       data,
			"version":    expectedVersion + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("update %s/%s: %w", collection, key, result.Error)
	}
	if result.RowsAffected == 0 {
		exists, err := s.Exists(ctx, collection, key)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, errSnapshotMissing
		}
		return 0, shared.ErrConcurrentModification
	}
	return expectedVersion + 1, nil
}

// Delete removes a snapshot
func (s *EntityStore) Delete(ctx context.Context, collection, key string) error {
	result := s.db.WithContext(ctx).
		Where("collection = ? AND entity_key = ?", collection, key).
		Delete(&models.SnapshotModel{})
	if result.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, result.Error)
	}
	if result.RowsAffected == 0 {
		return errSnapshotMissing
	}
	return nil
}

// Exists reports whether a snapshot is stored under the key
func (s *EntityStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SnapshotModel{}).
		Where("collection = ? AND entity_key = ?", collection, key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count %s/%s: %w", collection, key, err)
	}
	return count > 0, nil
}

// Count returns the number of snapshots in a collection
func (s *EntityStore) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SnapshotModel{}).
		Where("collection = ?", collection).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// List returns every snapshot of a collection in insertion order
func (s *EntityStore) List(ctx context.Context, collection string) ([]RawSnapshot, error) {
	var rows []models.SnapshotModel
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Order("entity_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]RawSnapshot, len(rows))
	for i, r := range rows {
		out[i] = RawSnapshot{Key: r.EntityKey, Data: r.Data, Version: r.Version}
	}
	return out, nil
}

// Append adds a record to an append-only collection
func (s *EntityStore) Append(ctx context.Context, collection string, v any) error {
	_, err := s.appendEntry(ctx, collection, nil, v)
	return err
}

// AppendOnce adds a record unless one with the same dedup key exists in the
// collection. It reports whether the record was written.
func (s *EntityStore) AppendOnce(ctx context.Context, collection, dedupKey string, v any) (bool, error) {
	return s.appendEntry(ctx, collection, &dedupKey, v)
}

func (s *EntityStore) appendEntry(ctx context.Context, collection string, dedupKey *string, v any) (bool, error) {
	data, err := s.encode(v)
	if err != nil {
		return false, err
	}
	entry := &models.ListEntryModel{
		Collection: collection,
		DedupKey:   dedupKey,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}
	db := s.db.WithContext(ctx)
	if dedupKey != nil {
		db = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "dedup_key"}},
			DoNothing: true,
		})
	}
	result := db.Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("append %s: %w", collection, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Entries returns the raw records of an append-only collection, oldest first
func (s *EntityStore) Entries(ctx context.Context, collection string) ([][]byte, error) {
	var rows []models.ListEntryModel
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("entries %s: %w", collection, err)
	}
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = r.Data
	}
	return out, nil
}

// encode validates struct snapshots and serializes them
func (s *EntityStore) encode(v any) ([]byte, error) {
	if err := s.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return nil, validationError(err)
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// validationError turns validator output into a VALIDATION_FAILED error
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.NewValidationError(err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return shared.NewValidationError("Invalid snapshot").WithDetails(details...)
}
