package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/propflow/backend/internal/domain/shared"
)

// snapshotRepository maps one aggregate type onto an entity-store collection
type snapshotRepository[T shared.Versioned] struct {
	store      *EntityStore
	collection string
	resource   string
	keyOf      func(T) string
	newT       func() T
}

func newSnapshotRepository[T shared.Versioned](store *EntityStore, collection, resource string, keyOf func(T) string, newT func() T) *snapshotRepository[T] {
	return &snapshotRepository[T]{
		store:      store,
		collection: collection,
		resource:   resource,
		keyOf:      keyOf,
		newT:       newT,
	}
}

func (r *snapshotRepository[T]) notFound(key string, err error) error {
	if errors.Is(err, errSnapshotMissing) {
		return shared.NewNotFoundError(r.resource, key)
	}
	return err
}

func (r *snapshotRepository[T]) create(ctx context.Context, v T) error {
	key := r.keyOf(v)
	if err := r.store.Insert(ctx, r.collection, key, v); err != nil {
		if shared.HasCode(err, shared.CodeConflict) {
			return shared.NewConflictError(fmt.Sprintf("%s %s already exists", r.resource, key))
		}
		return err
	}
	v.SetVersion(1)
	return nil
}

func (r *snapshotRepository[T]) update(ctx context.Context, v T) error {
	key := r.keyOf(v)
	version, err := r.store.Update(ctx, r.collection, key, v, v.GetVersion())
	if err != nil {
		return r.notFound(key, err)
	}
	v.SetVersion(version)
	return nil
}

// save inserts unseen aggregates (version 0) and updates the others. An
// unseen aggregate whose key was taken meanwhile was built from a stale
// read, so it reports ErrConcurrentModification rather than a conflict.
func (r *snapshotRepository[T]) save(ctx context.Context, v T) error {
	if v.GetVersion() != 0 {
		return r.update(ctx, v)
	}
	if err := r.store.Insert(ctx, r.collection, r.keyOf(v), v); err != nil {
		if shared.HasCode(err, shared.CodeConflict) {
			return shared.ErrConcurrentModification
		}
		return err
	}
	v.SetVersion(1)
	return nil
}

func (r *snapshotRepository[T]) get(ctx context.Context, key string) (T, error) {
	v := r.newT()
	version, err := r.store.Get(ctx, r.collection, key, v)
	if err != nil {
		var zero T
		return zero, r.notFound(key, err)
	}
	v.SetVersion(version)
	return v, nil
}

func (r *snapshotRepository[T]) delete(ctx context.Context, key string) error {
	return r.notFound(key, r.store.Delete(ctx, r.collection, key))
}

func (r *snapshotRepository[T]) exists(ctx context.Context, key string) (bool, error) {
	return r.store.Exists(ctx, r.collection, key)
}

func (r *snapshotRepository[T]) count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx, r.collection)
}

// list decodes every snapshot and keeps the ones accepted by keep
func (r *snapshotRepository[T]) list(ctx context.Context, keep func(T) bool) ([]T, error) {
	raws, err := r.store.List(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v := r.newT()
		if err := json.Unmarshal(raw.Data, v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", r.collection, raw.Key, err)
		}
		v.SetVersion(raw.Version)
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// listRepository maps append-only records onto an entity-store list
type listRepository[T any] struct {
	store      *EntityStore
	collection string
}

func (r *listRepository[T]) append(ctx context.Context, v *T) error {
	return r.store.Append(ctx, r.collection, v)
}

func (r *listRepository[T]) appendOnce(ctx context.Context, dedupKey string, v *T) (bool, error) {
	return r.store.AppendOnce(ctx, r.collection, dedupKey, v)
}

func (r *listRepository[T]) entries(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	raws, err := r.store.Entries(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("decode %s entry: %w", r.collection, err)
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}
