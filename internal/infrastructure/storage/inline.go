package storage

import (
	"context"

	"github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ shared.DocumentStore = (*InlineDocumentStore)(nil)

// InlineDocumentStore keeps documents inside the entity snapshot. Used when
// object storage is disabled.
type InlineDocumentStore struct{}

// NewInlineDocumentStore creates an InlineDocumentStore
func NewInlineDocumentStore() *InlineDocumentStore {
	return &InlineDocumentStore{}
}

// Put validates the inline content and records its size.
func (InlineDocumentStore) Put(_ context.Context, _, _ string, doc document.Document) (document.Document, error) {
	raw, err := doc.Decode()
	if err != nil {
		return doc, err
	}
	if raw != nil {
		doc.Size = len(raw)
	}
	return doc, nil
}

// Fetch decodes the inline content.
func (InlineDocumentStore) Fetch(_ context.Context, doc document.Document) ([]byte, error) {
	return doc.Decode()
}

// NewDocumentStore returns the S3 store when storage is enabled, the inline store otherwise.
func NewDocumentStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (shared.DocumentStore, error) {
	if !cfg.Enabled {
		return NewInlineDocumentStore(), nil
	}
	store, err := NewS3DocumentStore(ctx, cfg, WithLogger(logger.Named("storage")))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
