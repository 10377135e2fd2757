package storage

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/infrastructure/config"
)

func TestInlineDocumentStore(t *testing.T) {
	store := NewInlineDocumentStore()
	doc := document.Document{Filename: "id.pdf", Content: base64.StdEncoding.EncodeToString([]byte("abc"))}

	out, err := store.Put(context.Background(), "offers/1", "id", doc)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, out.Content)
	assert.Equal(t, 3, out.Size)

	raw, err := store.Fetch(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)

	_, err = store.Put(context.Background(), "offers/1", "id", document.Document{Content: "***"})
	assert.Error(t, err)
}

func TestNewDocumentStore_Disabled(t *testing.T) {
	store, err := NewDocumentStore(context.Background(), config.StorageConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &InlineDocumentStore{}, store)
}
