package document

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_IsEmpty(t *testing.T) {
	assert.True(t, Document{Filename: "x.pdf"}.IsEmpty())
	assert.True(t, Document{Content: "  "}.IsEmpty())
	assert.False(t, Document{URL: "https://files/x.pdf"}.IsEmpty())
	assert.False(t, Document{StorageKey: "offers/1/x.pdf"}.IsEmpty())
}

func TestDocument_Decode(t *testing.T) {
	doc := Document{Filename: "offer.pdf", Content: base64.StdEncoding.EncodeToString([]byte("doc"))}
	raw, err := doc.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), raw)

	_, err = Document{Filename: "bad.pdf", Content: "%%%"}.Decode()
	assert.Error(t, err)
	assert.Equal(t, "application/octet-stream", doc.MediaType())
}
