package shared

import (
	"context"
	"fmt"
	"sort"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/shared"
)

// StoreDocument checks the inline payload and hands it to the store.
// Malformed content is a validation failure; store errors are dependency
// failures.
func StoreDocument(ctx context.Context, store DocumentStore, prefix, slot string, doc document.Document) (document.Document, error) {
	if doc.IsEmpty() {
		return doc, nil
	}
	if _, err := doc.Decode(); err != nil {
		return doc, shared.NewValidationError(fmt.Sprintf("Document %s is not valid base64 content", slot))
	}
	stored, err := store.Put(ctx, prefix, slot, doc)
	if err != nil {
		return doc, shared.NewDependencyError(fmt.Sprintf("Failed to store document %s: %v", slot, err))
	}
	return stored, nil
}

// StoreDocumentSet stores every document of the set in slug order
func StoreDocumentSet(ctx context.Context, store DocumentStore, prefix string, docs document.Set) (document.Set, error) {
	keys := docs.Keys()
	sort.Strings(keys)
	out := make(document.Set, len(docs))
	for _, slot := range keys {
		stored, err := StoreDocument(ctx, store, prefix, slot, docs[slot])
		if err != nil {
			return nil, err
		}
		out[slot] = stored
	}
	return out, nil
}

// Attachments loads the bytes of documents for an outgoing email
func Attachments(ctx context.Context, store DocumentStore, docs []document.Document) ([]Attachment, error) {
	out := make([]Attachment, 0, len(docs))
	for i, d := range docs {
		data, err := store.Fetch(ctx, d)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		name := d.Filename
		if name == "" {
			name = fmt.Sprintf("document-%d", i+1)
		}
		out = append(out, Attachment{Filename: name, ContentType: d.MediaType(), Data: data})
	}
	return out, nil
}
