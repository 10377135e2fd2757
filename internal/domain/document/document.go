// Package document holds the uploaded-file value shared by submissions,
// agreements and customer profiles.
package document

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Document is an uploaded file. Content is base64 as received over the API;
// once moved to object storage only StorageKey (and optionally URL) remain.
type Document struct {
	Filename    string `json:"filename" validate:"omitempty,max=255"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content,omitempty" validate:"omitempty,base64"`
	URL         string `json:"url,omitempty" validate:"omitempty,max=2048"`
	StorageKey  string `json:"storage_key,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// IsEmpty reports whether the document carries no payload at all
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Content) == "" && strings.TrimSpace(d.URL) == "" && d.StorageKey == ""
}

// Decode returns the raw bytes of an inline document
func (d Document) Decode() ([]byte, error) {
	if d.Content == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(d.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Filename, err)
	}
	return raw, nil
}

// MediaType returns the content type, defaulting to octet-stream
func (d Document) MediaType() string {
	if d.ContentType == "" {
		return "application/octet-stream"
	}
	return d.ContentType
}

// Set is a map of requirement slug to uploaded document
type Set map[string]Document

// Keys returns the slugs present in the set
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
