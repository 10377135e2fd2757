package requirement

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugSeparator = '_'

// Slugify lower-cases the name, folds accents and collapses every run of
// non-alphanumeric characters into a single separator.
func Slugify(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingSeparator := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSeparator && b.Len() > 0 {
				b.WriteRune(slugSeparator)
			}
			pendingSeparator = false
			b.WriteRune(r)
			continue
		}
		pendingSeparator = true
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

// UniqueSlug returns base, or base with the smallest numeric suffix (_2, _3, ...)
// that is not taken.
func UniqueSlug(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%c%d", base, slugSeparator, i)
		if !taken[candidate] {
			return candidate
		}
	}
}
