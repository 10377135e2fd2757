package requirement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/shared"
)

// SlugSet returns the slugs in use, optionally ignoring one requirement
func SlugSet(reqs []*Requirement, exceptID int64) map[string]bool {
	taken := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		if r.ID != exceptID {
			taken[r.Slug] = true
		}
	}
	return taken
}

// NextPosition returns the ordinal for a requirement appended to the list
func NextPosition(reqs []*Requirement) int {
	return len(reqs) + 1
}

// SortByPosition orders requirements by position, then id
func SortByPosition(reqs []*Requirement) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].Position != reqs[j].Position {
			return reqs[i].Position < reqs[j].Position
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// Compact renumbers positions 1..n in the current order and returns the
// requirements whose position changed.
func Compact(reqs []*Requirement) []*Requirement {
	SortByPosition(reqs)
	var changed []*Requirement
	for i, r := range reqs {
		if r.Position != i+1 {
			r.Position = i + 1
			changed = append(changed, r)
		}
	}
	return changed
}

// Reorder applies the caller's ordering. orderedIDs must be exactly the
// current membership, with no duplicates.
func Reorder(reqs []*Requirement, orderedIDs []int64) ([]*Requirement, error) {
	byID := make(map[int64]*Requirement, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}
	if len(orderedIDs) != len(reqs) {
		return nil, shared.NewConflictError("Requirement order must list exactly the current requirements")
	}
	seen := make(map[int64]bool, len(orderedIDs))
	ordered := make([]*Requirement, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		r, ok := byID[id]
		if !ok || seen[id] {
			return nil, shared.NewConflictError("Requirement order must list exactly the current requirements")
		}
		seen[id] = true
		ordered = append(ordered, r)
	}
	for i, r := range ordered {
		r.Position = i + 1
	}
	return ordered, nil
}

// Validate checks that docs satisfies exactly the configured requirements.
// Missing documents are reported before unknown ones.
func Validate(reqs []*Requirement, docs document.Set) error {
	known := make(map[string]bool, len(reqs))
	var missing []string
	for _, r := range reqs {
		known[r.Slug] = true
		doc, ok := docs[r.Slug]
		if !ok || doc.IsEmpty() {
			missing = append(missing, r.Name)
		}
	}
	if len(missing) > 0 {
		return shared.NewValidationError(fmt.Sprintf("Missing required documents: %s", strings.Join(missing, ", "))).
			WithDetails(missing...)
	}

	var unknown []string
	for key := range docs {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return shared.NewValidationError(fmt.Sprintf("Unknown document fields: %s", strings.Join(unknown, ", "))).
			WithDetails(unknown...)
	}
	return nil
}
