package property

import "context"

// ProjectRepository persists projects
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
}

// StandFilter narrows stand listings
type StandFilter struct {
	ProjectID *int64
	Status    *StandStatus
}

// Matches reports whether the stand satisfies the filter
func (f StandFilter) Matches(s *Stand) bool {
	if f.ProjectID != nil && s.ProjectID != *f.ProjectID {
		return false
	}
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	return true
}

// StandRepository persists stands with optimistic versioning
type StandRepository interface {
	Create(ctx context.Context, stand *Stand) error
	Update(ctx context.Context, stand *Stand) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Stand, error)
	List(ctx context.Context, filter StandFilter) ([]*Stand, error)
}

// MandateHistoryRepository is the append-only log of mandate changes per stand
type MandateHistoryRepository interface {
	Append(ctx context.Context, entry MandateHistoryEntry) error
	ListByStand(ctx context.Context, standID int64) ([]MandateHistoryEntry, error)
}
