package property

import (
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
)

// Project groups stands of one development
type Project struct {
	shared.BaseAggregateRoot
	ID          int64     `json:"id" validate:"required,gt=0"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	Location    string    `json:"location,omitempty" validate:"max=500"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a project with the given identifier
func NewProject(id int64, name, description, location, createdBy string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Project name is required")
	}
	now := time.Now().UTC()
	return &Project{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update replaces the descriptive fields; empty values keep the current ones
func (p *Project) Update(name, description, location *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return shared.NewValidationError("Project name is required")
		}
		p.Name = trimmed
	}
	if description != nil {
		p.Description = strings.TrimSpace(*description)
	}
	if location != nil {
		p.Location = strings.TrimSpace(*location)
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
