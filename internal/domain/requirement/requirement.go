package requirement

import (
	"context"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
)

// WorkflowType is the submission flow a requirement applies to
type WorkflowType string

const (
	WorkflowOffer               WorkflowType = "offer"
	WorkflowPropertyApplication WorkflowType = "property_application"
	WorkflowAccountOpening      WorkflowType = "account_opening"
	WorkflowLoanApplication     WorkflowType = "loan_application"
)

// AllWorkflowTypes lists every workflow type
var AllWorkflowTypes = []WorkflowType{
	WorkflowOffer,
	WorkflowPropertyApplication,
	WorkflowAccountOpening,
	WorkflowLoanApplication,
}

// ParseWorkflowType accepts any case and hyphen or underscore separators
func ParseWorkflowType(s string) (WorkflowType, error) {
	normalized := WorkflowType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, wf := range AllWorkflowTypes {
		if wf == normalized {
			return wf, nil
		}
	}
	return "", shared.NewValidationError("Unknown workflow type: " + s)
}

// Label is the human-readable name of the workflow type
func (w WorkflowType) Label() string {
	switch w {
	case WorkflowOffer:
		return "Offer"
	case WorkflowPropertyApplication:
		return "Property Application"
	case WorkflowAccountOpening:
		return "Account Opening"
	case WorkflowLoanApplication:
		return "Loan Application"
	}
	return string(w)
}

// Requirement is a named mandatory attachment for a workflow type
type Requirement struct {
	shared.BaseAggregateRoot
	ID           int64        `json:"id" validate:"required,gt=0"`
	Name         string       `json:"name" validate:"required,max=200"`
	Slug         string       `json:"slug" validate:"required,max=220"`
	WorkflowType WorkflowType `json:"applies_to" validate:"required,oneof=offer property_application account_opening loan_application"`
	Position     int          `json:"position" validate:"gte=1"`
	Description  string       `json:"description,omitempty" validate:"max=1000"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewRequirement creates a requirement at the given position with the given slug
func NewRequirement(id int64, name string, wf WorkflowType, slug string, position int, description string) (*Requirement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Requirement name is required")
	}
	now := time.Now().UTC()
	return &Requirement{
		ID:           id,
		Name:         name,
		Slug:         slug,
		WorkflowType: wf,
		Position:     position,
		Description:  strings.TrimSpace(description),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Rename changes the display name. The slug is stable across renames so
// documents already submitted keep their keys.
func (r *Requirement) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("Requirement name is required")
	}
	r.Name = name
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MoveTo places the requirement in another workflow type
func (r *Requirement) MoveTo(wf WorkflowType, slug string, position int) {
	r.WorkflowType = wf
	r.Slug = slug
	r.Position = position
	r.UpdatedAt = time.Now().UTC()
}

// Repository persists requirements
type Repository interface {
	Create(ctx context.Context, req *Requirement) error
	Update(ctx context.Context, req *Requirement) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Requirement, error)
	// ListByWorkflow returns the requirements of one workflow type ordered by position
	ListByWorkflow(ctx context.Context, wf WorkflowType) ([]*Requirement, error)
}
