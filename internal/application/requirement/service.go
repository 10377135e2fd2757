// Package requirement manages the per-workflow document requirement lists
// and checks submissions against them.
package requirement

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
)

// RequirementCounter allocates requirement identifiers
const RequirementCounter = "next_requirement_id"

// listLockPrefix names the per-workflow counters bumped to serialize
// writers of one requirement list
const listLockPrefix = "requirements:"

// lockLists takes the row lock of each workflow's list counter in a fixed
// order. Lists must be read after this call.
func lockLists(ctx context.Context, repos appshared.Repositories, workflows ...requirement.WorkflowType) error {
	names := make([]string, 0, len(workflows))
	for _, wf := range workflows {
		names = append(names, listLockPrefix+string(wf))
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		if _, err := repos.Counters().Next(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// findLocked loads a requirement and locks its list, failing with
// ErrConcurrentModification when it moved before the lock was taken
func findLocked(ctx context.Context, repos appshared.Repositories, id int64, also ...requirement.WorkflowType) (*requirement.Requirement, error) {
	r, err := repos.Requirements().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lockLists(ctx, repos, append(also, r.WorkflowType)...); err != nil {
		return nil, err
	}
	locked, err := repos.Requirements().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if locked.WorkflowType != r.WorkflowType {
		return nil, shared.ErrConcurrentModification
	}
	return locked, nil
}

// CreateRequest represents a request to add a requirement
type CreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	AppliesTo   string `json:"applies_to" binding:"required"`
	Description string `json:"description" binding:"max=1000"`
}

// UpdateRequest renames a requirement and/or moves it to another workflow type
type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	AppliesTo   *string `json:"applies_to"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// ReorderRequest lists every requirement of a workflow type in its new order
type ReorderRequest struct {
	AppliesTo string  `json:"applies_to" binding:"required"`
	Order     []int64 `json:"order" binding:"required"`
}

// Response represents a requirement in API responses
type Response struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	AppliesTo   string    `json:"applies_to"`
	Label       string    `json:"label"`
	Position    int       `json:"position"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToResponse converts a domain requirement to a response DTO
func ToResponse(r *requirement.Requirement) Response {
	return Response{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		AppliesTo:   string(r.WorkflowType),
		Label:       r.WorkflowType.Label(),
		Position:    r.Position,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toResponses(reqs []*requirement.Requirement) []Response {
	result := make([]Response, 0, len(reqs))
	for _, r := range reqs {
		result = append(result, ToResponse(r))
	}
	return result
}

// Service is the document requirement policy
type Service struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewService creates a new requirement service
func NewService(scope appshared.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// Create appends a requirement to its workflow type with a unique slug. Admin only.
func (s *Service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	wf, err := requirement.ParseWorkflowType(req.AppliesTo)
	if err != nil {
		return nil, err
	}

	var created *requirement.Requirement
	err = s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		if err := lockLists(ctx, repos, wf); err != nil {
			return err
		}
		existing, err := repos.Requirements().ListByWorkflow(ctx, wf)
		if err != nil {
			return err
		}
		id, err := repos.Counters().Next(ctx, RequirementCounter)
		if err != nil {
			return err
		}
		slug := requirement.UniqueSlug(requirement.Slugify(req.Name), requirement.SlugSet(existing, 0))
		created, err = requirement.NewRequirement(id, req.Name, wf, slug, requirement.NextPosition(existing), req.Description)
		if err != nil {
			return err
		}
		return repos.Requirements().Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Requirement created",
		zap.Int64("requirement_id", created.ID),
		zap.String("slug", created.Slug),
		zap.String("applies_to", string(wf)))
	resp := ToResponse(created)
	return &resp, nil
}

// Update renames and/or moves a requirement. Moving appends it to the
// target workflow type, re-deriving the slug on collision, and closes the
// gap it leaves behind. Admin only.
func (s *Service) Update(ctx context.Context, principal identity.Principal, id int64, req UpdateRequest) (*Response, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	var target *requirement.WorkflowType
	if req.AppliesTo != nil {
		wf, err := requirement.ParseWorkflowType(*req.AppliesTo)
		if err != nil {
			return nil, err
		}
		target = &wf
	}

	var updated *requirement.Requirement
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var also []requirement.WorkflowType
		if target != nil {
			also = append(also, *target)
		}
		r, err := findLocked(ctx, repos, id, also...)
		if err != nil {
			return err
		}
		if req.Name != nil {
			if err := r.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.Description != nil {
			r.Description = *req.Description
		}
		if target != nil && *target != r.WorkflowType {
			source := r.WorkflowType
			dest, err := repos.Requirements().ListByWorkflow(ctx, *target)
			if err != nil {
				return err
			}
			slug := requirement.UniqueSlug(r.Slug, requirement.SlugSet(dest, r.ID))
			r.MoveTo(*target, slug, requirement.NextPosition(dest))
			if err := repos.Requirements().Update(ctx, r); err != nil {
				return err
			}
			updated = r
			return s.compact(ctx, repos, source)
		}
		if err := repos.Requirements().Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToResponse(updated)
	return &resp, nil
}

// Delete removes a requirement and renumbers the rest of its list. Admin only.
func (s *Service) Delete(ctx context.Context, principal identity.Principal, id int64) error {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return err
	}
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		r, err := findLocked(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := repos.Requirements().Delete(ctx, id); err != nil {
			return err
		}
		return s.compact(ctx, repos, r.WorkflowType)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Requirement deleted", zap.Int64("requirement_id", id), zap.String("deleted_by", principal.Username))
	return nil
}

// Reorder applies a full ordering to one workflow type's requirements.
// The list must name exactly the current members. Admin only.
func (s *Service) Reorder(ctx context.Context, principal identity.Principal, req ReorderRequest) ([]Response, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	wf, err := requirement.ParseWorkflowType(req.AppliesTo)
	if err != nil {
		return nil, err
	}

	var ordered []*requirement.Requirement
	err = appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		if err := lockLists(ctx, repos, wf); err != nil {
			return err
		}
		current, err := repos.Requirements().ListByWorkflow(ctx, wf)
		if err != nil {
			return err
		}
		before := make(map[int64]int, len(current))
		for _, r := range current {
			before[r.ID] = r.Position
		}
		ordered, err = requirement.Reorder(current, req.Order)
		if err != nil {
			return err
		}
		for _, r := range ordered {
			if before[r.ID] == r.Position {
				continue
			}
			r.UpdatedAt = time.Now().UTC()
			if err := repos.Requirements().Update(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toResponses(ordered), nil
}

// List returns requirements grouped by workflow type in position order.
// A nil workflow type lists all of them.
func (s *Service) List(ctx context.Context, principal identity.Principal, appliesTo *string) ([]Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	workflows := requirement.AllWorkflowTypes
	if appliesTo != nil && *appliesTo != "" {
		wf, err := requirement.ParseWorkflowType(*appliesTo)
		if err != nil {
			return nil, err
		}
		workflows = []requirement.WorkflowType{wf}
	}
	result := make([]Response, 0)
	for _, wf := range workflows {
		reqs, err := s.scope.Repositories().Requirements().ListByWorkflow(ctx, wf)
		if err != nil {
			return nil, err
		}
		result = append(result, toResponses(reqs)...)
	}
	return result, nil
}

// Get returns a requirement
func (s *Service) Get(ctx context.Context, principal identity.Principal, id int64) (*Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	r, err := s.scope.Repositories().Requirements().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(r)
	return &resp, nil
}

func (s *Service) compact(ctx context.Context, repos appshared.Repositories, wf requirement.WorkflowType) error {
	remaining, err := repos.Requirements().ListByWorkflow(ctx, wf)
	if err != nil {
		return err
	}
	for _, r := range requirement.Compact(remaining) {
		if err := repos.Requirements().Update(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDocuments checks docs against the current requirement set of wf
// inside the caller's transaction.
func ValidateDocuments(ctx context.Context, repos appshared.Repositories, wf requirement.WorkflowType, docs document.Set) error {
	reqs, err := repos.Requirements().ListByWorkflow(ctx, wf)
	if err != nil {
		return err
	}
	return requirement.Validate(reqs, docs)
}
