// Package property holds the project, stand and mandate use cases.
package property

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
)

// Counter names for identifier allocation
const (
	ProjectCounter = "next_project_id"
	StandCounter   = "next_stand_id"
)

// ProjectService manages projects
type ProjectService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewProjectService creates a new project service
func NewProjectService(scope appshared.TransactionScope, logger *zap.Logger) *ProjectService {
	return &ProjectService{scope: scope, logger: logger}
}

// Create adds a project. Admin only.
func (s *ProjectService) Create(ctx context.Context, principal identity.Principal, req CreateProjectRequest) (*ProjectResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}

	var project *property.Project
	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		id, err := repos.Counters().Next(ctx, ProjectCounter)
		if err != nil {
			return err
		}
		project, err = property.NewProject(id, req.Name, req.Description, req.Location, principal.Username)
		if err != nil {
			return err
		}
		return repos.Projects().Create(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project created", zap.Int64("project_id", project.ID), zap.String("name", project.Name))
	resp := ToProjectResponse(project)
	return &resp, nil
}

// Update changes the descriptive fields of a project. Admin only.
func (s *ProjectService) Update(ctx context.Context, principal identity.Principal, id int64, req UpdateProjectRequest) (*ProjectResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}

	var project *property.Project
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var err error
		project, err = repos.Projects().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := project.Update(req.Name, req.Description, req.Location); err != nil {
			return err
		}
		return repos.Projects().Update(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	resp := ToProjectResponse(project)
	return &resp, nil
}

// Delete removes a project that has no stands. Admin only.
func (s *ProjectService) Delete(ctx context.Context, principal identity.Principal, id int64) error {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return err
	}

	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		if _, err := repos.Projects().FindByID(ctx, id); err != nil {
			return err
		}
		stands, err := repos.Stands().List(ctx, property.StandFilter{ProjectID: &id})
		if err != nil {
			return err
		}
		if len(stands) > 0 {
			return shared.NewConflictError(fmt.Sprintf("Project %d still has %d stands", id, len(stands)))
		}
		return repos.Projects().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Project deleted", zap.Int64("project_id", id), zap.String("deleted_by", principal.Username))
	return nil
}

// Get returns a project
func (s *ProjectService) Get(ctx context.Context, principal identity.Principal, id int64) (*ProjectResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	project, err := s.scope.Repositories().Projects().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProjectResponse(project)
	return &resp, nil
}

// List returns every project ordered by identifier
func (s *ProjectService) List(ctx context.Context, principal identity.Principal) ([]ProjectResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	projects, err := s.scope.Repositories().Projects().List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		result = append(result, ToProjectResponse(p))
	}
	return result, nil
}
