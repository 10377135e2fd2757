package property

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
)

// StandService manages stands and their mandates
type StandService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewStandService creates a new stand service
func NewStandService(scope appshared.TransactionScope, logger *zap.Logger) *StandService {
	return &StandService{scope: scope, logger: logger, now: time.Now}
}

// Create adds an AVAILABLE stand to an existing project. Admin only.
func (s *StandService) Create(ctx context.Context, principal identity.Principal, projectID int64, req CreateStandRequest) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}

	var stand *property.Stand
	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		if _, err := repos.Projects().FindByID(ctx, projectID); err != nil {
			return err
		}
		id, err := repos.Counters().Next(ctx, StandCounter)
		if err != nil {
			return err
		}
		stand, err = property.NewStand(id, projectID, req.Name, req.Size, req.Price)
		if err != nil {
			return err
		}
		return repos.Stands().Create(ctx, stand)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stand created", zap.Int64("stand_id", stand.ID), zap.Int64("project_id", projectID))
	resp := ToStandResponse(stand)
	return &resp, nil
}

// Update changes the descriptive fields of an unsold stand. Admin only.
func (s *StandService) Update(ctx context.Context, principal identity.Principal, id int64, req UpdateStandRequest) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(_ context.Context, _ appshared.Repositories, stand *property.Stand) error {
		return stand.Update(property.StandUpdate{Name: req.Name, Size: req.Size, Price: req.Price})
	})
}

// ChangeStatus moves a stand along its status table. Admin only.
func (s *StandService) ChangeStatus(ctx context.Context, principal identity.Principal, id int64, req ChangeStandStatusRequest) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	status, err := property.ParseStandStatus(req.Status)
	if err != nil {
		return nil, err
	}
	resp, err := s.mutate(ctx, id, func(_ context.Context, _ appshared.Repositories, stand *property.Stand) error {
		return stand.ChangeStatus(status, principal.Username)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stand status changed", zap.Int64("stand_id", id), zap.String("status", string(status)))
	return resp, nil
}

// Delete removes a stand that was never sold. Admin only.
func (s *StandService) Delete(ctx context.Context, principal identity.Principal, id int64) error {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return err
	}
	return s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		stand, err := repos.Stands().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := stand.EnsureMutable(); err != nil {
			return err
		}
		return repos.Stands().Delete(ctx, id)
	})
}

// Get returns a stand
func (s *StandService) Get(ctx context.Context, principal identity.Principal, id int64) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	stand, err := s.scope.Repositories().Stands().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToStandResponse(stand)
	return &resp, nil
}

// List returns stands matching the filter
func (s *StandService) List(ctx context.Context, principal identity.Principal, filter StandListFilter) ([]StandResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	domainFilter := property.StandFilter{ProjectID: filter.ProjectID}
	if filter.Status != nil && *filter.Status != "" {
		status, err := property.ParseStandStatus(*filter.Status)
		if err != nil {
			return nil, err
		}
		domainFilter.Status = &status
	}
	stands, err := s.scope.Repositories().Stands().List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToStandResponses(stands), nil
}

// ListAvailable returns the AVAILABLE stands the caller may market.
// Management sees all of them; anyone else only stands holding their
// accepted, unexpired mandate.
func (s *StandService) ListAvailable(ctx context.Context, principal identity.Principal) ([]StandResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	available := property.StandAvailable
	stands, err := s.scope.Repositories().Stands().List(ctx, property.StandFilter{Status: &available})
	if err != nil {
		return nil, err
	}
	if principal.IsManagement() {
		return ToStandResponses(stands), nil
	}
	now := s.now()
	visible := make([]*property.Stand, 0, len(stands))
	for _, stand := range stands {
		if stand.IsAvailableTo(principal.Username, now) {
			visible = append(visible, stand)
		}
	}
	return ToStandResponses(visible), nil
}

// AssignMandate gives a stand to an agent, or reassigns it. Admin only.
func (s *StandService) AssignMandate(ctx context.Context, principal identity.Principal, id int64, req AssignMandateRequest) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	resp, err := s.mutate(ctx, id, func(ctx context.Context, repos appshared.Repositories, stand *property.Stand) error {
		agent, err := repos.Accounts().FindByUsername(ctx, req.Agent)
		if err != nil {
			if shared.HasCode(err, shared.CodeNotFound) {
				return shared.NewValidationError(fmt.Sprintf("Agent %s does not exist", req.Agent))
			}
			return err
		}
		if agent.Role != identity.RoleAgent {
			return shared.NewValidationError(fmt.Sprintf("Account %s is not an agent", req.Agent))
		}
		action, err := stand.AssignMandate(agent.Username, req.Document, req.ExpiresAt, principal.Username)
		if err != nil {
			return err
		}
		if err := repos.MandateHistory().Append(ctx, property.NewMandateHistoryEntry(stand, action, principal.Username)); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindMandate,
			fmt.Sprintf("Stand %s mandated to %s", stand.Name, agent.Username), standResource(stand.ID), principal.Username)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Mandate assigned", zap.Int64("stand_id", id), zap.String("agent", req.Agent))
	return resp, nil
}

// AcceptMandate is called by the named agent on a pending mandate
func (s *StandService) AcceptMandate(ctx context.Context, principal identity.Principal, id int64) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, repos appshared.Repositories, stand *property.Stand) error {
		if err := stand.AcceptMandate(principal.Username); err != nil {
			return err
		}
		if err := repos.MandateHistory().Append(ctx, property.NewMandateHistoryEntry(stand, property.ActionAccepted, principal.Username)); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindMandate,
			fmt.Sprintf("Mandate for stand %s accepted by %s", stand.Name, principal.Username), standResource(stand.ID), principal.Username)
	})
}

// RejectMandate is called by the named agent or an admin on a pending mandate
func (s *StandService) RejectMandate(ctx context.Context, principal identity.Principal, id int64, req RejectMandateRequest) (*StandResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, repos appshared.Repositories, stand *property.Stand) error {
		if err := stand.RejectMandate(principal.Username, principal.IsAdmin(), req.Reason); err != nil {
			return err
		}
		if err := repos.MandateHistory().Append(ctx, property.NewMandateHistoryEntry(stand, property.ActionRejected, principal.Username)); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindMandate,
			fmt.Sprintf("Mandate for stand %s rejected by %s", stand.Name, principal.Username), standResource(stand.ID), principal.Username)
	})
}

// MandateHistory returns the mandate log of a stand. Management only.
func (s *StandService) MandateHistory(ctx context.Context, principal identity.Principal, id int64) ([]MandateHistoryResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	repos := s.scope.Repositories()
	if _, err := repos.Stands().FindByID(ctx, id); err != nil {
		return nil, err
	}
	entries, err := repos.MandateHistory().ListByStand(ctx, id)
	if err != nil {
		return nil, err
	}
	return toHistoryResponses(entries), nil
}

// mutate loads a stand, applies fn and writes it back with its events,
// retrying when another writer got there first.
func (s *StandService) mutate(ctx context.Context, id int64, fn func(ctx context.Context, repos appshared.Repositories, stand *property.Stand) error) (*StandResponse, error) {
	var stand *property.Stand
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var err error
		stand, err = repos.Stands().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, repos, stand); err != nil {
			return err
		}
		if err := repos.Stands().Update(ctx, stand); err != nil {
			return err
		}
		return appshared.RecordEvents(ctx, repos, stand)
	})
	if err != nil {
		return nil, err
	}
	resp := ToStandResponse(stand)
	return &resp, nil
}

func standResource(id int64) string {
	return fmt.Sprintf("stands/%d", id)
}
