// Package audit records and queries the access log written by the HTTP guard.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/audit"
	"github.com/propflow/backend/internal/domain/identity"
)

// QueryFilter narrows audit log queries
type QueryFilter struct {
	Actor   string     `form:"actor"`
	Action  string     `form:"action"`
	Outcome *int       `form:"outcome"`
	Since   *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until   *time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit   int        `form:"limit" binding:"omitempty,min=1,max=5000"`
}

// Response represents an audit record in API responses
type Response struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Outcome   int       `json:"outcome"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// Service appends and queries audit records
type Service struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewService creates a new audit service
func NewService(scope appshared.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// Record appends one record. Failures are logged, never returned: an audit
// write must not change the outcome of the request it describes.
func (s *Service) Record(ctx context.Context, rec *audit.Record) {
	if err := s.scope.Repositories().Audit().Append(ctx, rec); err != nil {
		s.logger.Error("Failed to append audit record",
			zap.String("action", rec.Action),
			zap.String("actor", rec.Actor),
			zap.Error(err))
	}
}

// Query returns matching records oldest first. Compliance only.
func (s *Service) Query(ctx context.Context, principal identity.Principal, filter QueryFilter) ([]Response, error) {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return nil, err
	}
	records, err := s.scope.Repositories().Audit().List(ctx, audit.Filter{
		Actor:   filter.Actor,
		Action:  filter.Action,
		Outcome: filter.Outcome,
		Since:   filter.Since,
		Until:   filter.Until,
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	result := make([]Response, 0, len(records))
	for _, r := range records {
		result = append(result, Response{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Actor:     r.Actor,
			Role:      r.Role,
			Action:    r.Action,
			Resource:  r.Resource,
			Outcome:   r.Outcome,
			RequestID: r.RequestID,
			ClientIP:  r.ClientIP,
		})
	}
	return result, nil
}
