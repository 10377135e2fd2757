// Package notification exposes the notification feed to management.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
)

// ListFilter narrows the notification feed
type ListFilter struct {
	Kind  *string    `form:"kind"`
	Since *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit int        `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// Response represents a notification in API responses
type Response struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Resource  string    `json:"resource,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service reads notifications
type Service struct {
	scope appshared.TransactionScope
}

// NewService creates a new notification service
func NewService(scope appshared.TransactionScope) *Service {
	return &Service{scope: scope}
}

// List returns notifications oldest first. Management only.
func (s *Service) List(ctx context.Context, principal identity.Principal, filter ListFilter) ([]Response, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	domainFilter := notification.Filter{Since: filter.Since, Limit: filter.Limit}
	if filter.Kind != nil && *filter.Kind != "" {
		kind, err := notification.ParseKind(*filter.Kind)
		if err != nil {
			return nil, err
		}
		domainFilter.Kind = &kind
	}
	items, err := s.scope.Repositories().Notifications().List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	result := make([]Response, 0, len(items))
	for _, n := range items {
		result = append(result, Response{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			Resource:  n.Resource,
			Actor:     n.Actor,
			CreatedAt: n.CreatedAt,
		})
	}
	return result, nil
}
