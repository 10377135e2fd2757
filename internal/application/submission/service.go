// Package submission holds the realtor submission use cases: offers,
// property applications, account openings and loan applications.
package submission

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apprequirement "github.com/propflow/backend/internal/application/requirement"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// Collection names used as document storage prefixes and resource paths
const (
	OffersCollection               = "offers"
	PropertyApplicationsCollection = "property_applications"
	AccountOpeningsCollection      = "account_openings"
	LoanApplicationsCollection     = "loan_applications"
)

// workflow binds one submission type to its repository
type workflow[T submission.Submission] struct {
	kind       requirement.WorkflowType
	collection string
	repo       func(appshared.Repositories) submission.Repository[T]
}

func (w workflow[T]) resource(id int64) string {
	return fmt.Sprintf("%s/%d", w.collection, id)
}

var (
	offers = workflow[*submission.Offer]{
		kind:       requirement.WorkflowOffer,
		collection: OffersCollection,
		repo: func(r appshared.Repositories) submission.Repository[*submission.Offer] {
			return r.Offers()
		},
	}
	propertyApplications = workflow[*submission.PropertyApplication]{
		kind:       requirement.WorkflowPropertyApplication,
		collection: PropertyApplicationsCollection,
		repo: func(r appshared.Repositories) submission.Repository[*submission.PropertyApplication] {
			return r.PropertyApplications()
		},
	}
	accountOpenings = workflow[*submission.AccountOpening]{
		kind:       requirement.WorkflowAccountOpening,
		collection: AccountOpeningsCollection,
		repo: func(r appshared.Repositories) submission.Repository[*submission.AccountOpening] {
			return r.AccountOpenings()
		},
	}
	loanApplications = workflow[*submission.LoanApplication]{
		kind:       requirement.WorkflowLoanApplication,
		collection: LoanApplicationsCollection,
		repo: func(r appshared.Repositories) submission.Repository[*submission.LoanApplication] {
			return r.LoanApplications()
		},
	}
)

// Service runs the submission workflows
type Service struct {
	scope     appshared.TransactionScope
	documents appshared.DocumentStore
	logger    *zap.Logger
}

// NewService creates a new submission service
func NewService(scope appshared.TransactionScope, documents appshared.DocumentStore, logger *zap.Logger) *Service {
	return &Service{scope: scope, documents: documents, logger: logger}
}

// CreateOffer stores a new offer
func (s *Service) CreateOffer(ctx context.Context, principal identity.Principal, req OfferRequest) (*OfferResponse, error) {
	o, err := create(ctx, s, principal, offers, req.toDomain(), nil)
	if err != nil {
		return nil, err
	}
	resp := ToOfferResponse(o)
	return &resp, nil
}

// ListOffers returns offers visible to the caller
func (s *Service) ListOffers(ctx context.Context, principal identity.Principal, filter ListFilter) ([]OfferResponse, error) {
	items, err := list(ctx, s, principal, offers, filter)
	if err != nil {
		return nil, err
	}
	return mapResponses(items, ToOfferResponse), nil
}

// GetOffer returns one offer
func (s *Service) GetOffer(ctx context.Context, principal identity.Principal, id int64) (*OfferResponse, error) {
	o, err := get(ctx, s, principal, offers, id)
	if err != nil {
		return nil, err
	}
	resp := ToOfferResponse(o)
	return &resp, nil
}

// UpdateOfferStatus moves an offer along the status table. Management only.
func (s *Service) UpdateOfferStatus(ctx context.Context, principal identity.Principal, id int64, req StatusUpdateRequest) (*OfferResponse, error) {
	o, err := updateStatus(ctx, s, principal, offers, id, req)
	if err != nil {
		return nil, err
	}
	resp := ToOfferResponse(o)
	return &resp, nil
}

// CreatePropertyApplication stores a new property application
func (s *Service) CreatePropertyApplication(ctx context.Context, principal identity.Principal, req PropertyApplicationRequest) (*PropertyApplicationResponse, error) {
	p, err := create(ctx, s, principal, propertyApplications, req.toDomain(), nil)
	if err != nil {
		return nil, err
	}
	resp := ToPropertyApplicationResponse(p)
	return &resp, nil
}

// ListPropertyApplications returns property applications visible to the caller
func (s *Service) ListPropertyApplications(ctx context.Context, principal identity.Principal, filter ListFilter) ([]PropertyApplicationResponse, error) {
	items, err := list(ctx, s, principal, propertyApplications, filter)
	if err != nil {
		return nil, err
	}
	return mapResponses(items, ToPropertyApplicationResponse), nil
}

// GetPropertyApplication returns one property application
func (s *Service) GetPropertyApplication(ctx context.Context, principal identity.Principal, id int64) (*PropertyApplicationResponse, error) {
	p, err := get(ctx, s, principal, propertyApplications, id)
	if err != nil {
		return nil, err
	}
	resp := ToPropertyApplicationResponse(p)
	return &resp, nil
}

// UpdatePropertyApplicationStatus moves a property application along the
// status table. Management only.
func (s *Service) UpdatePropertyApplicationStatus(ctx context.Context, principal identity.Principal, id int64, req StatusUpdateRequest) (*PropertyApplicationResponse, error) {
	p, err := updateStatus(ctx, s, principal, propertyApplications, id, req)
	if err != nil {
		return nil, err
	}
	resp := ToPropertyApplicationResponse(p)
	return &resp, nil
}

// create runs the common creation protocol: the caller files for itself,
// server fields are reset, documents are checked against the current
// requirement set and moved to the document store, and the event and
// notification are written in the same transaction.
func create[T submission.Submission](ctx context.Context, s *Service, principal identity.Principal, wf workflow[T], sub T,
	check func(ctx context.Context, repos appshared.Repositories, sub T) error) (T, error) {
	var zero T
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return zero, err
	}
	h := sub.Head()
	h.Realtor = strings.TrimSpace(h.Realtor)
	if h.ID <= 0 {
		return zero, shared.NewValidationError("Submission id must be a positive integer")
	}
	if h.Realtor != principal.Username {
		return zero, shared.NewForbiddenError("Submissions can only be filed under your own username")
	}
	sub.Sanitize()

	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		if _, err := wf.repo(repos).FindByID(ctx, h.ID); err == nil {
			return shared.NewConflictError(fmt.Sprintf("%s %d already exists", wf.kind.Label(), h.ID))
		} else if !shared.HasCode(err, shared.CodeNotFound) {
			return err
		}
		if err := apprequirement.ValidateDocuments(ctx, repos, wf.kind, h.RequiredDocuments); err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, repos, sub); err != nil {
				return err
			}
		}

		prefix := wf.resource(h.ID)
		stored, err := appshared.StoreDocumentSet(ctx, s.documents, prefix, h.RequiredDocuments)
		if err != nil {
			return err
		}
		h.RequiredDocuments = stored
		if h.Document != nil {
			doc, err := appshared.StoreDocument(ctx, s.documents, prefix, "document", *h.Document)
			if err != nil {
				return err
			}
			h.Document = &doc
		}

		if err := wf.repo(repos).Create(ctx, sub); err != nil {
			return err
		}
		sub.AddDomainEvent(submission.NewSubmissionEvent(submission.EventTypeSubmissionCreated, sub, principal.Username))
		if err := appshared.RecordEvents(ctx, repos, sub); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindSubmission,
			fmt.Sprintf("New %s submission #%d from %s", wf.kind.Label(), h.ID, h.Realtor), prefix, principal.Username)
	})
	if err != nil {
		return zero, err
	}

	s.logger.Info("Submission created",
		zap.String("workflow", string(wf.kind)),
		zap.Int64("id", h.ID),
		zap.String("realtor", h.Realtor))
	return sub, nil
}

func list[T submission.Submission](ctx context.Context, s *Service, principal identity.Principal, wf workflow[T], filter ListFilter) ([]T, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	domainFilter := submission.Filter{}
	if !principal.IsManagement() {
		domainFilter.Realtor = principal.Username
	}
	if filter.Status != nil && *filter.Status != "" {
		status, err := submission.ParseStatus(*filter.Status)
		if err != nil {
			return nil, err
		}
		domainFilter.Status = &status
	}
	return wf.repo(s.scope.Repositories()).List(ctx, domainFilter)
}

func get[T submission.Submission](ctx context.Context, s *Service, principal identity.Principal, wf workflow[T], id int64) (T, error) {
	var zero T
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return zero, err
	}
	sub, err := wf.repo(s.scope.Repositories()).FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := principal.RequireViewer(sub.Head().Realtor); err != nil {
		return zero, err
	}
	return sub, nil
}

func updateStatus[T submission.Submission](ctx context.Context, s *Service, principal identity.Principal, wf workflow[T], id int64, req StatusUpdateRequest) (T, error) {
	var zero T
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return zero, err
	}
	status, err := submission.ParseStatus(req.Status)
	if err != nil {
		return zero, err
	}

	sub, err := mutate(ctx, s, wf, id, func(ctx context.Context, repos appshared.Repositories, sub T) error {
		if err := sub.Head().ChangeStatus(status, req.Reason, principal.Username); err != nil {
			return err
		}
		eventType := submission.EventTypeSubmissionStatusChanged
		if status == submission.StatusManagerApproved {
			eventType = submission.EventTypeSubmissionApproved
		}
		sub.AddDomainEvent(submission.NewSubmissionEvent(eventType, sub, principal.Username))
		return appshared.Notify(ctx, repos, notification.KindApproval,
			statusMessage(wf.kind, id, status, sub.Head().Reason), wf.resource(id), principal.Username)
	})
	if err != nil {
		return zero, err
	}
	s.logger.Info("Submission status changed",
		zap.String("workflow", string(wf.kind)),
		zap.Int64("id", id),
		zap.String("status", string(status)),
		zap.String("changed_by", principal.Username))
	return sub, nil
}

// mutate loads a submission, applies fn and writes it back with its events,
// retrying on version conflicts.
func mutate[T submission.Submission](ctx context.Context, s *Service, wf workflow[T], id int64,
	fn func(ctx context.Context, repos appshared.Repositories, sub T) error) (T, error) {
	var sub T
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var err error
		sub, err = wf.repo(repos).FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, repos, sub); err != nil {
			return err
		}
		if err := wf.repo(repos).Update(ctx, sub); err != nil {
			return err
		}
		return appshared.RecordEvents(ctx, repos, sub)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return sub, nil
}

func statusMessage(kind requirement.WorkflowType, id int64, status submission.Status, reason *string) string {
	msg := fmt.Sprintf("%s submission #%d is now %s", kind.Label(), id, status)
	if status == submission.StatusRejected && reason != nil {
		msg += ": " + *reason
	}
	return msg
}
