// Package submission models the realtor-originated workflow requests: offers,
// property applications, account openings and loan applications.
package submission

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
)

// Status is the lifecycle state shared by every submission type
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusManagerApproved Status = "manager_approved"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
)

// ParseStatus converts user input into a Status
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case StatusSubmitted, StatusManagerApproved, StatusInProgress, StatusCompleted, StatusRejected:
		return status, nil
	}
	return "", shared.NewValidationError("Unknown submission status: " + s)
}

// IsTerminal reports whether no further status change is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

var statusTransitions = map[Status][]Status{
	StatusSubmitted:       {StatusManagerApproved, StatusInProgress, StatusCompleted, StatusRejected},
	StatusManagerApproved: {StatusInProgress, StatusCompleted, StatusRejected},
	StatusInProgress:      {StatusCompleted, StatusRejected},
}

// Header holds the fields every submission type carries
type Header struct {
	shared.BaseAggregateRoot
	ID                int64              `json:"id" validate:"required,gt=0"`
	Realtor           string             `json:"realtor" validate:"required,max=100"`
	PropertyID        *int64             `json:"property_id"`
	Details           string             `json:"details,omitempty" validate:"max=5000"`
	Document          *document.Document `json:"document,omitempty"`
	RequiredDocuments document.Set       `json:"required_documents"`
	Status            Status             `json:"status" validate:"required,oneof=submitted manager_approved in_progress completed rejected"`
	Reason            *string            `json:"reason"`
	StatusChangedBy   string             `json:"status_changed_by,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Head gives generic code access to the shared fields
func (h *Header) Head() *Header {
	return h
}

// Key returns the store key of the submission
func (h *Header) Key() string {
	return strconv.FormatInt(h.ID, 10)
}

// Attachments returns the primary document followed by the required documents
// in slug order.
func (h *Header) Attachments() []document.Document {
	var docs []document.Document
	if h.Document != nil && !h.Document.IsEmpty() {
		docs = append(docs, *h.Document)
	}
	keys := h.RequiredDocuments.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		if d := h.RequiredDocuments[k]; !d.IsEmpty() {
			docs = append(docs, d)
		}
	}
	return docs
}

// sanitize resets every server-controlled header field
func (h *Header) sanitize() {
	now := time.Now().UTC()
	h.Realtor = strings.TrimSpace(h.Realtor)
	h.Status = StatusSubmitted
	h.Reason = nil
	h.StatusChangedBy = ""
	h.CreatedAt = now
	h.UpdatedAt = now
	if h.RequiredDocuments == nil {
		h.RequiredDocuments = document.Set{}
	}
}

// ChangeStatus moves the submission along the shared status table.
// Rejections need a reason.
func (h *Header) ChangeStatus(to Status, reason, actor string) error {
	if h.Status == to {
		return shared.NewConflictError(fmt.Sprintf("Submission %d is already %s", h.ID, to))
	}
	allowed := false
	for _, s := range statusTransitions[h.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return shared.NewConflictError(fmt.Sprintf("Cannot change submission status from %s to %s", h.Status, to))
	}
	reason = strings.TrimSpace(reason)
	if to == StatusRejected && reason == "" {
		return shared.NewValidationError("A reason is required to reject a submission")
	}
	h.Status = to
	if reason != "" {
		h.Reason = &reason
	}
	h.StatusChangedBy = actor
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// Submission is implemented by every submission type
type Submission interface {
	shared.AggregateRoot
	Head() *Header
	Key() string
	WorkflowType() requirement.WorkflowType
	// Sanitize resets all server-controlled fields to their initial values
	Sanitize()
}

// Filter narrows submission listings
type Filter struct {
	Realtor string
	Status  *Status
}

// Matches reports whether the submission satisfies the filter
func (f Filter) Matches(s Submission) bool {
	h := s.Head()
	if f.Realtor != "" && h.Realtor != f.Realtor {
		return false
	}
	if f.Status != nil && h.Status != *f.Status {
		return false
	}
	return true
}

// Repository persists one submission type
type Repository[T Submission] interface {
	Create(ctx context.Context, s T) error
	Update(ctx context.Context, s T) error
	FindByID(ctx context.Context, id int64) (T, error)
	List(ctx context.Context, filter Filter) ([]T, error)
}

// OfferRepository persists offers
type OfferRepository = Repository[*Offer]

// PropertyApplicationRepository persists property applications
type PropertyApplicationRepository = Repository[*PropertyApplication]

// AccountOpeningRepository persists account openings
type AccountOpeningRepository interface {
	Repository[*AccountOpening]
	FindByAccountNumber(ctx context.Context, accountNumber string) (*AccountOpening, error)
}

// LoanApplicationRepository persists loan applications
type LoanApplicationRepository interface {
	Repository[*LoanApplication]
	ListByAccountOpening(ctx context.Context, accountOpeningID int64) ([]*LoanApplication, error)
}
