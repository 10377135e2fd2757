// Package notification is the append-only log of workflow notifications.
package notification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propflow/backend/internal/domain/shared"
)

// Kind classifies a notification
type Kind string

const (
	KindSubmission   Kind = "SUBMISSION"
	KindApproval     Kind = "APPROVAL"
	KindMandate      Kind = "MANDATE"
	KindDeposit      Kind = "DEPOSIT"
	KindLoanDecision Kind = "LOAN_DECISION"
	KindAgreement    Kind = "AGREEMENT"
	KindLoanAccount  Kind = "LOAN_ACCOUNT"
	KindProfile      Kind = "PROFILE"
	KindEmailFailure Kind = "EMAIL_FAILURE"
)

var kinds = []Kind{
	KindSubmission, KindApproval, KindMandate, KindDeposit, KindLoanDecision,
	KindAgreement, KindLoanAccount, KindProfile, KindEmailFailure,
}

// ParseKind converts user input into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", shared.NewValidationError("Unknown notification kind: " + s)
}

// Notification is a single entry of the log
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind" validate:"required"`
	Message   string    `json:"message" validate:"required"`
	Resource  string    `json:"resource,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a notification
func New(kind Kind, message, resource, actor string) (*Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, shared.NewValidationError("Notification message is required")
	}
	return &Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		Resource:  resource,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DedupKey identifies notifications by message content
func (n *Notification) DedupKey() string {
	sum := sha256.Sum256([]byte(n.Message))
	return hex.EncodeToString(sum[:])
}

// Filter narrows notification listings
type Filter struct {
	Kind  *Kind
	Since *time.Time
	Limit int
}

// Matches reports whether the notification satisfies the filter
func (f Filter) Matches(n *Notification) bool {
	if f.Kind != nil && n.Kind != *f.Kind {
		return false
	}
	if f.Since != nil && n.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Repository is the append-only notification log
type Repository interface {
	Append(ctx context.Context, n *Notification) error
	// AppendOnce writes n unless a notification with the same message exists.
	// It reports whether a new entry was written.
	AppendOnce(ctx context.Context, n *Notification) (bool, error)
	List(ctx context.Context, filter Filter) ([]*Notification, error)
}
