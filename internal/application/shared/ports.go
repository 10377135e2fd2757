package shared

import (
	"context"
	"time"

	"github.com/propflow/backend/internal/domain/document"
)

// DocumentStore moves uploaded document payloads out of entity snapshots.
type DocumentStore interface {
	// Put stores doc under prefix/slot and returns the reference to persist.
	// Documents without inline content are returned unchanged.
	Put(ctx context.Context, prefix, slot string, doc document.Document) (document.Document, error)
	// Fetch returns the raw bytes of a stored or inline document.
	Fetch(ctx context.Context, doc document.Document) ([]byte, error)
}

// Attachment is a file attached to an outgoing email
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MailMessage is an outgoing plain-text email
type MailMessage struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers outgoing email
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// InboundMessage is an unread message pulled from the team mailbox
type InboundMessage struct {
	ID          string
	From        string
	Subject     string
	Body        string
	ReceivedAt  time.Time
	Attachments []Attachment
}

// Inbox supplies unread messages and accepts acknowledgements.
type Inbox interface {
	FetchUnread(ctx context.Context) ([]InboundMessage, error)
	MarkProcessed(ctx context.Context, ids []string) error
}
