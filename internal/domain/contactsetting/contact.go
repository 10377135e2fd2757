// Package contactsetting manages the email recipients per notification channel.
package contactsetting

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
)

// Channel names a group of recipients
type Channel string

const (
	ChannelDeposit      Channel = "deposit"
	ChannelLoanAccounts Channel = "loan_accounts"
)

// ParseChannel validates a channel name
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ChannelDeposit, ChannelLoanAccounts:
		return c, nil
	}
	return "", shared.NewValidationError("Unknown contact channel: " + s)
}

// Setting is the configured recipient list of a channel
type Setting struct {
	shared.BaseAggregateRoot
	Channel    Channel   `json:"channel" validate:"required,oneof=deposit loan_accounts"`
	Recipients []string  `json:"recipients" validate:"required,min=1,dive,email"`
	UpdatedBy  string    `json:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSetting creates a setting with normalized recipients
func NewSetting(channel Channel, recipients []string, actor string) (*Setting, error) {
	s := &Setting{Channel: channel}
	if err := s.SetRecipients(recipients, actor); err != nil {
		return nil, err
	}
	return s, nil
}

// Key returns the store key of the setting
func (s *Setting) Key() string {
	return string(s.Channel)
}

// SetRecipients replaces the recipient list
func (s *Setting) SetRecipients(recipients []string, actor string) error {
	normalized, err := NormalizeRecipients(recipients)
	if err != nil {
		return err
	}
	s.Recipients = normalized
	s.UpdatedBy = actor
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// NormalizeRecipients trims addresses and drops case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeRecipients(recipients []string) ([]string, error) {
	out := make([]string, 0, len(recipients))
	seen := make(map[string]bool, len(recipients))
	for _, r := range recipients {
		addr := strings.TrimSpace(r)
		if addr == "" {
			continue
		}
		if _, err := mail.ParseAddress(addr); err != nil {
			return nil, shared.NewValidationError("Invalid email address: " + addr)
		}
		key := strings.ToLower(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil, shared.NewValidationError("At least one recipient is required")
	}
	return out, nil
}

// View is what callers see: the configured list or the defaults
type View struct {
	Channel    Channel  `json:"channel"`
	Configured bool     `json:"configured"`
	Recipients []string `json:"recipients"`
}

// Resolve returns the view of a channel given its optional setting
func Resolve(channel Channel, s *Setting, defaults []string) View {
	if s != nil {
		return View{Channel: channel, Configured: true, Recipients: s.Recipients}
	}
	if defaults == nil {
		defaults = []string{}
	}
	return View{Channel: channel, Configured: false, Recipients: defaults}
}

// Repository persists contact settings
type Repository interface {
	Create(ctx context.Context, s *Setting) error
	Update(ctx context.Context, s *Setting) error
	Delete(ctx context.Context, channel Channel) error
	Find(ctx context.Context, channel Channel) (*Setting, error)
}
