// Package inbox reads the loan team mailbox over IMAP.
package inbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/infrastructure/config"
)

var _ shared.Inbox = (*IMAPInbox)(nil)

// IMAPInbox opens a short-lived IMAP session per call.
type IMAPInbox struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
}

// NewIMAPInbox creates an inbox for the configured mailbox
func NewIMAPInbox(cfg config.MailboxConfig, logger *zap.Logger) *IMAPInbox {
	return &IMAPInbox{cfg: cfg, logger: logger.Named("inbox")}
}

func (i *IMAPInbox) session(ctx context.Context, fn func(c *client.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		c   *client.Client
		err error
	)
	if i.cfg.TLS {
		c, err = client.DialTLS(i.cfg.Addr(), &tls.Config{ServerName: i.cfg.Host, MinVersion: tls.VersionTLS12})
	} else {
		c, err = client.Dial(i.cfg.Addr())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to mailbox %s: %w", i.cfg.Addr(), err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			i.logger.Debug("imap logout failed", zap.Error(err))
		}
	}()

	if err := c.Login(i.cfg.Username, i.cfg.Password); err != nil {
		return fmt.Errorf("mailbox login failed: %w", err)
	}
	if _, err := c.Select(i.cfg.Folder, false); err != nil {
		return fmt.Errorf("failed to select %s: %w", i.cfg.Folder, err)
	}
	return fn(c)
}

// FetchUnread returns every unseen message without marking it seen.
func (i *IMAPInbox) FetchUnread(ctx context.Context) ([]shared.InboundMessage, error) {
	var out []shared.InboundMessage
	err := i.session(ctx, func(c *client.Client) error {
		criteria := imap.NewSearchCriteria()
		criteria.WithoutFlags = []string{imap.SeenFlag}
		uids, err := c.UidSearch(criteria)
		if err != nil {
			return fmt.Errorf("mailbox search failed: %w", err)
		}
		if len(uids) == 0 {
			return nil
		}

		seqset := new(imap.SeqSet)
		seqset.AddNum(uids...)
		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

		messages := make(chan *imap.Message, 16)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(seqset, items, messages)
		}()

		for msg := range messages {
			body := msg.GetBody(section)
			if body == nil {
				i.logger.Warn("message without body", zap.Uint32("uid", msg.Uid))
				continue
			}
			parsed, err := ParseMessage(body)
			if err != nil {
				i.logger.Warn("failed to parse message", zap.Uint32("uid", msg.Uid), zap.Error(err))
				parsed = shared.InboundMessage{}
			}
			parsed.ID = strconv.FormatUint(uint64(msg.Uid), 10)
			if parsed.ReceivedAt.IsZero() {
				parsed.ReceivedAt = msg.InternalDate
			}
			out = append(out, parsed)
		}
		return <-done
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkProcessed flags the given UIDs as seen.
func (i *IMAPInbox) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	seqset := new(imap.SeqSet)
	for _, id := range ids {
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", id, err)
		}
		seqset.AddNum(uint32(uid))
	}
	return i.session(ctx, func(c *client.Client) error {
		flags := []interface{}{imap.SeenFlag}
		if err := c.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
			return fmt.Errorf("failed to mark messages seen: %w", err)
		}
		return nil
	})
}
