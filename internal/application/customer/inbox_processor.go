package customer

import (
	"context"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/customer"
)

// DefaultPollInterval is used when no interval is configured
const DefaultPollInterval = 60 * time.Second

// InboxResult summarizes one pass over the mailbox
type InboxResult struct {
	Processed int
	Skipped   int
	Failed    int
}

// InboxProcessor keeps customer profiles in sync with the team mailbox
type InboxProcessor struct {
	scope  appshared.TransactionScope
	inbox  appshared.Inbox
	logger *zap.Logger
}

// NewInboxProcessor creates a new inbox processor
func NewInboxProcessor(scope appshared.TransactionScope, inbox appshared.Inbox, logger *zap.Logger) *InboxProcessor {
	return &InboxProcessor{scope: scope, inbox: inbox, logger: logger}
}

// ProcessOnce handles every unread message. Messages without an account
// number are acknowledged and skipped; messages that failed stay unread.
func (p *InboxProcessor) ProcessOnce(ctx context.Context) (InboxResult, error) {
	var result InboxResult
	messages, err := p.inbox.FetchUnread(ctx)
	if err != nil {
		return result, err
	}

	acknowledged := make([]string, 0, len(messages))
	for _, msg := range messages {
		accountNumber, ok := customer.ExtractAccountNumber(msg.Body)
		if !ok {
			accountNumber, ok = customer.ExtractAccountNumber(msg.Subject)
		}
		if !ok {
			p.logger.Debug("Skipping message without account number", zap.String("message_id", msg.ID))
			result.Skipped++
			acknowledged = append(acknowledged, msg.ID)
			continue
		}

		receivedAt := msg.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now().UTC()
		}
		err := appshared.RetryOnConflict(ctx, p.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
			_, err := SyncInbound(ctx, repos, accountNumber, receivedAt)
			return err
		})
		if err != nil {
			p.logger.Error("Failed to sync customer profile",
				zap.String("message_id", msg.ID),
				zap.String("account_number", accountNumber),
				zap.Error(err))
			result.Failed++
			continue
		}
		p.logger.Info("Processed inbound message",
			zap.String("message_id", msg.ID),
			zap.String("account_number", accountNumber))
		result.Processed++
		acknowledged = append(acknowledged, msg.ID)
	}

	if len(acknowledged) > 0 {
		if err := p.inbox.MarkProcessed(ctx, acknowledged); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Run polls the mailbox until ctx is cancelled
func (p *InboxProcessor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := p.ProcessOnce(ctx)
		if err != nil {
			p.logger.Error("Inbox pass failed", zap.Error(err))
		} else if result.Processed+result.Skipped+result.Failed > 0 {
			p.logger.Info("Inbox pass completed",
				zap.Int("processed", result.Processed),
				zap.Int("skipped", result.Skipped),
				zap.Int("failed", result.Failed))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
