package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/infrastructure/config"
)

func TestIMAPInbox_MarkProcessedValidation(t *testing.T) {
	inbox := NewIMAPInbox(config.MailboxConfig{Host: "127.0.0.1", Port: 1}, zap.NewNop())

	assert.NoError(t, inbox.MarkProcessed(context.Background(), nil))
	assert.ErrorContains(t, inbox.MarkProcessed(context.Background(), []string{"abc"}), "invalid message id")
}

func TestIMAPInbox_CanceledContext(t *testing.T) {
	inbox := NewIMAPInbox(config.MailboxConfig{Host: "127.0.0.1", Port: 1}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inbox.FetchUnread(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
