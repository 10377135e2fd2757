package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/infrastructure/config"
)

var _ shared.Mailer = (*ConsoleMailer)(nil)

// ConsoleMailer logs messages instead of sending them. Used in development.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer creates a ConsoleMailer
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger.Named("mailer")}
}

func (m *ConsoleMailer) Send(_ context.Context, msg shared.MailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email %q has no recipients", msg.Subject)
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	m.logger.Info("email (console)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
		zap.Strings("attachments", names),
	)
	return nil
}

// NewMailer returns the mailer selected by mail.provider.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) (shared.Mailer, error) {
	if cfg.Provider == "smtp" {
		return NewSMTPMailer(cfg, logger)
	}
	return NewConsoleMailer(logger), nil
}
