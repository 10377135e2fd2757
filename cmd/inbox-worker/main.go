package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	customerapp "github.com/propflow/backend/internal/application/customer"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/internal/infrastructure/event"
	"github.com/propflow/backend/internal/infrastructure/inbox"
	"github.com/propflow/backend/internal/infrastructure/logger"
	"github.com/propflow/backend/internal/infrastructure/persistence"
)

func main() {
	var once bool
	flag.BoolVar(&once, "once", false, "Process unread messages once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.FromLogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, once, log); err != nil {
		log.Error("Inbox worker failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once bool, log *zap.Logger) error {
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(db.DB, serializer)
	processor := customerapp.NewInboxProcessor(scope, inbox.NewIMAPInbox(cfg.Mailbox, log), log)

	if once {
		result, err := processor.ProcessOnce(ctx)
		if err != nil {
			return err
		}
		log.Info("Inbox pass completed",
			zap.Int("processed", result.Processed),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
		return nil
	}

	log.Info("Polling mailbox",
		zap.String("addr", cfg.Mailbox.Addr()),
		zap.String("folder", cfg.Mailbox.Folder),
		zap.Duration("interval", cfg.Mailbox.PollInterval))
	return processor.Run(ctx, cfg.Mailbox.PollInterval)
}
