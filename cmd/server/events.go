package main

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	notificationapp "github.com/propflow/backend/internal/application/notification"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/infrastructure/cache"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/internal/infrastructure/event"
	"github.com/propflow/backend/internal/infrastructure/telemetry"
)

// subscribeHandlers attaches the side effects fed by the outbox. Mail is
// wrapped so a replayed entry never sends twice. The returned func closes the
// Kafka writer.
func subscribeHandlers(
	bus *event.InMemoryEventBus,
	cfg *config.Config,
	scope appshared.TransactionScope,
	documents appshared.DocumentStore,
	mailer appshared.Mailer,
	metrics *telemetry.WorkflowMetrics,
	redisClient *redis.Client,
	log *zap.Logger,
) func() {
	store := cache.NewIdempotencyStore(redisClient, log)

	dispatch := notificationapp.NewMailDispatchHandler(scope, documents, mailer, notificationapp.MailDispatchConfig{
		DefaultRecipients: cfg.Mail.DefaultRecipients,
		MaxRetries:        cfg.Mail.MaxRetries,
		RetryBackoff:      cfg.Mail.RetryBackoff,
	}, metrics, log)
	bus.Subscribe(event.NewIdempotentHandler("mail_dispatch", dispatch, store, log, event.WithRunRecorder(metrics)))
	bus.Subscribe(telemetry.NewWorkflowMetricsHandler(metrics))

	if !cfg.Kafka.Enabled {
		return func() {}
	}
	relay := event.NewKafkaRelayHandler(event.NewKafkaWriter(cfg.Kafka.Brokers), event.NewEventSerializer(), cfg.Kafka.TopicPrefix, log)
	bus.Subscribe(relay)
	log.Info("Kafka relay enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	return func() {
		if err := relay.Close(); err != nil {
			log.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
}
