package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	agreementapp "github.com/propflow/backend/internal/application/agreement"
	auditapp "github.com/propflow/backend/internal/application/audit"
	contactapp "github.com/propflow/backend/internal/application/contactsetting"
	customerapp "github.com/propflow/backend/internal/application/customer"
	eventapp "github.com/propflow/backend/internal/application/event"
	identityapp "github.com/propflow/backend/internal/application/identity"
	importapp "github.com/propflow/backend/internal/application/import"
	loanaccountapp "github.com/propflow/backend/internal/application/loanaccount"
	notificationapp "github.com/propflow/backend/internal/application/notification"
	propertyapp "github.com/propflow/backend/internal/application/property"
	reportapp "github.com/propflow/backend/internal/application/report"
	requirementapp "github.com/propflow/backend/internal/application/requirement"
	submissionapp "github.com/propflow/backend/internal/application/submission"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/auth"
	"github.com/propflow/backend/internal/infrastructure/cache"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/internal/infrastructure/event"
	"github.com/propflow/backend/internal/infrastructure/logger"
	"github.com/propflow/backend/internal/infrastructure/mail"
	"github.com/propflow/backend/internal/infrastructure/persistence"
	"github.com/propflow/backend/internal/infrastructure/storage"
	"github.com/propflow/backend/internal/infrastructure/telemetry"
	"github.com/propflow/backend/internal/interfaces/http/handler"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
	"github.com/propflow/backend/internal/interfaces/http/router"

	_ "github.com/propflow/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

//	@title			PropFlow Backend API
//	@version		1.0
//	@description	Property sales workflow API: offers, loan applications, agreements and account opening

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so the log bridge can join the zap core
	bootLog, err := logger.New(logger.FromLogConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	logCfg := logger.FromLogConfig(cfg.Log)
	if providers.Logs.IsEnabled() {
		logCfg.ExtraCores = []zapcore.Core{providers.LogCore(logger.ParseLevel(cfg.Log.Level))}
	}
	log, err := logger.New(logCfg)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync(log) }()

	profiler, err := telemetry.NewProfiler(cfg.Telemetry.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Telemetry.Profiling.SpanProfiles {
		providers.Tracer.EnableSpanProfiles()
	}

	log.Info("Starting PropFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if err := run(ctx, cfg, providers, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = profiler.Stop()
		_ = logger.Sync(log)
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) error {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithParameterizedQueries(!cfg.Database.LogSQLParams))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}
	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem(cfg.Database.Driver),
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	documents, err := storage.NewDocumentStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	mailer, err := mail.NewMailer(cfg.Mail, log)
	if err != nil {
		return err
	}

	meter := providers.Meter.Meter("propflow")
	workflowMetrics, err := telemetry.NewWorkflowMetrics(meter)
	if err != nil {
		return err
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(db.DB, serializer).
		WithDeliveryPolicy(shared.DeliveryPolicy{MaxAttempts: cfg.Event.MaxRetries})
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewTokenBlacklist(redisClient)

	accountService := identityapp.NewAccountService(scope, cfg.Auth, log)
	authService := identityapp.NewAuthService(scope, jwtService, blacklist, log)
	auditService := auditapp.NewService(scope, log)
	standImport := importapp.NewStandImportService(scope, log)

	handlers := router.Handlers{
		Auth:           handler.NewAuthHandler(authService, accountService),
		Account:        handler.NewAccountHandler(accountService),
		Project:        handler.NewProjectHandler(propertyapp.NewProjectService(scope, log)),
		Stand:          handler.NewStandHandler(propertyapp.NewStandService(scope, log)),
		Requirement:    handler.NewRequirementHandler(requirementapp.NewService(scope, log)),
		Submission:     handler.NewSubmissionHandler(submissionapp.NewService(scope, documents, log)),
		Agreement:      handler.NewAgreementHandler(agreementapp.NewService(scope, documents, log)),
		LoanAccount:    handler.NewLoanAccountHandler(loanaccountapp.NewService(scope, cfg.Workflow.LoanAccountPrefix, workflowMetrics, log)),
		Profile:        handler.NewProfileHandler(customerapp.NewProfileService(scope, log)),
		Notification:   handler.NewNotificationHandler(notificationapp.NewService(scope)),
		Audit:          handler.NewAuditHandler(auditService),
		Report:         handler.NewReportHandler(reportapp.NewReportService(scope)),
		ContactSetting: handler.NewContactSettingHandler(contactapp.NewService(scope, cfg.Mail.DefaultRecipients, log)),
		Import:         handler.NewImportHandler(standImport, importapp.NewAccountImportService(scope, log)),
		Outbox:         handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
	}

	engine, err := newEngine(cfg, meter, log)
	if err != nil {
		return err
	}

	var authLimit gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer limiter.Stop()
		authLimit = middleware.RateLimit(limiter)
	}
	engine.GET("/health", handler.NewSystemHandler(db, version).Health)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, handlers, router.Guards{
		AuthLimit: authLimit,
		Protected: []gin.HandlerFunc{
			middleware.Audit(auditService),
			middleware.Authenticate(authService, log),
			middleware.SpanAttributes(),
		},
	}).Setup()

	bus := event.NewInMemoryEventBus(log)
	closeRelay := subscribeHandlers(bus, cfg, scope, documents, mailer, workflowMetrics, redisClient, log)
	defer closeRelay()

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
	}, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		log.Info("Outbox processor started", zap.Duration("poll_interval", cfg.Event.PollInterval))
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopGroup, stopCtx := errgroup.WithContext(shutdownCtx)
		stopGroup.Go(func() error { return srv.Shutdown(stopCtx) })
		if cfg.Event.ProcessorEnabled {
			stopGroup.Go(func() error { return processor.Stop(stopCtx) })
		}
		return stopGroup.Wait()
	})

	return g.Wait()
}

// newEngine builds the gin engine with the middleware every request passes
func newEngine(cfg *config.Config, meter metric.Meter, log *zap.Logger) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(httpMetrics)
	engine.Use(middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	return engine, nil
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}
