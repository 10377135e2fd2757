package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures database spans
type DBTracingConfig struct {
	Enabled         bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider overrides the global provider when set
	TracerProvider trace.TracerProvider
}

// DBTracingPlugin registers otelgorm and the slow-query annotations
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin. A zero threshold defaults to 200ms.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs otelgorm on db. Query variables never reach the spans
// because snapshots carry customer documents.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}
	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
		otelgorm.WithoutQueryVariables(),
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTiming(db); err != nil {
		return err
	}
	p.logger.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerTiming runs the annotations before otelgorm ends the client span.
func (p *DBTracingPlugin) registerTiming(db *gorm.DB) error {
	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("propflow_timing:before_create", markQueryStart) },
		func() error { return cb.Create().After("gorm:create").Before("otel:after:create").Register("propflow_timing:after_create", p.annotate) },
		func() error { return cb.Query().Before("gorm:query").Register("propflow_timing:before_query", markQueryStart) },
		func() error { return cb.Query().After("gorm:query").Before("otel:after:select").Register("propflow_timing:after_query", p.annotate) },
		func() error { return cb.Update().Before("gorm:update").Register("propflow_timing:before_update", markQueryStart) },
		func() error { return cb.Update().After("gorm:update").Before("otel:after:update").Register("propflow_timing:after_update", p.annotate) },
		func() error { return cb.Delete().Before("gorm:delete").Register("propflow_timing:before_delete", markQueryStart) },
		func() error { return cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("propflow_timing:after_delete", p.annotate) },
		func() error { return cb.Row().Before("gorm:row").Register("propflow_timing:before_row", markQueryStart) },
		func() error { return cb.Row().After("gorm:row").Before("otel:after:row").Register("propflow_timing:after_row", p.annotate) },
		func() error { return cb.Raw().Before("gorm:raw").Register("propflow_timing:before_raw", markQueryStart) },
		func() error { return cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("propflow_timing:after_raw", p.annotate) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// annotate decorates the current span with row counts, errors and slow-query markers
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
