package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	importapp "github.com/propflow/backend/internal/application/import"
	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/internal/infrastructure/event"
	"github.com/propflow/backend/internal/infrastructure/logger"
	"github.com/propflow/backend/internal/infrastructure/persistence"
)

func main() {
	var deposits, loans, sourceSystem string
	flag.StringVar(&deposits, "deposits", "", "CSV export of deposit accounts")
	flag.StringVar(&loans, "loans", "", "CSV export of loan accounts")
	flag.StringVar(&sourceSystem, "source-system", "", "Name of the exporting system (default: external)")
	flag.Parse()

	if deposits == "" && loans == "" {
		fmt.Fprintln(os.Stderr, "Usage: ingest [-deposits file.csv] [-loans file.csv] [-source-system name]")
		os.Exit(2)
	}

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

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	service := importapp.NewAccountImportService(persistence.NewGormTransactionScope(db.DB, serializer), log)

	failed := false
	for _, job := range []struct {
		kind ingestion.Kind
		path string
	}{
		{ingestion.KindDeposit, deposits},
		{ingestion.KindLoan, loans},
	} {
		if job.path == "" {
			continue
		}
		if err := ingestFile(context.Background(), service, job.kind, job.path, sourceSystem, log); err != nil {
			log.Error("Ingestion failed", zap.String("kind", string(job.kind)), zap.String("file", job.path), zap.Error(err))
			failed = true
		}
	}
	if failed {
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, service *importapp.AccountImportService, kind ingestion.Kind, path, sourceSystem string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := service.Import(ctx, kind, f, sourceSystem)
	if err != nil {
		return err
	}
	log.Info("Accounts ingested",
		zap.String("kind", string(kind)),
		zap.String("file", path),
		zap.Int("total", result.TotalRows),
		zap.Int("imported", result.ImportedRows),
		zap.Int("errors", result.ErrorRows))
	for _, msg := range result.Errors {
		log.Warn("Rejected row", zap.String("kind", string(kind)), zap.String("error", msg))
	}
	return nil
}
