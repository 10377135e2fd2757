// Package importapp runs the CSV imports: externally sourced deposit and loan
// accounts, and the stand catalogue.
package importapp

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/internal/domain/shared"
	csvimport "github.com/propflow/backend/internal/infrastructure/import"
)

// ImportResult summarizes one import run
type ImportResult struct {
	TotalRows    int      `json:"total_rows"`
	ImportedRows int      `json:"imported_rows"`
	ErrorRows    int      `json:"error_rows"`
	Errors       []string `json:"errors,omitempty"`
	IsTruncated  bool     `json:"is_truncated,omitempty"`
}

// AccountImportService stores deposit and loan account exports from
// external banking systems
type AccountImportService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountImportService creates a new AccountImportService
func NewAccountImportService(scope appshared.TransactionScope, logger *zap.Logger) *AccountImportService {
	return &AccountImportService{scope: scope, logger: logger, now: time.Now}
}

// Import reads a CSV export and saves every valid record. Records already
// imported under the same id are replaced. Invalid rows are reported and
// skipped; the valid ones are written in one transaction.
func (s *AccountImportService) Import(ctx context.Context, kind ingestion.Kind, r io.Reader, sourceSystem string) (*ImportResult, error) {
	raws, rowErrs, err := csvimport.ReadAccountRecords(r)
	if err != nil {
		return nil, shared.NewValidationError("Cannot read " + string(kind) + " accounts: " + err.Error())
	}
	if rowErrs.HasErrors() {
		s.logger.Warn("Skipped unreadable account rows",
			zap.String("kind", string(kind)),
			zap.Int("errors_total", rowErrs.Total()),
			zap.Strings("errors", rowErrs.Messages()))
	}

	result := &ImportResult{
		TotalRows:   len(raws) + rowErrs.Total(),
		ErrorRows:   rowErrs.Total(),
		Errors:      rowErrs.Messages(),
		IsTruncated: rowErrs.IsTruncated(),
	}
	now := s.now()
	accounts := make([]*ingestion.ImportedAccount, 0, len(raws))
	for _, raw := range raws {
		acc, err := ingestion.Normalize(kind, raw, sourceSystem, now)
		if err != nil {
			result.ErrorRows++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		accounts = append(accounts, acc)
	}

	err = s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		for _, acc := range accounts {
			if err := repos.ImportedAccounts().Save(ctx, acc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.ImportedRows = len(accounts)

	s.logger.Info("Accounts imported",
		zap.String("kind", string(kind)),
		zap.Int("imported", result.ImportedRows),
		zap.Int("errors", result.ErrorRows))
	return result, nil
}

// List returns the imported accounts of a kind. Compliance only.
func (s *AccountImportService) List(ctx context.Context, principal identity.Principal, kind string) ([]*ingestion.ImportedAccount, error) {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return nil, err
	}
	k, err := ingestion.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.scope.Repositories().ImportedAccounts().List(ctx, k)
}
