package importapp

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appproperty "github.com/propflow/backend/internal/application/property"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
	csvimport "github.com/propflow/backend/internal/infrastructure/import"
)

var standRules = []csvimport.FieldRule{
	csvimport.Field("project").Required().MaxLength(200).Build(),
	csvimport.Field("name").Required().MaxLength(200).Build(),
	csvimport.Field("size").Decimal().Build(),
	csvimport.Field("price").Decimal().Build(),
}

// StandImportService bulk-loads stands, creating projects by name as needed
type StandImportService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewStandImportService creates a new StandImportService
func NewStandImportService(scope appshared.TransactionScope, logger *zap.Logger) *StandImportService {
	return &StandImportService{scope: scope, logger: logger}
}

// Import reads a CSV with columns project, name, size and price. Rows that
// fail validation are reported and skipped. Admin only.
func (s *StandImportService) Import(ctx context.Context, principal identity.Principal, r io.Reader) (*ImportResult, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	parser, err := csvimport.NewCSVParser(r)
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if missing := parser.MissingHeaders("project", "name"); len(missing) > 0 {
		return nil, shared.NewValidationError("Missing required columns: " + strings.Join(missing, ", "))
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}

	errs := csvimport.NewErrorCollection(100)
	valid := make([]*csvimport.Row, 0, len(rows))
	errorRows := 0
	for _, row := range rows {
		if rowErrs := csvimport.ValidateRow(row, standRules); len(rowErrs) > 0 {
			for _, e := range rowErrs {
				errs.Add(e)
			}
			errorRows++
			continue
		}
		valid = append(valid, row)
	}

	imported := 0
	err = s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		projects, err := projectsByName(ctx, repos)
		if err != nil {
			return err
		}
		for _, row := range valid {
			project, err := ensureProject(ctx, repos, projects, row.Get("project"), principal.Username)
			if err != nil {
				return err
			}
			id, err := repos.Counters().Next(ctx, appproperty.StandCounter)
			if err != nil {
				return err
			}
			stand, err := property.NewStand(id, project.ID, row.Get("name"), decimalOrZero(row.Get("size")), decimalOrZero(row.Get("price")))
			if err != nil {
				errs.AddMessage(row.LineNumber, err.Error())
				errorRows++
				continue
			}
			if err := repos.Stands().Create(ctx, stand); err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if errs.HasErrors() {
		s.logger.Warn("Skipped invalid stand rows",
			zap.Int("error_rows", errorRows),
			zap.Strings("errors", errs.Messages()))
	}
	s.logger.Info("Stands imported",
		zap.Int("imported", imported),
		zap.Int("errors", errs.Total()),
		zap.String("imported_by", principal.Username))
	return &ImportResult{
		TotalRows:    len(rows),
		ImportedRows: imported,
		ErrorRows:    errorRows,
		Errors:       errs.Messages(),
		IsTruncated:  errs.IsTruncated(),
	}, nil
}

func projectsByName(ctx context.Context, repos appshared.Repositories) (map[string]*property.Project, error) {
	list, err := repos.Projects().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*property.Project, len(list))
	for _, p := range list {
		out[strings.ToLower(p.Name)] = p
	}
	return out, nil
}

func ensureProject(ctx context.Context, repos appshared.Repositories, known map[string]*property.Project, name, actor string) (*property.Project, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := known[key]; ok {
		return p, nil
	}
	id, err := repos.Counters().Next(ctx, appproperty.ProjectCounter)
	if err != nil {
		return nil, err
	}
	p, err := property.NewProject(id, strings.TrimSpace(name), "", "", actor)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", name, err)
	}
	if err := repos.Projects().Create(ctx, p); err != nil {
		return nil, err
	}
	known[key] = p
	return p, nil
}

func decimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
