// Package report renders the management CSV exports.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// Report names accepted by Write
const (
	Properties = "properties"
	Mandates   = "mandates"
	Loans      = "loans"
)

var (
	propertyHeader = []string{"stand_id", "project", "stand", "size", "price", "status", "mandate_agent", "mandate_status", "loan_account_number", "sold_at"}
	mandateHeader  = []string{"stand_id", "stand", "action", "agent", "status", "actor", "note", "recorded_at"}
	loanHeader     = []string{"loan_application_id", "realtor", "account_id", "amount", "status", "decision", "agreement_id", "agreement_status", "loan_account_number", "created_at"}
)

// ReportService streams CSV exports
type ReportService struct {
	scope appshared.TransactionScope
}

// NewReportService creates a new ReportService
func NewReportService(scope appshared.TransactionScope) *ReportService {
	return &ReportService{scope: scope}
}

// Write renders the named report to w. Management only.
func (s *ReportService) Write(ctx context.Context, principal identity.Principal, name string, w io.Writer) error {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return err
	}
	var rows [][]string
	var err error
	switch name {
	case Properties:
		rows, err = s.propertyRows(ctx)
	case Mandates:
		rows, err = s.mandateRows(ctx)
	case Loans:
		rows, err = s.loanRows(ctx)
	default:
		return shared.NewNotFoundError("Report", name)
	}
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s report: %w", name, err)
	}
	return nil
}

func (s *ReportService) propertyRows(ctx context.Context) ([][]string, error) {
	repos := s.scope.Repositories()
	projects, err := repos.Projects().List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	stands, err := repos.Stands().List(ctx, property.StandFilter{})
	if err != nil {
		return nil, err
	}

	rows := [][]string{propertyHeader}
	for _, st := range stands {
		agent, mandateStatus := "", ""
		if st.Mandate != nil {
			agent, mandateStatus = st.Mandate.Agent, string(st.Mandate.Status)
		}
		rows = append(rows, []string{
			id(st.ID),
			names[st.ProjectID],
			st.Name,
			st.Size.String(),
			st.Price.StringFixed(2),
			string(st.Status),
			agent,
			mandateStatus,
			st.LoanAccountNumber,
			timestamp(st.SoldAt),
		})
	}
	return rows, nil
}

func (s *ReportService) mandateRows(ctx context.Context) ([][]string, error) {
	repos := s.scope.Repositories()
	stands, err := repos.Stands().List(ctx, property.StandFilter{})
	if err != nil {
		return nil, err
	}
	rows := [][]string{mandateHeader}
	for _, st := range stands {
		entries, err := repos.MandateHistory().ListByStand(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			recorded := e.RecordedAt
			rows = append(rows, []string{
				id(st.ID),
				st.Name,
				string(e.Action),
				e.Agent,
				string(e.Status),
				e.Actor,
				e.Note,
				timestamp(&recorded),
			})
		}
	}
	return rows, nil
}

func (s *ReportService) loanRows(ctx context.Context) ([][]string, error) {
	repos := s.scope.Repositories()
	loans, err := repos.LoanApplications().List(ctx, submission.Filter{})
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })

	rows := [][]string{loanHeader}
	for _, l := range loans {
		amount, decision, agreementID, agreementStatus, number := "", "", "", "", ""
		if l.Amount != nil {
			amount = l.Amount.StringFixed(2)
		}
		if l.Decision != nil {
			decision = string(*l.Decision)
		}
		if l.AgreementID != nil {
			agreementID = id(*l.AgreementID)
			ag, err := repos.Agreements().FindByID(ctx, *l.AgreementID)
			if err == nil {
				agreementStatus = string(ag.Status)
			} else if !shared.HasCode(err, shared.CodeNotFound) {
				return nil, err
			}
		}
		if l.LoanAccountNumber != nil {
			number = *l.LoanAccountNumber
		}
		created := l.CreatedAt
		rows = append(rows, []string{
			id(l.ID),
			l.Realtor,
			id(l.AccountOpeningID),
			amount,
			string(l.Status),
			decision,
			agreementID,
			agreementStatus,
			number,
			timestamp(&created),
		})
	}
	return rows, nil
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
