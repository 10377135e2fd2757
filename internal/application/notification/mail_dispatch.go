package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appcontact "github.com/propflow/backend/internal/application/contactsetting"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/agreement"
	"github.com/propflow/backend/internal/domain/contactsetting"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/loanaccount"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// Email delivery outcomes reported to the recorder
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

const systemActor = "system"

// EmailRecorder receives delivery metrics
type EmailRecorder interface {
	RecordEmail(ctx context.Context, outcome string)
	RecordEmailDuration(ctx context.Context, d time.Duration, outcome string)
}

// MailDispatchConfig bounds delivery attempts
type MailDispatchConfig struct {
	DefaultRecipients []string
	MaxRetries        int
	RetryBackoff      time.Duration
}

// outgoing is one rendered email with the data needed to report its failure
type outgoing struct {
	channel  contactsetting.Channel
	subject  string
	body     string
	docs     []document.Document
	label    string
	resource string
}

// MailDispatchHandler turns workflow events into emails. Delivery is retried
// in place; once the attempts are exhausted the failure is recorded as an
// EMAIL_FAILURE notification and the event counts as handled.
type MailDispatchHandler struct {
	scope     appshared.TransactionScope
	documents appshared.DocumentStore
	mailer    appshared.Mailer
	config    MailDispatchConfig
	metrics   EmailRecorder
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewMailDispatchHandler creates the handler. metrics may be nil.
func NewMailDispatchHandler(
	scope appshared.TransactionScope,
	documents appshared.DocumentStore,
	mailer appshared.Mailer,
	config MailDispatchConfig,
	metrics EmailRecorder,
	logger *zap.Logger,
) *MailDispatchHandler {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &MailDispatchHandler{
		scope:     scope,
		documents: documents,
		mailer:    mailer,
		config:    config,
		metrics:   metrics,
		logger:    logger.Named("mail_dispatch"),
		sleep:     sleepContext,
	}
}

// EventTypes returns the event types that produce email
func (h *MailDispatchHandler) EventTypes() []string {
	return []string{
		submission.EventTypeSubmissionCreated,
		submission.EventTypeSubmissionApproved,
		submission.EventTypeLoanDecided,
		agreement.EventTypeAgreementSigned,
		loanaccount.EventTypeLoanAccountOpened,
	}
}

// Handle renders and sends the email for event. Only lookups and storage
// reads return errors; those are retried by the outbox.
func (h *MailDispatchHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	msg, err := h.render(ctx, event)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	repos := h.scope.Repositories()
	view, err := appcontact.Recipients(ctx, repos, msg.channel, h.config.DefaultRecipients)
	if err != nil {
		return err
	}
	if len(view.Recipients) == 0 {
		h.logger.Warn("no recipients configured, email skipped",
			zap.String("channel", string(msg.channel)),
			zap.String("subject", msg.subject))
		h.record(ctx, 0, OutcomeSkipped)
		return nil
	}

	attachments, err := appshared.Attachments(ctx, h.documents, msg.docs)
	if err != nil {
		return fmt.Errorf("load attachments for %s: %w", msg.resource, err)
	}

	mail := appshared.MailMessage{
		To:          view.Recipients,
		Subject:     msg.subject,
		Body:        msg.body,
		Attachments: attachments,
	}
	start := time.Now()
	if sendErr := h.deliver(ctx, mail); sendErr != nil {
		h.record(ctx, time.Since(start), OutcomeFailed)
		h.logger.Error("email delivery failed",
			zap.String("subject", msg.subject),
			zap.Int("attempts", h.config.MaxRetries),
			zap.Error(sendErr))
		return h.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
			return appshared.Notify(ctx, repos, notification.KindEmailFailure,
				"Email delivery failed for "+msg.label, msg.resource, systemActor)
		})
	}
	h.record(ctx, time.Since(start), OutcomeSent)
	h.logger.Info("email sent",
		zap.String("subject", msg.subject),
		zap.Strings("to", view.Recipients),
		zap.Int("attachments", len(attachments)))
	return nil
}

func (h *MailDispatchHandler) deliver(ctx context.Context, msg appshared.MailMessage) error {
	var err error
	for attempt := 1; attempt <= h.config.MaxRetries; attempt++ {
		if err = h.mailer.Send(ctx, msg); err == nil {
			return nil
		}
		h.logger.Warn("email attempt failed",
			zap.String("subject", msg.Subject),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < h.config.MaxRetries && h.config.RetryBackoff > 0 {
			if waitErr := h.sleep(ctx, h.config.RetryBackoff); waitErr != nil {
				return waitErr
			}
		}
	}
	return shared.NewDependencyError(err.Error())
}

func (h *MailDispatchHandler) record(ctx context.Context, d time.Duration, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordEmail(ctx, outcome)
	if d > 0 {
		h.metrics.RecordEmailDuration(ctx, d, outcome)
	}
}

func (h *MailDispatchHandler) render(ctx context.Context, event shared.DomainEvent) (*outgoing, error) {
	switch e := event.(type) {
	case *submission.SubmissionEvent:
		return h.renderSubmission(ctx, e)
	case *submission.LoanDecidedEvent:
		return h.renderDecision(ctx, e)
	case *agreement.AgreementEvent:
		return h.renderAgreement(ctx, e)
	case *loanaccount.OpenedEvent:
		return renderLoanAccount(e), nil
	}
	return nil, fmt.Errorf("unexpected event %T for %s", event, event.EventType())
}

// renderSubmission mails new offers, property and loan applications, and
// account openings once management approved them.
func (h *MailDispatchHandler) renderSubmission(ctx context.Context, e *submission.SubmissionEvent) (*outgoing, error) {
	var subject string
	switch {
	case e.EventType() == submission.EventTypeSubmissionCreated && e.WorkflowType != requirement.WorkflowAccountOpening:
		subject = fmt.Sprintf("%s submission #%d", e.WorkflowType.Label(), e.SubmissionID)
	case e.EventType() == submission.EventTypeSubmissionApproved && e.WorkflowType == requirement.WorkflowAccountOpening:
		subject = fmt.Sprintf("Account opening #%d", e.SubmissionID)
	default:
		return nil, nil
	}

	header, err := loadHeader(ctx, h.scope.Repositories(), e.WorkflowType, e.SubmissionID)
	if err != nil {
		return nil, err
	}
	return &outgoing{
		channel:  contactsetting.ChannelDeposit,
		subject:  subject,
		body:     submissionBody(e.WorkflowType, header),
		docs:     header.Attachments(),
		label:    fmt.Sprintf("%s submission #%d", e.WorkflowType.Label(), e.SubmissionID),
		resource: submissionResource(e.WorkflowType, e.SubmissionID),
	}, nil
}

func (h *MailDispatchHandler) renderDecision(ctx context.Context, e *submission.LoanDecidedEvent) (*outgoing, error) {
	header, err := loadHeader(ctx, h.scope.Repositories(), requirement.WorkflowLoanApplication, e.SubmissionID)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(submissionBody(requirement.WorkflowLoanApplication, header))
	fmt.Fprintf(&b, "Decision: %s\n", e.Decision)
	fmt.Fprintf(&b, "Account Opening ID: %d\n", e.AccountOpeningID)
	return &outgoing{
		channel:  contactsetting.ChannelDeposit,
		subject:  fmt.Sprintf("Loan application #%d %s", e.SubmissionID, e.Decision),
		body:     b.String(),
		label:    fmt.Sprintf("Loan Application submission #%d", e.SubmissionID),
		resource: submissionResource(requirement.WorkflowLoanApplication, e.SubmissionID),
	}, nil
}

func (h *MailDispatchHandler) renderAgreement(ctx context.Context, e *agreement.AgreementEvent) (*outgoing, error) {
	a, err := h.scope.Repositories().Agreements().FindByID(ctx, e.AgreementID)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(a.ReadyMessage())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Agreement ID: %d\n", a.ID)
	fmt.Fprintf(&b, "Loan Application ID: %d\n", a.LoanApplicationID)
	fmt.Fprintf(&b, "Property ID: %d\n", a.PropertyID)
	fmt.Fprintf(&b, "Realtor: %s\n", a.Realtor)
	if a.AccountNumber != "" {
		fmt.Fprintf(&b, "Account Number: %s\n", a.AccountNumber)
	}
	return &outgoing{
		channel:  contactsetting.ChannelLoanAccounts,
		subject:  fmt.Sprintf("Agreement #%d signed", a.ID),
		body:     b.String(),
		docs:     []document.Document{a.Document},
		label:    fmt.Sprintf("Agreement #%d", a.ID),
		resource: fmt.Sprintf("agreements/%d", a.ID),
	}, nil
}

func renderLoanAccount(e *loanaccount.OpenedEvent) *outgoing {
	var b strings.Builder
	fmt.Fprintf(&b, "Loan Account Number: %s\n", e.Number)
	fmt.Fprintf(&b, "Realtor: %s\n", e.Realtor)
	fmt.Fprintf(&b, "Loan Application ID: %d\n", e.LoanApplicationID)
	fmt.Fprintf(&b, "Agreement ID: %d\n", e.AgreementID)
	fmt.Fprintf(&b, "Property ID: %d\n", e.StandID)
	return &outgoing{
		channel:  contactsetting.ChannelLoanAccounts,
		subject:  "Loan account " + e.Number + " opened",
		body:     b.String(),
		label:    "Loan account " + e.Number,
		resource: "loan_accounts/" + e.Number,
	}
}

func submissionBody(wt requirement.WorkflowType, h *submission.Header) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Submission Type: %s\n", wt.Label())
	fmt.Fprintf(&b, "Submission ID: %d\n", h.ID)
	fmt.Fprintf(&b, "Realtor: %s\n", h.Realtor)
	if h.PropertyID != nil {
		fmt.Fprintf(&b, "Property ID: %d\n", *h.PropertyID)
	}
	fmt.Fprintf(&b, "Status: %s\n", h.Status)
	if h.Details != "" {
		fmt.Fprintf(&b, "\nDetails:\n%s\n\n", h.Details)
	}
	return b.String()
}

var collections = map[requirement.WorkflowType]string{
	requirement.WorkflowOffer:               "offers",
	requirement.WorkflowPropertyApplication: "property_applications",
	requirement.WorkflowAccountOpening:      "account_openings",
	requirement.WorkflowLoanApplication:     "loan_applications",
}

func submissionResource(wt requirement.WorkflowType, id int64) string {
	return fmt.Sprintf("%s/%d", collections[wt], id)
}

func loadHeader(ctx context.Context, repos appshared.Repositories, wt requirement.WorkflowType, id int64) (*submission.Header, error) {
	switch wt {
	case requirement.WorkflowOffer:
		o, err := repos.Offers().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return o.Head(), nil
	case requirement.WorkflowPropertyApplication:
		p, err := repos.PropertyApplications().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return p.Head(), nil
	case requirement.WorkflowAccountOpening:
		a, err := repos.AccountOpenings().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Head(), nil
	case requirement.WorkflowLoanApplication:
		l, err := repos.LoanApplications().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return l.Head(), nil
	}
	return nil, shared.NewValidationError("Unknown workflow type: " + string(wt))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ shared.EventHandler = (*MailDispatchHandler)(nil)
