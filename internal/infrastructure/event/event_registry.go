package event

import (
	"github.com/propflow/backend/internal/domain/agreement"
	"github.com/propflow/backend/internal/domain/loanaccount"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/submission"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processor cannot decode entries of unregistered types.
func RegisterAllEvents(serializer *EventSerializer) {
	// Stands and mandates
	serializer.Register(property.EventTypeStandStatusChanged, &property.StandStatusChangedEvent{})
	serializer.Register(property.EventTypeMandateAssigned, &property.MandateEvent{})
	serializer.Register(property.EventTypeMandateAccepted, &property.MandateEvent{})
	serializer.Register(property.EventTypeMandateRejected, &property.MandateEvent{})

	// Submissions
	serializer.Register(submission.EventTypeSubmissionCreated, &submission.SubmissionEvent{})
	serializer.Register(submission.EventTypeSubmissionApproved, &submission.SubmissionEvent{})
	serializer.Register(submission.EventTypeSubmissionStatusChanged, &submission.SubmissionEvent{})
	serializer.Register(submission.EventTypeAccountOpened, &submission.AccountOpenedEvent{})
	serializer.Register(submission.EventTypeDepositRecorded, &submission.DepositRecordedEvent{})
	serializer.Register(submission.EventTypeAccountOpeningCompleted, &submission.SubmissionEvent{})
	serializer.Register(submission.EventTypeLoanDecided, &submission.LoanDecidedEvent{})

	// Agreements
	serializer.Register(agreement.EventTypeAgreementCreated, &agreement.AgreementEvent{})
	serializer.Register(agreement.EventTypeAgreementPartySigned, &agreement.AgreementEvent{})
	serializer.Register(agreement.EventTypeAgreementSigned, &agreement.AgreementEvent{})
	serializer.Register(agreement.EventTypeAgreementDocumentUploaded, &agreement.AgreementEvent{})

	// Finalization
	serializer.Register(loanaccount.EventTypeLoanAccountOpened, &loanaccount.OpenedEvent{})
}
