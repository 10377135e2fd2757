package agreement

import "github.com/propflow/backend/internal/domain/shared"

// AggregateTypeAgreement is the aggregate type used in events
const AggregateTypeAgreement = "Agreement"

// Event types emitted by agreements
const (
	EventTypeAgreementCreated          = "agreement.created"
	EventTypeAgreementPartySigned      = "agreement.party_signed"
	EventTypeAgreementSigned           = "agreement.signed"
	EventTypeAgreementDocumentUploaded = "agreement.document_uploaded"
)

// AgreementEvent is raised on every agreement mutation
type AgreementEvent struct {
	shared.BaseDomainEvent
	AgreementID       int64  `json:"agreement_id"`
	LoanApplicationID int64  `json:"loan_application_id"`
	PropertyID        int64  `json:"property_id"`
	Realtor           string `json:"realtor"`
	Status            Status `json:"status"`
	Party             Party  `json:"party,omitempty"`
	Version           int    `json:"version"`
}

// NewAgreementEvent creates an agreement event of the given type
func NewAgreementEvent(eventType string, a *Agreement, party Party, actor string) *AgreementEvent {
	return &AgreementEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypeAgreement, a.Key(), actor),
		AgreementID:       a.ID,
		LoanApplicationID: a.LoanApplicationID,
		PropertyID:        a.PropertyID,
		Realtor:           a.Realtor,
		Status:            a.Status,
		Party:             party,
		Version:           a.CurrentVersion(),
	}
}
