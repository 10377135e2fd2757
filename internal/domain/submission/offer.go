package submission

import (
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/shopspring/decimal"
)

// Offer is a buyer's offer on a property
type Offer struct {
	Header
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// WorkflowType implements Submission
func (o *Offer) WorkflowType() requirement.WorkflowType {
	return requirement.WorkflowOffer
}

// Sanitize implements Submission
func (o *Offer) Sanitize() {
	o.sanitize()
}

// PropertyApplication is a buyer's application for a property
type PropertyApplication struct {
	Header
}

// WorkflowType implements Submission
func (p *PropertyApplication) WorkflowType() requirement.WorkflowType {
	return requirement.WorkflowPropertyApplication
}

// Sanitize implements Submission
func (p *PropertyApplication) Sanitize() {
	p.sanitize()
}
