package property

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StandStatus is the sales status of a stand
type StandStatus string

const (
	StandAvailable StandStatus = "available"
	StandReserved  StandStatus = "reserved"
	StandSold      StandStatus = "sold"
	StandArchived  StandStatus = "archived"
)

// standTransitions lists the statuses reachable through a direct status change.
// SOLD is absent on purpose: it is set by loan-account finalization only.
var standTransitions = map[StandStatus][]StandStatus{
	StandAvailable: {StandReserved, StandArchived},
	StandReserved:  {StandAvailable, StandArchived},
	StandArchived:  {StandAvailable},
}

// ParseStandStatus converts user input into a StandStatus
func ParseStandStatus(s string) (StandStatus, error) {
	status := StandStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case StandAvailable, StandReserved, StandSold, StandArchived:
		return status, nil
	}
	return "", shared.NewValidationError("Unknown stand status: " + s)
}

// Stand is a sellable unit inside a project
type Stand struct {
	shared.BaseAggregateRoot
	ID                int64           `json:"id" validate:"required,gt=0"`
	ProjectID         int64           `json:"project_id" validate:"required,gt=0"`
	Name              string          `json:"name" validate:"required,max=200"`
	Size              decimal.Decimal `json:"size"`
	Price             decimal.Decimal `json:"price"`
	Status            StandStatus     `json:"status" validate:"required,oneof=available reserved sold archived"`
	Mandate           *Mandate        `json:"mandate,omitempty"`
	LoanAccountNumber string          `json:"loan_account_number,omitempty"`
	SoldAt            *time.Time      `json:"sold_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewStand creates an AVAILABLE stand
func NewStand(id, projectID int64, name string, size, price decimal.Decimal) (*Stand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Stand name is required")
	}
	if err := validateDimensions(size, price); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Stand{
		ID:        id,
		ProjectID: projectID,
		Name:      name,
		Size:      size,
		Price:     price,
		Status:    StandAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateDimensions(size, price decimal.Decimal) error {
	if size.IsNegative() {
		return shared.NewValidationError("Stand size cannot be negative")
	}
	if price.IsNegative() {
		return shared.NewValidationError("Stand price cannot be negative")
	}
	return nil
}

// Key returns the store key of the stand
func (s *Stand) Key() string {
	return strconv.FormatInt(s.ID, 10)
}

// IsSold reports whether the stand has been sold
func (s *Stand) IsSold() bool {
	return s.Status == StandSold
}

// EnsureMutable fails with CONFLICT once the stand is sold
func (s *Stand) EnsureMutable() error {
	if s.IsSold() {
		return shared.NewConflictError(fmt.Sprintf("Stand %d has been sold and can no longer be modified", s.ID))
	}
	return nil
}

// StandUpdate carries optional replacements for the descriptive fields
type StandUpdate struct {
	Name  *string
	Size  *decimal.Decimal
	Price *decimal.Decimal
}

// Update applies descriptive changes to an unsold stand
func (s *Stand) Update(u StandUpdate) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	name, size, price := s.Name, s.Size, s.Price
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		if name == "" {
			return shared.NewValidationError("Stand name is required")
		}
	}
	if u.Size != nil {
		size = *u.Size
	}
	if u.Price != nil {
		price = *u.Price
	}
	if err := validateDimensions(size, price); err != nil {
		return err
	}
	s.Name, s.Size, s.Price = name, size, price
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ChangeStatus moves the stand along the status table
func (s *Stand) ChangeStatus(to StandStatus, actor string) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	if to == StandSold {
		return shared.NewValidationError("Stands are marked sold by loan account creation only")
	}
	if to == s.Status {
		return nil
	}
	for _, allowed := range standTransitions[s.Status] {
		if allowed == to {
			from := s.Status
			s.Status = to
			s.UpdatedAt = time.Now().UTC()
			s.AddDomainEvent(NewStandStatusChangedEvent(s, from, actor))
			return nil
		}
	}
	return shared.NewConflictError(fmt.Sprintf("Cannot change stand status from %s to %s", s.Status, to))
}

// MarkSold flips the stand to SOLD as part of loan-account finalization
func (s *Stand) MarkSold(loanAccountNumber, actor string) error {
	if err := s.EnsureMutable(); err != nil {
		return err
	}
	now := time.Now().UTC()
	from := s.Status
	s.Status = StandSold
	s.LoanAccountNumber = loanAccountNumber
	s.SoldAt = &now
	s.UpdatedAt = now
	s.AddDomainEvent(NewStandStatusChangedEvent(s, from, actor))
	return nil
}

// AssignMandate gives the stand to an agent, replacing any previous mandate.
// It returns the history action recorded for the change.
func (s *Stand) AssignMandate(agent, documentRef string, expiresAt *time.Time, assignedBy string) (MandateAction, error) {
	if err := s.EnsureMutable(); err != nil {
		return "", err
	}
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return "", shared.NewValidationError("Mandate agent is required")
	}
	now := time.Now().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return "", shared.NewValidationError("Mandate expiration must be in the future")
	}

	action := ActionAssigned
	if s.Mandate != nil {
		action = ActionReassigned
	}
	s.Mandate = &Mandate{
		Agent:      agent,
		Document:   documentRef,
		Status:     MandatePending,
		ExpiresAt:  expiresAt,
		AssignedBy: assignedBy,
		AssignedAt: now,
	}
	s.UpdatedAt = now
	s.AddDomainEvent(NewMandateEvent(EventTypeMandateAssigned, s, assignedBy))
	return action, nil
}

// AcceptMandate is performed by the named agent on a pending mandate
func (s *Stand) AcceptMandate(agent string) error {
	m, err := s.pendingMandate()
	if err != nil {
		return err
	}
	if m.Agent != agent {
		return shared.NewForbiddenError("Only the assigned agent can accept this mandate")
	}
	now := time.Now().UTC()
	if m.IsExpired(now) {
		return shared.NewConflictError("Mandate has expired")
	}
	m.Status = MandateAccepted
	m.RespondedAt = &now
	s.UpdatedAt = now
	s.AddDomainEvent(NewMandateEvent(EventTypeMandateAccepted, s, agent))
	return nil
}

// RejectMandate is performed by the named agent or an admin on a pending mandate
func (s *Stand) RejectMandate(actor string, actorIsAdmin bool, reason string) error {
	m, err := s.pendingMandate()
	if err != nil {
		return err
	}
	if m.Agent != actor && !actorIsAdmin {
		return shared.NewForbiddenError("Only the assigned agent or an admin can reject this mandate")
	}
	now := time.Now().UTC()
	m.Status = MandateRejected
	m.Reason = strings.TrimSpace(reason)
	m.RespondedAt = &now
	s.UpdatedAt = now
	s.AddDomainEvent(NewMandateEvent(EventTypeMandateRejected, s, actor))
	return nil
}

func (s *Stand) pendingMandate() (*Mandate, error) {
	if err := s.EnsureMutable(); err != nil {
		return nil, err
	}
	if s.Mandate == nil {
		return nil, shared.NewNotFoundError("Mandate for stand", s.ID)
	}
	if s.Mandate.Status != MandatePending {
		return nil, shared.NewConflictError(fmt.Sprintf("Mandate is already %s", s.Mandate.Status))
	}
	return s.Mandate, nil
}

// IsAvailableTo reports whether an agent may market this stand right now
func (s *Stand) IsAvailableTo(agent string, now time.Time) bool {
	if s.Status != StandAvailable || s.Mandate == nil {
		return false
	}
	m := s.Mandate
	return m.Agent == agent && m.Status == MandateAccepted && !m.IsExpired(now)
}
