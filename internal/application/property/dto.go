package property

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propflow/backend/internal/domain/property"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Location    string `json:"location" binding:"max=500"`
}

// UpdateProjectRequest represents a request to update a project
type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Location    *string `json:"location" binding:"omitempty,max=500"`
}

// ProjectResponse represents a project in API responses
type ProjectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStandRequest represents a request to add a stand to a project
type CreateStandRequest struct {
	Name  string          `json:"name" binding:"required,min=1,max=200"`
	Size  decimal.Decimal `json:"size"`
	Price decimal.Decimal `json:"price"`
}

// UpdateStandRequest represents a request to update a stand
type UpdateStandRequest struct {
	Name  *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Size  *decimal.Decimal `json:"size"`
	Price *decimal.Decimal `json:"price"`
}

// ChangeStandStatusRequest represents a direct status change
type ChangeStandStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// StandListFilter narrows stand listings
type StandListFilter struct {
	ProjectID *int64  `form:"project_id"`
	Status    *string `form:"status"`
}

// MandateResponse represents the mandate embedded in a stand
type MandateResponse struct {
	Agent       string     `json:"agent"`
	Document    string     `json:"document,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AssignedBy  string     `json:"assigned_by,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// StandResponse represents a stand in API responses
type StandResponse struct {
	ID                int64            `json:"id"`
	ProjectID         int64            `json:"project_id"`
	Name              string           `json:"name"`
	Size              decimal.Decimal  `json:"size"`
	Price             decimal.Decimal  `json:"price"`
	Status            string           `json:"status"`
	Mandate           *MandateResponse `json:"mandate,omitempty"`
	LoanAccountNumber string           `json:"loan_account_number,omitempty"`
	SoldAt            *time.Time       `json:"sold_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Version           int              `json:"version"`
}

// AssignMandateRequest represents an admin assigning or reassigning a mandate
type AssignMandateRequest struct {
	Agent     string     `json:"agent" binding:"required"`
	Document  string     `json:"document"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// RejectMandateRequest carries the optional reason of a rejection
type RejectMandateRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// MandateHistoryResponse is one entry of a stand's mandate history
type MandateHistoryResponse struct {
	StandID    int64     `json:"stand_id"`
	Action     string    `json:"action"`
	Agent      string    `json:"agent"`
	Status     string    `json:"status"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ToProjectResponse converts a domain project to a response DTO
func ToProjectResponse(p *property.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Location:    p.Location,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToStandResponse converts a domain stand to a response DTO
func ToStandResponse(s *property.Stand) StandResponse {
	resp := StandResponse{
		ID:                s.ID,
		ProjectID:         s.ProjectID,
		Name:              s.Name,
		Size:              s.Size,
		Price:             s.Price,
		Status:            string(s.Status),
		LoanAccountNumber: s.LoanAccountNumber,
		SoldAt:            s.SoldAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		Version:           s.GetVersion(),
	}
	if m := s.Mandate; m != nil {
		resp.Mandate = &MandateResponse{
			Agent:       m.Agent,
			Document:    m.Document,
			Status:      string(m.Status),
			ExpiresAt:   m.ExpiresAt,
			AssignedBy:  m.AssignedBy,
			AssignedAt:  m.AssignedAt,
			RespondedAt: m.RespondedAt,
			Reason:      m.Reason,
		}
	}
	return resp
}

// ToStandResponses converts a list of stands
func ToStandResponses(stands []*property.Stand) []StandResponse {
	result := make([]StandResponse, 0, len(stands))
	for _, s := range stands {
		result = append(result, ToStandResponse(s))
	}
	return result
}

func toHistoryResponses(entries []property.MandateHistoryEntry) []MandateHistoryResponse {
	result := make([]MandateHistoryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, MandateHistoryResponse{
			StandID:    e.StandID,
			Action:     string(e.Action),
			Agent:      e.Agent,
			Status:     string(e.Status),
			Actor:      e.Actor,
			Note:       e.Note,
			RecordedAt: e.RecordedAt,
		})
	}
	return result
}
