package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/requirement"
)

// RequirementHandler manages the document requirement policy
type RequirementHandler struct {
	BaseHandler
	requirementService *requirement.Service
}

// NewRequirementHandler creates a new requirement handler
func NewRequirementHandler(requirementService *requirement.Service) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

type requirementQuery struct {
	AppliesTo *string `form:"applies_to"`
}

// List returns requirements in position order, optionally for one workflow type
func (h *RequirementHandler) List(c *gin.Context) {
	var q requirementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	items, err := h.requirementService.List(c.Request.Context(), principal(c), q.AppliesTo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

func (h *RequirementHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	item, err := h.requirementService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Create godoc
// @Summary      Add a document requirement
// @Description  The slug is derived from the name and disambiguated within the workflow type
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Param        request body requirement.CreateRequest true "Requirement"
// @Success      201 {object} dto.Response{data=requirement.Response}
// @Security     BearerAuth
// @Router       /requirements [post]
func (h *RequirementHandler) Create(c *gin.Context) {
	var req requirement.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.requirementService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

func (h *RequirementHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req requirement.UpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.requirementService.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

func (h *RequirementHandler) Delete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.requirementService.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Reorder rewrites the positions of one workflow type
func (h *RequirementHandler) Reorder(c *gin.Context) {
	var req requirement.ReorderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items, err := h.requirementService.Reorder(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}
