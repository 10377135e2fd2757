package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/property"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	BaseHandler
	projectService *property.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *property.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create godoc
// @Summary      Create project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        request body property.CreateProjectRequest true "Project"
// @Success      201 {object} dto.Response{data=property.ProjectResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req property.CreateProjectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, project)
}

// Update applies a partial update
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.UpdateProjectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, project)
}

// Delete removes a project without stands
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	project, err := h.projectService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, projects)
}

// StandHandler handles stand and mandate HTTP requests
type StandHandler struct {
	BaseHandler
	standService *property.StandService
}

// NewStandHandler creates a new stand handler
func NewStandHandler(standService *property.StandService) *StandHandler {
	return &StandHandler{standService: standService}
}

// Create godoc
// @Summary      Add a stand to a project
// @Tags         stands
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        request body property.CreateStandRequest true "Stand"
// @Success      201 {object} dto.Response{data=property.StandResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /projects/{id}/stands [post]
func (h *StandHandler) Create(c *gin.Context) {
	projectID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.CreateStandRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stand, err := h.standService.Create(c.Request.Context(), principal(c), projectID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, stand)
}

func (h *StandHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.UpdateStandRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stand, err := h.standService.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

// ChangeStatus moves a stand along the status table. SOLD is refused.
func (h *StandHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.ChangeStandStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stand, err := h.standService.ChangeStatus(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

func (h *StandHandler) Delete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.standService.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *StandHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	stand, err := h.standService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

// List returns stands, optionally filtered by project_id and status
func (h *StandHandler) List(c *gin.Context) {
	var filter property.StandListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	stands, err := h.standService.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stands)
}

// ListAvailable returns the stands the caller can market
func (h *StandHandler) ListAvailable(c *gin.Context) {
	stands, err := h.standService.ListAvailable(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stands)
}

// AssignMandate godoc
// @Summary      Assign or reassign a mandate
// @Tags         mandates
// @Accept       json
// @Produce      json
// @Param        id path int true "Stand ID"
// @Param        request body property.AssignMandateRequest true "Mandate"
// @Success      200 {object} dto.Response{data=property.StandResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /stands/{id}/mandate [post]
func (h *StandHandler) AssignMandate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.AssignMandateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stand, err := h.standService.AssignMandate(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

func (h *StandHandler) AcceptMandate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	stand, err := h.standService.AcceptMandate(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

// RejectMandate takes an optional body with the reason
func (h *StandHandler) RejectMandate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req property.RejectMandateRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	stand, err := h.standService.RejectMandate(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stand)
}

func (h *StandHandler) MandateHistory(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	history, err := h.standService.MandateHistory(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}
