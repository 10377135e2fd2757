package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/agreement"
)

// AgreementHandler runs the agreement signing protocol over HTTP
type AgreementHandler struct {
	BaseHandler
	agreementService *agreement.Service
}

// NewAgreementHandler creates a new agreement handler
func NewAgreementHandler(agreementService *agreement.Service) *AgreementHandler {
	return &AgreementHandler{agreementService: agreementService}
}

// Create drafts the agreement of an approved loan application
func (h *AgreementHandler) Create(c *gin.Context) {
	var req agreement.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.agreementService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *AgreementHandler) List(c *gin.Context) {
	var filter agreement.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	items, err := h.agreementService.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

func (h *AgreementHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	resp, err := h.agreementService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Sign godoc
// @Summary      Sign an agreement
// @Description  The realtor signs for the customer, an admin for the bank. Both signatures make it SIGNED.
// @Tags         agreements
// @Accept       json
// @Produce      json
// @Param        id path int true "Agreement ID"
// @Param        request body agreement.SignRequest true "Signature"
// @Success      200 {object} dto.Response{data=agreement.Response}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /agreements/{id}/sign [post]
func (h *AgreementHandler) Sign(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req agreement.SignRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.agreementService.Sign(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UploadDocument appends a new document version
func (h *AgreementHandler) UploadDocument(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req agreement.UploadRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.agreementService.UploadDocument(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
