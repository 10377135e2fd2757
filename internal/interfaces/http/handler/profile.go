package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/customer"
)

// ProfileHandler exposes customer profiles to compliance
type ProfileHandler struct {
	BaseHandler
	profileService *customer.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *customer.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profileService.List(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profiles)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profileService.Get(c.Request.Context(), principal(c), c.Param("account_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

func (h *ProfileHandler) RequestDeletion(c *gin.Context) {
	profile, err := h.profileService.RequestDeletion(c.Request.Context(), principal(c), c.Param("account_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

func (h *ProfileHandler) ApproveDeletion(c *gin.Context) {
	profile, err := h.profileService.ApproveDeletion(c.Request.Context(), principal(c), c.Param("account_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// Delete removes a profile whose deletion was approved
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.profileService.Delete(c.Request.Context(), principal(c), c.Param("account_number")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
