package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/contactsetting"
)

// ContactSettingHandler manages email recipients per channel
type ContactSettingHandler struct {
	BaseHandler
	contactService *contactsetting.Service
}

// NewContactSettingHandler creates a new contact setting handler
func NewContactSettingHandler(contactService *contactsetting.Service) *ContactSettingHandler {
	return &ContactSettingHandler{contactService: contactService}
}

// Get returns the recipients of a channel, falling back to the defaults
func (h *ContactSettingHandler) Get(c *gin.Context) {
	view, err := h.contactService.Get(c.Request.Context(), principal(c), c.Param("channel"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

func (h *ContactSettingHandler) Update(c *gin.Context) {
	var req contactsetting.UpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	view, err := h.contactService.Update(c.Request.Context(), principal(c), c.Param("channel"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Reset drops the channel setting so the defaults apply again
func (h *ContactSettingHandler) Reset(c *gin.Context) {
	view, err := h.contactService.Reset(c.Request.Context(), principal(c), c.Param("channel"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
