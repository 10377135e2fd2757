package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/audit"
	"github.com/propflow/backend/internal/application/notification"
)

// NotificationHandler serves the notification feed
type NotificationHandler struct {
	BaseHandler
	notificationService *notification.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *notification.Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns notifications oldest first, filtered by kind and since
func (h *NotificationHandler) List(c *gin.Context) {
	var filter notification.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	items, err := h.notificationService.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// AuditHandler serves audit log queries
type AuditHandler struct {
	BaseHandler
	auditService *audit.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *audit.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Query godoc
// @Summary      Query the audit log
// @Tags         audit
// @Produce      json
// @Param        actor   query string false "Actor"
// @Param        action  query string false "Action, e.g. POST /api/v1/offers"
// @Param        outcome query int    false "HTTP status"
// @Param        since   query string false "RFC 3339 lower bound"
// @Param        until   query string false "RFC 3339 upper bound"
// @Success      200 {object} dto.Response{data=[]audit.Response}
// @Security     BearerAuth
// @Router       /audit-logs [get]
func (h *AuditHandler) Query(c *gin.Context) {
	var filter audit.QueryFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	records, err := h.auditService.Query(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
