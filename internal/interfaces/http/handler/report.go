package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/report"
)

// ReportHandler streams the CSV exports
type ReportHandler struct {
	BaseHandler
	reportService *report.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *report.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Properties godoc
// @Summary      Stand and mandate status export
// @Tags         reports
// @Produce      text/csv
// @Success      200 {string} string "CSV"
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/properties.csv [get]
func (h *ReportHandler) Properties(c *gin.Context) {
	h.stream(c, report.Properties)
}

// Mandates streams the mandate history
func (h *ReportHandler) Mandates(c *gin.Context) {
	h.stream(c, report.Mandates)
}

// Loans streams loan applications with their agreement and account
func (h *ReportHandler) Loans(c *gin.Context) {
	h.stream(c, report.Loans)
}

func (h *ReportHandler) stream(c *gin.Context, name string) {
	w := &csvWriter{c: c, filename: name + ".csv"}
	if err := h.reportService.Write(c.Request.Context(), principal(c), name, w); err != nil {
		if w.started {
			// the status is already committed
			_ = c.Error(err)
			c.Abort()
			return
		}
		h.HandleError(c, err)
	}
}

// csvWriter commits the CSV headers on the first write so that a failure
// before any row still gets a JSON error
type csvWriter struct {
	c        *gin.Context
	filename string
	started  bool
}

func (w *csvWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", "text/csv; charset=utf-8")
		w.c.Header("Content-Disposition", `attachment; filename="`+w.filename+`"`)
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}
