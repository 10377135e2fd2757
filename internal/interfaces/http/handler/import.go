package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	importapp "github.com/propflow/backend/internal/application/import"
	"github.com/propflow/backend/internal/interfaces/http/dto"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
)

// maxImportFileSize bounds the CSV upload
const maxImportFileSize = 10 << 20

// ImportHandler handles the stand import and imported account listings
type ImportHandler struct {
	BaseHandler
	standImport   *importapp.StandImportService
	accountImport *importapp.AccountImportService
}

// NewImportHandler creates a new import handler
func NewImportHandler(standImport *importapp.StandImportService, accountImport *importapp.AccountImportService) *ImportHandler {
	return &ImportHandler{standImport: standImport, accountImport: accountImport}
}

// ImportStands godoc
// @Summary      Import stands from CSV
// @Description  Columns project, name, size, price. Projects are created by name. Invalid rows are reported and skipped.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Success      200 {object} dto.Response{data=importapp.ImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /imports/stands [post]
func (h *ImportHandler) ImportStands(c *gin.Context) {
	var body io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			h.BadRequest(c, "file is required")
			return
		}
		defer file.Close()

		if header.Size > maxImportFileSize {
			h.Error(c, dto.ErrCodeRequestTooLarge, "file exceeds maximum size of 10MB")
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
			contentType != "text/plain" && contentType != "application/vnd.ms-excel" {
			c.JSON(http.StatusUnsupportedMediaType, dto.NewErrorResponseWithRequestID(dto.ErrCodeValidation, "file must be a CSV file", middleware.GetRequestID(c)))
			return
		}
		body = file
	} else {
		// a raw text/csv body
		body = io.LimitReader(c.Request.Body, maxImportFileSize)
	}

	result, err := h.standImport.Import(c.Request.Context(), principal(c), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

type importedAccountQuery struct {
	Kind string `form:"kind" binding:"required"`
}

// ListImportedAccounts returns imported deposit or loan accounts
func (h *ImportHandler) ListImportedAccounts(c *gin.Context) {
	var q importedAccountQuery
	if !h.BindQuery(c, &q) {
		return
	}
	accounts, err := h.accountImport.List(c.Request.Context(), principal(c), q.Kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}
