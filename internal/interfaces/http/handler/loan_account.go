package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/loanaccount"
)

// LoanAccountHandler finalizes signed agreements into loan accounts
type LoanAccountHandler struct {
	BaseHandler
	loanAccountService *loanaccount.Service
}

// NewLoanAccountHandler creates a new loan account handler
func NewLoanAccountHandler(loanAccountService *loanaccount.Service) *LoanAccountHandler {
	return &LoanAccountHandler{loanAccountService: loanAccountService}
}

// Create godoc
// @Summary      Create the loan account of a signed agreement
// @Description  Allocates the number, marks the stand SOLD and links the loan in one transaction
// @Tags         loan-accounts
// @Accept       json
// @Produce      json
// @Param        request body loanaccount.CreateRequest true "Agreement"
// @Success      201 {object} dto.Response{data=loanaccount.AccountResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /loan-accounts [post]
func (h *LoanAccountHandler) Create(c *gin.Context) {
	var req loanaccount.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.loanAccountService.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListMine returns the caller's loan accounts
func (h *LoanAccountHandler) ListMine(c *gin.Context) {
	accounts, err := h.loanAccountService.ListMine(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// ListFor returns a realtor's loan accounts to that realtor or an admin
func (h *LoanAccountHandler) ListFor(c *gin.Context) {
	accounts, err := h.loanAccountService.ListFor(c.Request.Context(), principal(c), c.Param("realtor"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}
