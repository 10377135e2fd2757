package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/submission"
)

// SubmissionHandler serves offers, property applications, account openings
// and loan applications
type SubmissionHandler struct {
	BaseHandler
	submissionService *submission.Service
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissionService *submission.Service) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// CreateOffer godoc
// @Summary      Submit an offer
// @Description  Server-controlled fields are reset; required documents must match the configured set
// @Tags         offers
// @Accept       json
// @Produce      json
// @Param        request body submission.OfferRequest true "Offer"
// @Success      201 {object} dto.Response{data=submission.OfferResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /offers [post]
func (h *SubmissionHandler) CreateOffer(c *gin.Context) {
	var req submission.OfferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	offer, err := h.submissionService.CreateOffer(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, offer)
}

func (h *SubmissionHandler) ListOffers(c *gin.Context) {
	var filter submission.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	offers, err := h.submissionService.ListOffers(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, offers)
}

func (h *SubmissionHandler) GetOffer(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	offer, err := h.submissionService.GetOffer(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, offer)
}

func (h *SubmissionHandler) UpdateOfferStatus(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.StatusUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	offer, err := h.submissionService.UpdateOfferStatus(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, offer)
}

func (h *SubmissionHandler) CreatePropertyApplication(c *gin.Context) {
	var req submission.PropertyApplicationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	app, err := h.submissionService.CreatePropertyApplication(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, app)
}

func (h *SubmissionHandler) ListPropertyApplications(c *gin.Context) {
	var filter submission.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	apps, err := h.submissionService.ListPropertyApplications(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apps)
}

func (h *SubmissionHandler) GetPropertyApplication(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	app, err := h.submissionService.GetPropertyApplication(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

func (h *SubmissionHandler) UpdatePropertyApplicationStatus(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.StatusUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	app, err := h.submissionService.UpdatePropertyApplicationStatus(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

func (h *SubmissionHandler) CreateAccountOpening(c *gin.Context) {
	var req submission.AccountOpeningRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opening, err := h.submissionService.CreateAccountOpening(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, opening)
}

func (h *SubmissionHandler) ListAccountOpenings(c *gin.Context) {
	var filter submission.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	openings, err := h.submissionService.ListAccountOpenings(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, openings)
}

func (h *SubmissionHandler) GetAccountOpening(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	opening, err := h.submissionService.GetAccountOpening(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opening)
}

// ApproveAccountOpening moves a SUBMITTED opening to MANAGER_APPROVED
func (h *SubmissionHandler) ApproveAccountOpening(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	opening, err := h.submissionService.ApproveAccountOpening(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opening)
}

func (h *SubmissionHandler) RejectAccountOpening(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.RejectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opening, err := h.submissionService.RejectAccountOpening(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opening)
}

// OpenAccount assigns the account number and refreshes the customer profile
func (h *SubmissionHandler) OpenAccount(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.OpenAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opening, err := h.submissionService.OpenAccount(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opening)
}

func (h *SubmissionHandler) RecordDeposit(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.DepositRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opening, err := h.submissionService.RecordDeposit(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opening)
}

func (h *SubmissionHandler) CreateLoanApplication(c *gin.Context) {
	var req submission.LoanApplicationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loan, err := h.submissionService.CreateLoanApplication(c.Request.Context(), principal(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, loan)
}

func (h *SubmissionHandler) ListLoanApplications(c *gin.Context) {
	var filter submission.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	loans, err := h.submissionService.ListLoanApplications(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loans)
}

func (h *SubmissionHandler) GetLoanApplication(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	loan, err := h.submissionService.GetLoanApplication(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loan)
}

// DecideLoanApplication godoc
// @Summary      Decide a loan application
// @Description  An approval drafts the agreement when none exists yet
// @Tags         loan-applications
// @Accept       json
// @Produce      json
// @Param        id path int true "Loan application ID"
// @Param        request body submission.DecisionRequest true "Decision"
// @Success      200 {object} dto.Response{data=submission.LoanApplicationResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /loan-applications/{id}/decision [post]
func (h *SubmissionHandler) DecideLoanApplication(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.DecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loan, err := h.submissionService.DecideLoanApplication(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loan)
}

// ProcessTeamReply derives the decision from a loan team reply
func (h *SubmissionHandler) ProcessTeamReply(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req submission.TeamReplyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loan, err := h.submissionService.ProcessTeamReply(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loan)
}
