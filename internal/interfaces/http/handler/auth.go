package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/application/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
)

// BootstrapTokenHeader carries the one-time bootstrap secret
const BootstrapTokenHeader = "X-Bootstrap-Token"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService    *identity.AuthService
	accountService *identity.AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService, accountService *identity.AccountService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

// Login godoc
// @Summary      Login
// @Description  Authenticate with username and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=identity.LoginResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshToken godoc
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=identity.TokenResult}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @Summary      Logout
// @Description  Revoke the current access token and, when given, the refresh token
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=LogoutResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// the body is optional
	_ = c.ShouldBindJSON(&req)

	input := identity.LogoutInput{RefreshToken: req.RefreshToken}
	if claims := middleware.GetJWTClaims(c); claims != nil {
		input.AccessTokenID = claims.ID
		if claims.ExpiresAt != nil {
			input.AccessExpiresAt = claims.ExpiresAt.Time
		}
	}
	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LogoutResponse{Message: "Logged out successfully"})
}

// GetCurrentAccount godoc
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.AccountInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentAccount(c *gin.Context) {
	account, err := h.authService.GetCurrentAccount(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Bootstrap godoc
// @Summary      Create the first admin
// @Description  Requires the X-Bootstrap-Token header and only works while no account exists
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Bootstrap-Token header string true "Bootstrap token"
// @Param        request body CreateAccountRequest true "Admin credentials"
// @Success      201 {object} dto.Response{data=identity.AccountInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/bootstrap [post]
func (h *AuthHandler) Bootstrap(c *gin.Context) {
	token := c.GetHeader(BootstrapTokenHeader)
	if token == "" {
		// checked ahead of the body so an anonymous caller learns nothing else
		h.HandleError(c, shared.NewUnauthenticatedError("Missing bootstrap token"))
		return
	}
	var req CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.accountService.Bootstrap(c.Request.Context(), token, identity.CreateAccountInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// AccountHandler manages platform accounts
type AccountHandler struct {
	BaseHandler
	accountService *identity.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *identity.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Create creates an account. Admin only.
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.accountService.CreateAccount(c.Request.Context(), principal(c), identity.CreateAccountInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// List returns every account. Admin only.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// ListAgents returns the AGENT accounts. Admin only.
func (h *AccountHandler) ListAgents(c *gin.Context) {
	agents, err := h.accountService.ListAgents(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agents)
}
