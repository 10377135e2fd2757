package identity

import (
	"time"

	"github.com/propflow/backend/internal/domain/identity"
)

// LoginInput contains the credentials presented at login
type LoginInput struct {
	Username string
	Password string
}

// TokenResult carries a freshly issued token pair
type TokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	TokenResult
	Account AccountInfo `json:"account"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput identifies the tokens revoked at logout
type LogoutInput struct {
	AccessTokenID   string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// CreateAccountInput contains the fields of a new account
type CreateAccountInput struct {
	Username string
	Password string
	Role     string
}

// AccountInfo is the public view of an account. The password hash never leaves the service.
type AccountInfo struct {
	Username    string        `json:"username"`
	Role        identity.Role `json:"role"`
	Active      bool          `json:"active"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
}

// ToAccountInfo converts a domain account to its public view
func ToAccountInfo(a *identity.Account) AccountInfo {
	return AccountInfo{
		Username:    a.Username,
		Role:        a.Role,
		Active:      a.Active,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// ToAccountInfos converts a list of accounts
func ToAccountInfos(accounts []*identity.Account) []AccountInfo {
	result := make([]AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, ToAccountInfo(a))
	}
	return result
}
