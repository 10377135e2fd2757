package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/auth"
)

var errInvalidCredentials = shared.NewUnauthenticatedError("Invalid username or password")

// AuthService handles authentication operations
type AuthService struct {
	scope      appshared.TransactionScope
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	scope appshared.TransactionScope,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		scope:      scope,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Login authenticates an account and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("username", input.Username))

	account, err := s.scope.Repositories().Accounts().FindByUsername(ctx, input.Username)
	if err != nil {
		if shared.HasCode(err, shared.CodeNotFound) {
			s.logger.Warn("Account not found during login", zap.String("username", input.Username))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !account.Active {
		s.logger.Warn("Login attempt for disabled account", zap.String("username", input.Username))
		return nil, shared.NewUnauthenticatedError("Account has been disabled")
	}
	if !account.CheckPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", input.Username))
		return nil, errInvalidCredentials
	}

	tokens, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	// A lost race on the login timestamp must not fail the login
	err = appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		current, err := repos.Accounts().FindByUsername(ctx, account.Username)
		if err != nil {
			return err
		}
		current.RecordLogin()
		account = current
		return repos.Accounts().Update(ctx, current)
	})
	if err != nil {
		s.logger.Error("Failed to record login", zap.String("username", input.Username), zap.Error(err))
	}

	s.logger.Info("Account logged in",
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)))

	return &LoginResult{TokenResult: *tokens, Account: ToAccountInfo(account)}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The role is re-read
// from the account so role changes apply at the next refresh.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewUnauthenticatedError("Refresh token has expired")
		}
		return nil, shared.NewUnauthenticatedError("Invalid refresh token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	account, err := s.scope.Repositories().Accounts().FindByUsername(ctx, claims.Username)
	if err != nil {
		if shared.HasCode(err, shared.CodeNotFound) {
			return nil, shared.NewUnauthenticatedError("Account no longer exists")
		}
		return nil, err
	}
	if !account.Active {
		return nil, shared.NewUnauthenticatedError("Account has been disabled")
	}

	tokens, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	// Refresh tokens are single use
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		s.logger.Warn("Failed to revoke used refresh token", zap.Error(err))
	}

	s.logger.Info("Token refreshed", zap.String("username", account.Username))
	return tokens, nil
}

// Logout revokes the access token and, when presented, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessTokenID != "" {
		ttl := time.Until(input.AccessExpiresAt)
		if ttl <= 0 {
			ttl = s.jwtService.AccessTokenExpiration()
		}
		if err := s.blacklist.AddToBlacklist(ctx, input.AccessTokenID, ttl); err != nil {
			return err
		}
	}
	if input.RefreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
		if err == nil {
			if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
				return err
			}
		}
	}
	s.logger.Info("Logged out", zap.String("token_id", input.AccessTokenID))
	return nil
}

// GetCurrentAccount returns the caller's own account
func (s *AuthService) GetCurrentAccount(ctx context.Context, principal identity.Principal) (*AccountInfo, error) {
	if !principal.IsAuthenticated() {
		return nil, shared.ErrUnauthenticated
	}
	account, err := s.scope.Repositories().Accounts().FindByUsername(ctx, principal.Username)
	if err != nil {
		return nil, err
	}
	info := ToAccountInfo(account)
	return &info, nil
}

// ValidateAccessToken resolves the caller of a request. Revoked tokens and
// tokens issued before a user-wide invalidation are rejected.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewUnauthenticatedError("Token has expired")
		}
		return nil, shared.NewUnauthenticatedError("Invalid token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return shared.NewUnauthenticatedError("Token has been revoked")
	}
	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.Username, claims.IssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return shared.NewUnauthenticatedError("Token has been revoked")
	}
	return nil
}

func (s *AuthService) issue(account *identity.Account) (*TokenResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(account.Username, string(account.Role))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}
	return &TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}
