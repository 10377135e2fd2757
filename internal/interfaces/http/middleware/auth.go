package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/auth"
	"github.com/propflow/backend/internal/infrastructure/logger"
	"github.com/propflow/backend/internal/interfaces/http/dto"
)

// Context keys set by Authenticate
const (
	PrincipalKey  = "principal"
	ClaimsKey     = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator resolves an access token, rejecting revoked ones
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// Authenticate resolves the bearer token into a principal. Requests without
// a valid token are rejected with UNAUTHENTICATED.
func Authenticate(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithDomainError(c, shared.NewUnauthenticatedError("Missing authorization header"))
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortWithDomainError(c, shared.NewUnauthenticatedError("Invalid authorization header format"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortWithDomainError(c, shared.NewUnauthenticatedError("Missing token"))
			return
		}

		claims, err := validator.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if !shared.HasCode(err, shared.CodeUnauthenticated) {
				log.Error("Token validation failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			} else {
				log.Debug("Rejected credential", zap.Error(err), zap.String("path", c.Request.URL.Path))
			}
			abortWithDomainError(c, err)
			return
		}
		role, err := identity.ParseRole(claims.Role)
		if err != nil {
			abortWithDomainError(c, shared.NewUnauthenticatedError("Invalid token"))
			return
		}

		principal := identity.NewPrincipal(claims.Username, role)
		c.Set(ClaimsKey, claims)
		c.Set(PrincipalKey, principal)
		c.Set(logger.GinUsernameKey, principal.Username)

		ctx, _ := logger.WithUsername(c.Request.Context(), logger.FromContext(c.Request.Context()), principal.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireCapability rejects callers lacking the capability. It must run after Authenticate.
func RequireCapability(capability identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := GetPrincipal(c).Require(capability); err != nil {
			abortWithDomainError(c, err)
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the resolved caller, or the zero principal for anonymous requests
func GetPrincipal(c *gin.Context) identity.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(identity.Principal); ok {
			return p
		}
	}
	return identity.Principal{}
}

// GetJWTClaims returns the validated claims of the request, if any
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortWithDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		abortWithError(c, domainErr.Code, domainErr.Message)
		return
	}
	abortWithError(c, dto.ErrCodeInternal, "An unexpected error occurred")
}
