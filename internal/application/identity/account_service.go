package identity

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/config"
)

// BootstrapCounter is claimed once by the first-ever account
const BootstrapCounter = "bootstrap"

// AccountService manages login accounts
type AccountService struct {
	scope  appshared.TransactionScope
	config config.AuthConfig
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(scope appshared.TransactionScope, cfg config.AuthConfig, logger *zap.Logger) *AccountService {
	return &AccountService{scope: scope, config: cfg, logger: logger}
}

// Bootstrap creates the first ADMIN account with the one-time bootstrap
// token. Once any account exists the route is closed for good.
func (s *AccountService) Bootstrap(ctx context.Context, token string, input CreateAccountInput) (*AccountInfo, error) {
	if token == "" {
		return nil, shared.NewUnauthenticatedError("Missing bootstrap token")
	}
	if s.config.BootstrapToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(s.config.BootstrapToken)) != 1 {
		s.logger.Warn("Bootstrap attempted with invalid token")
		return nil, shared.NewForbiddenError("Invalid bootstrap token")
	}

	var created *identity.Account
	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		count, err := repos.Accounts().Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewConflictError("Bootstrap already completed")
		}
		claim, err := repos.Counters().Next(ctx, BootstrapCounter)
		if err != nil {
			return err
		}
		if claim != 1 {
			return shared.NewConflictError("Bootstrap already completed")
		}
		account, err := identity.NewAccount(input.Username, input.Password, identity.RoleAdmin, s.config.MinPasswordLength, "bootstrap")
		if err != nil {
			return err
		}
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		created = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bootstrap admin created", zap.String("username", created.Username))
	info := ToAccountInfo(created)
	return &info, nil
}

// CreateAccount creates an account of any role. Admin only.
func (s *AccountService) CreateAccount(ctx context.Context, principal identity.Principal, input CreateAccountInput) (*AccountInfo, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	role, err := identity.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}
	account, err := identity.NewAccount(input.Username, input.Password, role, s.config.MinPasswordLength, principal.Username)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		if err := repos.Accounts().Create(ctx, account); err != nil {
			if shared.HasCode(err, shared.CodeConflict) {
				return shared.NewConflictError("Account " + account.Username + " already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)),
		zap.String("created_by", principal.Username))
	info := ToAccountInfo(account)
	return &info, nil
}

// ListAccounts returns every account. Admin only.
func (s *AccountService) ListAccounts(ctx context.Context, principal identity.Principal) ([]AccountInfo, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	accounts, err := s.scope.Repositories().Accounts().List(ctx)
	if err != nil {
		return nil, err
	}
	return ToAccountInfos(accounts), nil
}

// ListAgents returns the accounts that can hold mandates. Admin only.
func (s *AccountService) ListAgents(ctx context.Context, principal identity.Principal) ([]AccountInfo, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	accounts, err := s.scope.Repositories().Accounts().List(ctx)
	if err != nil {
		return nil, err
	}
	agents := make([]*identity.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Role == identity.RoleAgent && a.Active {
			agents = append(agents, a)
		}
	}
	return ToAccountInfos(agents), nil
}
