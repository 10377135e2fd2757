package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes
var PasswordCost = 12

// DefaultMinPasswordLength applies when no policy is configured
const DefaultMinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.@]+$`)

// Account is a login identity with exactly one role
type Account struct {
	shared.BaseAggregateRoot
	Username     string     `json:"username" validate:"required,max=100"`
	Role         Role       `json:"role" validate:"required,oneof=admin manager compliance agent"`
	PasswordHash string     `json:"password_hash" validate:"required"`
	Active       bool       `json:"active"`
	CreatedBy    string     `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// NewAccount validates the input and hashes the password
func NewAccount(username, password string, role Role, minPasswordLength int, createdBy string) (*Account, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password, minPasswordLength); err != nil {
		return nil, err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &Account{
		Username:     username,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// RecordLogin stamps the last successful login
func (a *Account) RecordLogin() {
	now := time.Now().UTC()
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

// Principal returns the caller identity for this account
func (a *Account) Principal() Principal {
	return NewPrincipal(a.Username, a.Role)
}

func validateUsername(username string) error {
	if username == "" {
		return shared.NewValidationError("Username cannot be empty")
	}
	if len(username) > 100 {
		return shared.NewValidationError("Username cannot exceed 100 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewValidationError("Username can only contain letters, numbers, underscores, hyphens, dots and @")
	}
	return nil
}

func validatePassword(password string, minLength int) error {
	if strings.TrimSpace(password) == "" {
		return shared.NewValidationError("Password does not meet requirements")
	}
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if len(password) < minLength {
		return shared.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minLength))
	}
	if len(password) > 128 {
		return shared.NewValidationError("Password cannot exceed 128 characters")
	}
	return nil
}

// AccountRepository persists accounts keyed by username
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	FindByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Count(ctx context.Context) (int64, error)
}
