package identity

import "github.com/propflow/backend/internal/domain/shared"

// Principal is the resolved caller of an operation
type Principal struct {
	Username string
	Role     Role
}

// NewPrincipal creates a principal for an authenticated caller
func NewPrincipal(username string, role Role) Principal {
	return Principal{Username: username, Role: role}
}

// SystemPrincipal is used by background workers acting on behalf of the platform
func SystemPrincipal(name string) Principal {
	return Principal{Username: name, Role: RoleAdmin}
}

// IsAuthenticated reports whether the principal carries an identity
func (p Principal) IsAuthenticated() bool {
	return p.Username != "" && p.Role != ""
}

// Can reports whether the principal holds the capability
func (p Principal) Can(c Capability) bool {
	return p.IsAuthenticated() && p.Role.Has(c)
}

// IsAdmin reports whether the principal is an ADMIN
func (p Principal) IsAdmin() bool {
	return p.Can(CapabilityAdmin)
}

// IsManagement reports whether the principal is ADMIN or MANAGER
func (p Principal) IsManagement() bool {
	return p.Can(CapabilityManagement)
}

// IsCompliance reports whether the principal is ADMIN or COMPLIANCE
func (p Principal) IsCompliance() bool {
	return p.Can(CapabilityCompliance)
}

// IsOwnerOrAdmin reports whether the principal owns the record or is an ADMIN
func (p Principal) IsOwnerOrAdmin(owner string) bool {
	return p.IsAdmin() || (p.IsAuthenticated() && p.Username == owner)
}

// CanView reports whether the principal may read a realtor-scoped record.
// Cross-realtor reads are reserved to management.
func (p Principal) CanView(owner string) bool {
	return p.IsManagement() || (p.IsAuthenticated() && p.Username == owner)
}

// Require returns FORBIDDEN (or UNAUTHENTICATED) when the capability is missing
func (p Principal) Require(c Capability) error {
	if !p.IsAuthenticated() {
		return shared.ErrUnauthenticated
	}
	if !p.Role.Has(c) {
		return shared.NewForbiddenError(c.DenialMessage())
	}
	return nil
}

// RequireOwnerOrAdmin returns FORBIDDEN unless the principal owns the record or is an ADMIN
func (p Principal) RequireOwnerOrAdmin(owner string) error {
	if !p.IsAuthenticated() {
		return shared.ErrUnauthenticated
	}
	if !p.IsOwnerOrAdmin(owner) {
		return shared.NewForbiddenError("Not authorized to access this record")
	}
	return nil
}

// RequireViewer returns FORBIDDEN unless the principal may read the owner's record
func (p Principal) RequireViewer(owner string) error {
	if !p.IsAuthenticated() {
		return shared.ErrUnauthenticated
	}
	if !p.CanView(owner) {
		return shared.NewForbiddenError("Not authorized to access this record")
	}
	return nil
}
