package identity

import (
	"strings"

	"github.com/propflow/backend/internal/domain/shared"
)

// Role is the single role carried by an account
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleCompliance Role = "compliance"
	RoleAgent      Role = "agent"
)

// AllRoles lists every assignable role
var AllRoles = []Role{RoleAdmin, RoleManager, RoleCompliance, RoleAgent}

// ParseRole converts user input into a Role, case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, nil
		}
	}
	return "", shared.NewValidationError("Unknown role: " + s)
}

// Capability is a named permission a route can require
type Capability string

const (
	// CapabilityAuthenticated is held by every signed-in account
	CapabilityAuthenticated Capability = "authenticated"
	// CapabilityAdmin is held by ADMIN only
	CapabilityAdmin Capability = "admin"
	// CapabilityManagement is held by ADMIN and MANAGER
	CapabilityManagement Capability = "management"
	// CapabilityCompliance is held by ADMIN and COMPLIANCE
	CapabilityCompliance Capability = "compliance"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin:      {CapabilityAuthenticated, CapabilityAdmin, CapabilityManagement, CapabilityCompliance},
	RoleManager:    {CapabilityAuthenticated, CapabilityManagement},
	RoleCompliance: {CapabilityAuthenticated, CapabilityCompliance},
	RoleAgent:      {CapabilityAuthenticated},
}

// Has reports whether the role grants the capability
func (r Role) Has(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

var capabilityDenials = map[Capability]string{
	CapabilityAuthenticated: "Authentication required",
	CapabilityAdmin:         "Admin privileges required",
	CapabilityManagement:    "Management privileges required",
	CapabilityCompliance:    "Compliance privileges required",
}

// DenialMessage is the human-readable reason returned when a capability is missing
func (c Capability) DenialMessage() string {
	if msg, ok := capabilityDenials[c]; ok {
		return msg
	}
	return "Insufficient privileges"
}
