package auth

import "strings"

// Role represents a normalized caller role string extracted from the token
// registry.
type Role string

const (
	RoleUnknown Role = ""
	RoleViewer  Role = "viewer"
	RolePlanner Role = "planner"
	RoleAdmin   Role = "admin"
)

// NormalizeRole converts arbitrary role strings to the closest supported Role constant.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RolePlanner):
		return RolePlanner
	case string(RoleViewer):
		return RoleViewer
	default:
		return RoleUnknown
	}
}

// Claims captures the minimum information propagated through request contexts after authentication.
type Claims struct {
	Subject string
	Role    Role
}

// HasRole checks whether the claims role matches one of the expected roles.
func (c *Claims) HasRole(expected Role) bool {
	if c == nil {
		return false
	}

	return c.Role == expected
}

// HasAnyRole reports true if the claims role matches any of the provided roles.
func (c *Claims) HasAnyRole(expected ...Role) bool {
	if c == nil {
		return false
	}

	role := c.Role
	for _, r := range expected {
		if role == r {
			return true
		}
	}

	return false
}

// CanWrite reports whether the caller may create recommendations. Viewers
// are read-only.
func (c *Claims) CanWrite() bool {
	return c.HasAnyRole(RolePlanner, RoleAdmin)
}
