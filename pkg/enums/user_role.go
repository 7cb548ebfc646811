package enums

import (
	"fmt"
	"strings"
)

// UserRole is the role carried by access tokens and the /api/me profile.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleUser    UserRole = "user"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRoleUser,
}

func (r UserRole) String() string { return string(r) }

// IsValid reports whether the value matches a known role.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanApprove reports whether the role may approve or reject quotations.
func (r UserRole) CanApprove() bool {
	return r == UserRoleAdmin || r == UserRoleManager
}

// ParseUserRole converts the raw string to UserRole, ignoring case.
func ParseUserRole(value string) (UserRole, error) {
	normalized := UserRole(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
