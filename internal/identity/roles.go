package identity

import (
	"fmt"
	"strings"
)

// Role is the permission tier carried by an identity and its tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	RoleClient   Role = "CLIENT"
)

// Roles lists every valid role, in privilege order.
var Roles = []Role{RoleAdmin, RoleEmployee, RoleClient}

// ParseRole maps a wire string onto a Role. Unknown values are rejected
// rather than defaulted: a silently downgraded role is an authorization bug,
// not a convenience.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleClient:
		return RoleClient, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
