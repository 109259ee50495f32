package auth

import (
	"strings"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

// Role is the closed set of account roles. The zero value is not a role.
type Role string

const (
	RoleDonor      Role = "donor"
	RoleHospital   Role = "hospital"
	RoleDoctor     Role = "doctor"
	RoleStaff      Role = "bloodbank_staff"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var allRoles = []Role{RoleDonor, RoleHospital, RoleDoctor, RoleStaff, RoleSupervisor, RoleAdmin}

// Roles returns every role in declaration order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	return r.In(allRoles...)
}

// In reports whether r is a member of set.
func (r Role) In(set ...Role) bool {
	for _, s := range set {
		if r == s {
			return true
		}
	}
	return false
}

// SelfAssignable reports whether a user may pick r when registering.
// Staff, supervisor and admin accounts are provisioned by an admin.
func (r Role) SelfAssignable() bool {
	return r.In(RoleDonor, RoleHospital, RoleDoctor)
}

// ParseRole validates s against the closed role set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", apperr.BadRequest("Invalid role: %s", s)
	}
	return r, nil
}
