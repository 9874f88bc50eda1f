// Package roles defines the fixed role enumeration and the typed role set
// every access decision in the system is computed from.
package roles

import "fmt"

type Role string

const (
	// RoleStaff is the base role; every account carries it.
	RoleStaff Role = "staff"
	// RoleManager unlocks project tracking.
	RoleManager Role = "manager"
	// RoleSupervisor is the lower of the two privileged roles: ownership
	// bypass and billing access, but no destructive operations.
	RoleSupervisor Role = "supervisor"
	// RoleAdmin may additionally manage users and delete resources.
	RoleAdmin Role = "admin"
)

// All lists every valid role, lowest privilege first.
var All = []Role{RoleStaff, RoleManager, RoleSupervisor, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleManager, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// Set is an unordered collection of roles held by a principal.
type Set []Role

// Parse converts raw role names into a Set, collecting unknown entries.
// The returned invalid slice is empty when every name is a known role.
func Parse(names []string) (Set, []string) {
	set := make(Set, 0, len(names))
	var invalid []string
	for _, name := range names {
		r := Role(name)
		if !r.Valid() {
			invalid = append(invalid, name)
			continue
		}
		if !set.Has(r) {
			set = append(set, r)
		}
	}
	return set, invalid
}

func (s Set) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the set bypasses ownership checks.
func (s Set) IsPrivileged() bool {
	return s.Has(RoleSupervisor) || s.Has(RoleAdmin)
}

func (s Set) IsAdmin() bool {
	return s.Has(RoleAdmin)
}

// Validate enforces the structural invariants of a stored role set: it
// must be non-empty, contain only known roles, and include the base role.
func (s Set) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("role set must not be empty")
	}
	for _, r := range s {
		if !r.Valid() {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	if !s.Has(RoleStaff) {
		return fmt.Errorf("role set must include the base role %q", RoleStaff)
	}
	return nil
}

// Strings returns the set as plain strings for storage and claims.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Default is the role set assigned on self-registration.
func Default() Set {
	return Set{RoleStaff}
}
