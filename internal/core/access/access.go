// Package access is the single place where resource access rules are
// declared. Every predicate is a pure function of the caller's role set
// and, where ownership matters, the owner and caller ids.
package access

import "github.com/opsledger/opsledger/internal/core/roles"

// Reason categorizes a denial. Only two categories exist: the caller
// lacks a role, or the caller is not the resource owner.
type Reason string

const (
	ReasonMissingRole Reason = "missing_role"
	ReasonNotOwner    Reason = "not_owner"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// CanAccessProjects gates the project collection: create, list and any
// instance operation start here. Staff-only accounts are shut out.
func CanAccessProjects(rs roles.Set) Decision {
	if rs.Has(roles.RoleManager) || rs.IsPrivileged() {
		return Allow()
	}
	return Deny(ReasonMissingRole)
}

// CanAccessProject gates a single project instance. Privileged roles
// bypass ownership; everyone else must be the creator.
func CanAccessProject(rs roles.Set, ownerID, callerID int64) Decision {
	if d := CanAccessProjects(rs); !d.Allowed {
		return d
	}
	if rs.IsPrivileged() || ownerID == callerID {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// CanDeleteProject is admin-only; deletion is destructive.
func CanDeleteProject(rs roles.Set) Decision {
	if rs.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonMissingRole)
}

// CanAccessBilling gates the whole invoice resource. Supervisor and
// admin are equivalent here.
func CanAccessBilling(rs roles.Set) Decision {
	if rs.IsPrivileged() {
		return Allow()
	}
	return Deny(ReasonMissingRole)
}

// CanDeleteInvoice is admin-only, like every destructive action.
func CanDeleteInvoice(rs roles.Set) Decision {
	if rs.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonMissingRole)
}

// CanManageUsers gates listing, creation, approval and role management.
func CanManageUsers(rs roles.Set) Decision {
	if rs.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonMissingRole)
}

// CanAccessProfile allows any authenticated caller to act on their own
// profile; admins may act on anyone's.
func CanAccessProfile(rs roles.Set, callerID, targetID int64) Decision {
	if callerID == targetID || rs.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// UpdatableProfileFields returns the field allowlist for a profile
// update. Admins may additionally change roles and approval.
func UpdatableProfileFields(rs roles.Set) []string {
	if rs.IsAdmin() {
		return []string{"name", "email", "username", "roles", "approved"}
	}
	return []string{"name", "email", "username"}
}

// Time entries carry no predicate on purpose: every operation is scoped
// to the caller's own id and no cross-user path exists in this design.
