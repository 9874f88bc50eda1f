package access_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsledger/opsledger/internal/core/access"
	"github.com/opsledger/opsledger/internal/core/roles"
)

var (
	staffOnly  = roles.Set{roles.RoleStaff}
	manager    = roles.Set{roles.RoleStaff, roles.RoleManager}
	supervisor = roles.Set{roles.RoleStaff, roles.RoleSupervisor}
	admin      = roles.Set{roles.RoleStaff, roles.RoleAdmin}
)

var _ = Describe("Access decisions", func() {
	Describe("CanAccessProjects", func() {
		It("should deny staff-only accounts with a role reason", func() {
			d := access.CanAccessProjects(staffOnly)

			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(access.ReasonMissingRole))
		})

		It("should allow manager, supervisor and admin", func() {
			Expect(access.CanAccessProjects(manager).Allowed).To(BeTrue())
			Expect(access.CanAccessProjects(supervisor).Allowed).To(BeTrue())
			Expect(access.CanAccessProjects(admin).Allowed).To(BeTrue())
		})
	})

	Describe("CanAccessProject", func() {
		It("should allow the owner", func() {
			Expect(access.CanAccessProject(manager, 7, 7).Allowed).To(BeTrue())
		})

		It("should deny a non-owner manager with the ownership reason", func() {
			d := access.CanAccessProject(manager, 7, 8)

			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(access.ReasonNotOwner))
		})

		It("should let privileged roles bypass ownership", func() {
			Expect(access.CanAccessProject(supervisor, 7, 8).Allowed).To(BeTrue())
			Expect(access.CanAccessProject(admin, 7, 8).Allowed).To(BeTrue())
		})

		It("should keep the role reason for staff-only accounts", func() {
			d := access.CanAccessProject(staffOnly, 7, 7)

			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(access.ReasonMissingRole))
		})
	})

	Describe("destructive operations", func() {
		It("should restrict project deletion to admin", func() {
			Expect(access.CanDeleteProject(supervisor).Allowed).To(BeFalse())
			Expect(access.CanDeleteProject(admin).Allowed).To(BeTrue())
		})

		It("should restrict invoice deletion to admin", func() {
			Expect(access.CanDeleteInvoice(supervisor).Allowed).To(BeFalse())
			Expect(access.CanDeleteInvoice(admin).Allowed).To(BeTrue())
		})
	})

	Describe("CanAccessBilling", func() {
		It("should treat supervisor and admin as equivalent", func() {
			Expect(access.CanAccessBilling(supervisor).Allowed).To(BeTrue())
			Expect(access.CanAccessBilling(admin).Allowed).To(BeTrue())
		})

		It("should block managers entirely", func() {
			d := access.CanAccessBilling(manager)

			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(access.ReasonMissingRole))
		})
	})

	Describe("user management and profiles", func() {
		It("should restrict user management to admin", func() {
			Expect(access.CanManageUsers(supervisor).Allowed).To(BeFalse())
			Expect(access.CanManageUsers(admin).Allowed).To(BeTrue())
		})

		It("should allow anyone to act on their own profile", func() {
			Expect(access.CanAccessProfile(staffOnly, 3, 3).Allowed).To(BeTrue())
		})

		It("should deny non-admins acting on someone else's profile", func() {
			d := access.CanAccessProfile(supervisor, 3, 4)

			Expect(d.Allowed).To(BeFalse())
			Expect(d.Reason).To(Equal(access.ReasonNotOwner))
		})

		It("should widen the update allowlist for admins only", func() {
			Expect(access.UpdatableProfileFields(staffOnly)).To(ConsistOf("name", "email", "username"))
			Expect(access.UpdatableProfileFields(admin)).To(ConsistOf("name", "email", "username", "roles", "approved"))
		})
	})
})
