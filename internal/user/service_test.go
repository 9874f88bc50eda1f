package user_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/roles"
	"github.com/opsledger/opsledger/internal/user"
)

type mockUserRepo struct {
	users  map[int64]*user.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*user.User), nextID: 1}
}

func (m *mockUserRepo) checkUnique(email, username string, excludeID int64) error {
	for _, u := range m.users {
		if u.ID == excludeID {
			continue
		}
		if u.Email == email {
			return internal.NewConflictError("email is already in use", internal.ErrCodeEmailTaken)
		}
		if u.Username == username {
			return internal.NewConflictError("username is already in use", internal.ErrCodeUsernameTaken)
		}
	}
	return nil
}

func (m *mockUserRepo) Create(u *user.User) error {
	if err := m.checkUnique(u.Email, u.Username, 0); err != nil {
		return err
	}
	u.ID = m.nextID
	m.nextID++
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockUserRepo) List(limit, offset int) ([]*user.User, int64, error) {
	var all []*user.User
	for id := int64(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			cp := *u
			all = append(all, &cp)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Update(u *user.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return internal.ErrUserNotFound
	}
	if err := m.checkUnique(u.Email, u.Username, u.ID); err != nil {
		return err
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(id int64, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return internal.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func principalWith(id int64, names ...string) *auth.Principal {
	set, _ := roles.Parse(names)
	return &auth.Principal{ID: id, Email: "p@example.com", Roles: set, Approved: true}
}

var _ = Describe("UserService", func() {
	var (
		repo    *mockUserRepo
		service *user.Service

		admin *auth.Principal
		staff *auth.Principal
	)

	BeforeEach(func() {
		repo = newMockUserRepo()
		service = user.NewService(repo, 4, slog.Default())

		admin = principalWith(1, "staff", "admin")
		staff = principalWith(2, "staff")

		_, err := service.Register(user.RegisterDTO{
			Email:    "root@example.com",
			Username: "root",
			Name:     "Root Admin",
			Password: "rootpass",
		})
		Expect(err).ToNot(HaveOccurred())

		_, err = service.Register(user.RegisterDTO{
			Email:    "sam@example.com",
			Username: "sam",
			Name:     "Sam Staff",
			Password: "sampass",
		})
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Register", func() {
		It("should create an unapproved account with the base role only", func() {
			u, err := service.Register(user.RegisterDTO{
				Email:    "nina@example.com",
				Username: "nina",
				Name:     "Nina New",
				Password: "secret6",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Approved).To(BeFalse())
			Expect(u.Roles).To(ConsistOf("staff"))
			Expect(u.PasswordHash).ToNot(Equal("secret6"))
		})

		It("should reject a duplicate email with a conflict", func() {
			_, err := service.Register(user.RegisterDTO{
				Email:    "sam@example.com",
				Username: "other",
				Name:     "Other",
				Password: "secret6",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmailTaken))
		})

		It("should reject a duplicate username with a conflict", func() {
			_, err := service.Register(user.RegisterDTO{
				Email:    "fresh@example.com",
				Username: "sam",
				Name:     "Other",
				Password: "secret6",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUsernameTaken))
		})

		It("should reject a short password", func() {
			_, err := service.Register(user.RegisterDTO{
				Email:    "short@example.com",
				Username: "short",
				Name:     "Short",
				Password: "12345",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeWeakPassword))
		})
	})

	Describe("Create", func() {
		It("should let an admin assign roles and approval directly", func() {
			u, err := service.Create(admin, user.CreateUserDTO{
				Email:    "mgr@example.com",
				Username: "mgr",
				Name:     "Mandy Manager",
				Password: "secret6",
				Roles:    []string{"staff", "manager"},
				Approved: true,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Approved).To(BeTrue())
			Expect(u.Roles).To(ConsistOf("staff", "manager"))
		})

		It("should refuse a non-admin caller", func() {
			_, err := service.Create(staff, user.CreateUserDTO{
				Email:    "x@example.com",
				Username: "x",
				Name:     "X",
				Password: "secret6",
				Roles:    []string{"staff"},
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))
		})

		It("should name invalid roles in the validation error", func() {
			_, err := service.Create(admin, user.CreateUserDTO{
				Email:    "x@example.com",
				Username: "x",
				Name:     "X",
				Password: "secret6",
				Roles:    []string{"staff", "wizard"},
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRole))
			Expect(appErr.Message).To(ContainSubstring("wizard"))
		})

		It("should reject a role set without the base role", func() {
			_, err := service.Create(admin, user.CreateUserDTO{
				Email:    "x@example.com",
				Username: "x",
				Name:     "X",
				Password: "secret6",
				Roles:    []string{"manager"},
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRole))
		})
	})

	Describe("List", func() {
		It("should return the page and the total count", func() {
			users, total, err := service.List(admin, 1, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			Expect(users).To(HaveLen(1))
		})

		It("should refuse a non-admin caller", func() {
			_, _, err := service.List(staff, 20, 0)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))
		})
	})

	Describe("Get", func() {
		It("should let a user read their own profile", func() {
			u, err := service.Get(staff, 2)

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Email).To(Equal("sam@example.com"))
		})

		It("should refuse reading another user's profile without admin", func() {
			_, err := service.Get(staff, 1)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotOwner))
		})

		It("should let an admin read anyone", func() {
			u, err := service.Get(admin, 2)

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Username).To(Equal("sam"))
		})
	})

	Describe("Update", func() {
		It("should apply a self profile update of allowed fields", func() {
			name := "Sam Renamed"
			u, err := service.Update(staff, 2, user.UpdateUserDTO{Name: &name})

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Name).To(Equal("Sam Renamed"))
		})

		It("should refuse a non-admin submitting roles", func() {
			rs := []string{"staff", "admin"}
			_, err := service.Update(staff, 2, user.UpdateUserDTO{Roles: &rs})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFieldNotAllowed))
		})

		It("should refuse a non-admin submitting approved", func() {
			approved := true
			_, err := service.Update(staff, 2, user.UpdateUserDTO{Approved: &approved})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFieldNotAllowed))
		})

		It("should let an admin change roles and approval", func() {
			rs := []string{"staff", "supervisor"}
			approved := true
			u, err := service.Update(admin, 2, user.UpdateUserDTO{Roles: &rs, Approved: &approved})

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Roles).To(ConsistOf("staff", "supervisor"))
			Expect(u.Approved).To(BeTrue())
		})

		It("should reject an email change to a taken address", func() {
			email := "root@example.com"
			_, err := service.Update(staff, 2, user.UpdateUserDTO{Email: &email})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmailTaken))
		})
	})

	Describe("Approve", func() {
		It("should flip the approval flag", func() {
			u, err := service.Approve(admin, 2)

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Approved).To(BeTrue())
		})

		It("should conflict when the user is already approved", func() {
			_, err := service.Approve(admin, 2)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(admin, 2)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUserAlreadyApproved))
		})

		It("should refuse a non-admin caller", func() {
			_, err := service.Approve(staff, 1)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))
		})
	})

	Describe("ResetRoles", func() {
		It("should strip an account back to the base role", func() {
			rs := []string{"staff", "manager", "supervisor"}
			_, err := service.Update(admin, 2, user.UpdateUserDTO{Roles: &rs})
			Expect(err).ToNot(HaveOccurred())

			u, err := service.ResetRoles(admin, 2)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.Roles).To(ConsistOf("staff"))
		})
	})

	Describe("ChangePassword", func() {
		It("should replace the credential when the current one matches", func() {
			err := service.ChangePassword(staff, user.ChangePasswordDTO{
				CurrentPassword: "sampass",
				NewPassword:     "brandnew",
			})
			Expect(err).ToNot(HaveOccurred())

			creds, err := service.GetCredentials("sam@example.com")
			Expect(err).ToNot(HaveOccurred())
			Expect(auth.VerifyPassword(creds.PasswordHash, "brandnew")).To(Succeed())
		})

		It("should reject a wrong current password", func() {
			err := service.ChangePassword(staff, user.ChangePasswordDTO{
				CurrentPassword: "nope",
				NewPassword:     "brandnew",
			})

			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})
	})

	Describe("ResetPassword", func() {
		It("should let an admin set a new credential without the current one", func() {
			err := service.ResetPassword(admin, 2, user.ResetPasswordDTO{NewPassword: "adminset"})
			Expect(err).ToNot(HaveOccurred())

			creds, err := service.GetCredentials("sam@example.com")
			Expect(err).ToNot(HaveOccurred())
			Expect(auth.VerifyPassword(creds.PasswordHash, "adminset")).To(Succeed())
		})

		It("should refuse a non-admin caller", func() {
			err := service.ResetPassword(staff, 1, user.ResetPasswordDTO{NewPassword: "adminset"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))
		})
	})
})
