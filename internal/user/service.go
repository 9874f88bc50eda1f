package user

import (
	"fmt"
	"log/slog"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/access"
	"github.com/opsledger/opsledger/internal/core/roles"
)

// Repository defines the data access methods for users. Create and
// Update run their uniqueness checks transactionally with the write.
type Repository interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	List(limit, offset int) ([]*User, int64, error)
	Update(u *User) error
	UpdatePassword(id int64, passwordHash string) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// GetCredentials implements auth.CredentialStore on top of the user
// repository so login never needs its own query path.
func (s *Service) GetCredentials(email string) (*auth.StoredCredentials, error) {
	u, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	return &auth.StoredCredentials{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Approved:     u.Approved,
	}, nil
}

// Register creates a self-registered account: unapproved, base role only.
func (s *Service) Register(dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        dto.Email,
		Username:     dto.Username,
		Name:         dto.Name,
		PasswordHash: hash,
		Roles:        roles.Default().Strings(),
		Approved:     false,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to register user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, nil
}

// Create is the admin path: roles and approval are assignable.
func (s *Service) Create(p *auth.Principal, dto CreateUserDTO) (*User, error) {
	if d := access.CanManageUsers(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	set, err := parseRoles(dto.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        dto.Email,
		Username:     dto.Username,
		Name:         dto.Name,
		PasswordHash: hash,
		Roles:        set.Strings(),
		Approved:     dto.Approved,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "created_by", p.ID)
	return u, nil
}

// List returns a page of users plus the total count. Admin only.
func (s *Service) List(p *auth.Principal, limit, offset int) ([]*User, int64, error) {
	if d := access.CanManageUsers(p.Roles); !d.Allowed {
		return nil, 0, forbidden(d)
	}

	users, total, err := s.repo.List(limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}
	return users, total, nil
}

// Get returns a profile, readable by its owner or an admin.
func (s *Service) Get(p *auth.Principal, id int64) (*User, error) {
	if d := access.CanAccessProfile(p.Roles, p.ID, id); !d.Allowed {
		return nil, forbidden(d)
	}
	return s.repo.GetByID(id)
}

// Update applies a partial profile update, enforcing the caller's field
// allowlist: non-admins may change name, email and username on their own
// profile; only admins may touch roles and approval.
func (s *Service) Update(p *auth.Principal, id int64, dto UpdateUserDTO) (*User, error) {
	if d := access.CanAccessProfile(p.Roles, p.ID, id); !d.Allowed {
		return nil, forbidden(d)
	}

	allowed := access.UpdatableProfileFields(p.Roles)
	for _, field := range dto.SubmittedFields() {
		if !contains(allowed, field) {
			return nil, internal.NewForbiddenError(
				fmt.Sprintf("field %q may not be changed by this caller", field),
				internal.ErrCodeFieldNotAllowed)
		}
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if dto.Email != nil {
		if *dto.Email == "" {
			return nil, internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
		}
		u.Email = *dto.Email
	}
	if dto.Username != nil {
		if *dto.Username == "" {
			return nil, internal.NewValidationFieldError("username", "username is required", internal.ErrCodeValidationFailed)
		}
		u.Username = *dto.Username
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Roles != nil {
		set, err := parseRoles(*dto.Roles)
		if err != nil {
			return nil, err
		}
		u.Roles = set.Strings()
	}
	if dto.Approved != nil {
		u.Approved = *dto.Approved
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", p.ID)
	return u, nil
}

// Approve flips the approval flag. Approving twice is a business-state
// conflict, not a no-op.
func (s *Service) Approve(p *auth.Principal, id int64) (*User, error) {
	if d := access.CanManageUsers(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if u.Approved {
		return nil, internal.NewConflictError("user is already approved", internal.ErrCodeUserAlreadyApproved)
	}

	u.Approved = true
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to approve user", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("user approved", "user_id", id, "approved_by", p.ID)
	return u, nil
}

// ResetRoles strips an account back to the base role. Admin only.
func (s *Service) ResetRoles(p *auth.Principal, id int64) (*User, error) {
	if d := access.CanManageUsers(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	u.Roles = roles.Default().Strings()
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to reset roles", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("roles reset", "user_id", id, "reset_by", p.ID)
	return u, nil
}

// ChangePassword replaces the caller's own credential after verifying
// the current one.
func (s *Service) ChangePassword(p *auth.Principal, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(p.ID)
	if err != nil {
		return err
	}

	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	if err := s.repo.UpdatePassword(p.ID, hash); err != nil {
		s.logger.Error("failed to change password", "error", err, "user_id", p.ID)
		return err
	}

	s.logger.Info("password changed", "user_id", p.ID)
	return nil
}

// ResetPassword sets a new credential without the current one. Admin only.
func (s *Service) ResetPassword(p *auth.Principal, id int64, dto ResetPasswordDTO) error {
	if d := access.CanManageUsers(p.Roles); !d.Allowed {
		return forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return err
	}

	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	if err := s.repo.UpdatePassword(id, hash); err != nil {
		s.logger.Error("failed to reset password", "error", err, "user_id", id)
		return err
	}

	s.logger.Info("password reset", "user_id", id, "reset_by", p.ID)
	return nil
}

// parseRoles validates a submitted role list, naming each invalid entry.
func parseRoles(names []string) (roles.Set, error) {
	set, invalid := roles.Parse(names)
	if len(invalid) > 0 {
		return nil, internal.NewValidationError(
			fmt.Sprintf("invalid roles: %v", invalid),
			internal.ErrCodeInvalidRole)
	}
	if err := set.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidRole)
	}
	return set, nil
}

func forbidden(d access.Decision) *internal.AppError {
	if d.Reason == access.ReasonNotOwner {
		return internal.NewForbiddenError("not the resource owner", internal.ErrCodeNotOwner)
	}
	return internal.NewForbiddenError("insufficient role", internal.ErrCodeMissingRole)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
