package user

import (
	"strings"

	"github.com/opsledger/opsledger/internal"
)

// MinPasswordLength is the minimum-strength rule for any new credential.
const MinPasswordLength = 6

// RegisterDTO is the self-registration payload. Registered accounts
// start unapproved with the base role only.
type RegisterDTO struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (dto RegisterDTO) Validate() error {
	if strings.TrimSpace(dto.Email) == "" {
		return internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if !strings.Contains(dto.Email, "@") {
		return internal.NewValidationFieldError("email", "email is not valid", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Username) == "" {
		return internal.NewValidationFieldError("username", "username is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Password) < MinPasswordLength {
		return internal.NewValidationFieldError("password", "password must be at least 6 characters", internal.ErrCodeWeakPassword)
	}
	return nil
}

// CreateUserDTO is the admin-create payload; unlike registration, roles
// and approval are assignable.
type CreateUserDTO struct {
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
	Approved bool     `json:"approved"`
}

func (dto CreateUserDTO) Validate() error {
	base := RegisterDTO{
		Email:    dto.Email,
		Username: dto.Username,
		Name:     dto.Name,
		Password: dto.Password,
	}
	return base.Validate()
}

// UpdateUserDTO carries a partial update; nil fields are untouched.
// Which fields a caller may set is decided by the access allowlist,
// not here.
type UpdateUserDTO struct {
	Email    *string   `json:"email,omitempty"`
	Username *string   `json:"username,omitempty"`
	Name     *string   `json:"name,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
	Approved *bool     `json:"approved,omitempty"`
}

// SubmittedFields names the fields present in the payload, matching the
// allowlist vocabulary of the access package.
func (dto UpdateUserDTO) SubmittedFields() []string {
	var fields []string
	if dto.Email != nil {
		fields = append(fields, "email")
	}
	if dto.Username != nil {
		fields = append(fields, "username")
	}
	if dto.Name != nil {
		fields = append(fields, "name")
	}
	if dto.Roles != nil {
		fields = append(fields, "roles")
	}
	if dto.Approved != nil {
		fields = append(fields, "approved")
	}
	return fields
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (dto ChangePasswordDTO) Validate() error {
	if dto.CurrentPassword == "" {
		return internal.NewValidationFieldError("current_password", "current password is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.NewPassword) < MinPasswordLength {
		return internal.NewValidationFieldError("new_password", "password must be at least 6 characters", internal.ErrCodeWeakPassword)
	}
	return nil
}

type ResetPasswordDTO struct {
	NewPassword string `json:"new_password"`
}

func (dto ResetPasswordDTO) Validate() error {
	if len(dto.NewPassword) < MinPasswordLength {
		return internal.NewValidationFieldError("new_password", "password must be at least 6 characters", internal.ErrCodeWeakPassword)
	}
	return nil
}
