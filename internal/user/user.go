package user

import (
	"time"

	"github.com/opsledger/opsledger/internal/core/roles"
)

// User is the account entity. PasswordHash never leaves the credential
// boundary: it is excluded from JSON and only the auth service and the
// password operations touch it.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Roles        []string  `json:"roles" gorm:"serializer:json"`
	Approved     bool      `json:"approved" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// RoleSet returns the stored roles as a typed set. Unknown names are
// dropped; storage writes go through validation so none should exist.
func (u *User) RoleSet() roles.Set {
	set, _ := roles.Parse(u.Roles)
	return set
}
