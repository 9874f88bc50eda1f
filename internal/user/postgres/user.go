package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

// Create inserts a new user. The uniqueness checks run in the same
// transaction as the insert so concurrent registrations cannot race
// past them.
func (r *UserRepository) Create(u *user.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, u.Email, u.Username, 0); err != nil {
			return err
		}
		return tx.Create(u).Error
	})
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(limit, offset int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.Model(&user.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*user.User
	err := r.db.Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, total, err
}

// Update saves a modified user, re-checking uniqueness against other rows.
func (r *UserRepository) Update(u *user.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, u.Email, u.Username, u.ID); err != nil {
			return err
		}
		u.UpdatedAt = time.Now()
		return tx.Save(u).Error
	})
}

func (r *UserRepository) UpdatePassword(id int64, passwordHash string) error {
	res := r.db.Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// checkUnique reports a conflict when email or username belongs to a
// different row. excludeID skips the row being updated.
func checkUnique(tx *gorm.DB, email, username string, excludeID int64) error {
	var count int64
	if err := tx.Model(&user.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return internal.NewConflictError("email is already in use", internal.ErrCodeEmailTaken)
	}

	if err := tx.Model(&user.User{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return internal.NewConflictError("username is already in use", internal.ErrCodeUsernameTaken)
	}
	return nil
}
