package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/timeentry"
)

// TimeEntryRepository implements the timeentry.Repository interface using GORM
type TimeEntryRepository struct {
	db *gorm.DB
}

func NewTimeEntryRepository(db *gorm.DB) timeentry.Repository {
	return &TimeEntryRepository{db: db}
}

// CreateIfNoneOpen checks for an open entry and inserts in the same
// transaction, locking existing rows so two clock-ins cannot race.
func (r *TimeEntryRepository) CreateIfNoneOpen(e *timeentry.TimeEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&timeentry.TimeEntry{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND clock_out IS NULL", e.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return internal.NewConflictError("already clocked in", internal.ErrCodeAlreadyClockedIn)
		}
		return tx.Create(e).Error
	})
}

func (r *TimeEntryRepository) GetByID(id int64) (*timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrTimeEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetOpenByUser returns the most recent open entry, or the no-open-entry
// conflict when the user is off the clock.
func (r *TimeEntryRepository) GetOpenByUser(userID int64) (*timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry
	err := r.db.Where("user_id = ? AND clock_out IS NULL", userID).
		Order("clock_in DESC").
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.NewConflictError("no open time entry", internal.ErrCodeNoOpenEntry)
		}
		return nil, err
	}
	return &e, nil
}

func (r *TimeEntryRepository) ListByUser(userID int64, limit, offset int) ([]*timeentry.TimeEntry, int64, error) {
	var total int64
	if err := r.db.Model(&timeentry.TimeEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*timeentry.TimeEntry
	err := r.db.Where("user_id = ?", userID).
		Order("clock_in DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, total, err
}

func (r *TimeEntryRepository) Update(e *timeentry.TimeEntry) error {
	e.UpdatedAt = time.Now()
	return r.db.Save(e).Error
}

func (r *TimeEntryRepository) Delete(id int64) error {
	return r.db.Delete(&timeentry.TimeEntry{}, id).Error
}
