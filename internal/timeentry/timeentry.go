package timeentry

import (
	"fmt"
	"time"
)

// TimeEntry records one clock-in/clock-out pair. ClockOut stays nil
// while the user is on the clock; duration is always derived, never
// stored.
type TimeEntry struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    int64      `json:"user_id" gorm:"not null;index"`
	ClockIn   time.Time  `json:"clock_in" gorm:"not null"`
	ClockOut  *time.Time `json:"clock_out,omitempty"`
	WorkDate  time.Time  `json:"work_date" gorm:"not null;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Duration is derived on the way out, never persisted.
	Duration string `json:"duration" gorm:"-"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// Open reports whether the entry is still on the clock.
func (e *TimeEntry) Open() bool {
	return e.ClockOut == nil
}

// Elapsed returns the worked duration, measuring open entries against
// now.
func (e *TimeEntry) Elapsed(now time.Time) time.Duration {
	end := now
	if e.ClockOut != nil {
		end = *e.ClockOut
	}
	d := end.Sub(e.ClockIn)
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration renders a duration as H:MM with zero-padded minutes.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d:%02d", hours, minutes)
}
