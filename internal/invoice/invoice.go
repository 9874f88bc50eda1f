package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Invoice stores money as fixed-precision decimals. Overdue is never
// written to storage: it is derived at read time, see EffectiveStatus.
type Invoice struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Number      string          `json:"number" gorm:"uniqueIndex;not null"`
	ClientID    int64           `json:"client_id" gorm:"not null;index"`
	ProjectID   *int64          `json:"project_id,omitempty"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount  decimal.Decimal `json:"paid_amount" gorm:"type:numeric(12,2);not null;default:0"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date" gorm:"not null"`
	DueDate     time.Time       `json:"due_date" gorm:"not null"`
	Status      Status          `json:"status" gorm:"not null;default:pending"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// EffectiveStatus is the read-time projection of Status; populated
	// on the way out, never persisted.
	EffectiveStatus Status `json:"effective_status" gorm:"-"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// Effective returns the status as of now: a pending invoice past its
// due date reads as overdue without touching the stored row.
func (i *Invoice) Effective(now time.Time) Status {
	if i.Status == StatusPending && i.DueDate.Before(now) {
		return StatusOverdue
	}
	return i.Status
}

// Remaining is the unpaid balance.
func (i *Invoice) Remaining() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// FormatNumber renders the per-year invoice number, e.g. 20240007.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%d%04d", year, seq)
}
