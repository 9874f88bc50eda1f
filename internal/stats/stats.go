package stats

import "github.com/shopspring/decimal"

// DashboardStats is the read-only summary view. Billing is omitted for
// callers without billing access.
type DashboardStats struct {
	Projects ProjectStats  `json:"projects"`
	Users    UserStats     `json:"users"`
	Billing  *BillingStats `json:"billing,omitempty"`
}

type ProjectStats struct {
	Pending   int64 `json:"pending"`
	Ongoing   int64 `json:"ongoing"`
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
	// CompletionRate is completed/total as a rounded percentage, 0 when
	// there are no projects.
	CompletionRate int `json:"completion_rate"`
}

type UserStats struct {
	Approved   int64 `json:"approved"`
	Unapproved int64 `json:"unapproved"`
	Total      int64 `json:"total"`
}

type BillingStats struct {
	Pending       int64           `json:"pending"`
	Paid          int64           `json:"paid"`
	Overdue       int64           `json:"overdue"`
	Cancelled     int64           `json:"cancelled"`
	InvoiceCount  int64           `json:"invoice_count"`
	TotalBilled   decimal.Decimal `json:"total_billed"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	AverageAmount decimal.Decimal `json:"average_amount"`
}

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// HoursStats summarizes a caller's worked time over one period window.
type HoursStats struct {
	Period     Period  `json:"period"`
	TotalHours float64 `json:"total_hours"`
	EntryCount int64   `json:"entry_count"`
	DaysWorked int64   `json:"days_worked"`
	// AverageHoursPerDay divides by distinct work days, 0 when none.
	AverageHoursPerDay float64 `json:"average_hours_per_day"`
}
