package stats

import (
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/access"
)

// ProjectCounts carries raw per-status project tallies from storage.
type ProjectCounts struct {
	Pending   int64 `db:"pending"`
	Ongoing   int64 `db:"ongoing"`
	Completed int64 `db:"completed"`
}

// UserCounts carries raw approval tallies from storage.
type UserCounts struct {
	Approved   int64 `db:"approved"`
	Unapproved int64 `db:"unapproved"`
}

// InvoiceAggregates carries raw invoice tallies. Overdue is the
// read-time projection of pending invoices past due as of the query.
type InvoiceAggregates struct {
	Pending     int64           `db:"pending"`
	Paid        int64           `db:"paid"`
	Overdue     int64           `db:"overdue"`
	Cancelled   int64           `db:"cancelled"`
	Count       int64           `db:"count"`
	TotalBilled decimal.Decimal `db:"total_billed"`
	TotalPaid   decimal.Decimal `db:"total_paid"`
}

// HoursAggregates carries raw worked-time figures for one user window.
type HoursAggregates struct {
	TotalSeconds float64 `db:"total_seconds"`
	EntryCount   int64   `db:"entry_count"`
	DaysWorked   int64   `db:"days_worked"`
}

// Repository defines the aggregate queries behind the statistics views.
type Repository interface {
	ProjectCounts() (*ProjectCounts, error)
	UserCounts() (*UserCounts, error)
	InvoiceAggregates(now time.Time) (*InvoiceAggregates, error)
	HoursAggregates(userID int64, from, to time.Time) (*HoursAggregates, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Dashboard builds the summary view. Billing figures are included only
// for callers with billing access; everything tolerates empty tables.
func (s *Service) Dashboard(p *auth.Principal) (*DashboardStats, error) {
	projects, err := s.repo.ProjectCounts()
	if err != nil {
		s.logger.Error("failed to aggregate projects", "error", err)
		return nil, internal.NewInternalError("failed to build dashboard", err)
	}

	users, err := s.repo.UserCounts()
	if err != nil {
		s.logger.Error("failed to aggregate users", "error", err)
		return nil, internal.NewInternalError("failed to build dashboard", err)
	}

	out := &DashboardStats{
		Projects: projectStats(projects),
		Users: UserStats{
			Approved:   users.Approved,
			Unapproved: users.Unapproved,
			Total:      users.Approved + users.Unapproved,
		},
	}

	if access.CanAccessBilling(p.Roles).Allowed {
		agg, err := s.repo.InvoiceAggregates(s.now())
		if err != nil {
			s.logger.Error("failed to aggregate invoices", "error", err)
			return nil, internal.NewInternalError("failed to build dashboard", err)
		}
		out.Billing = billingStats(agg)
	}

	return out, nil
}

// Hours summarizes the caller's own worked time over the given period.
func (s *Service) Hours(p *auth.Principal, period Period) (*HoursStats, error) {
	if !period.Valid() {
		return nil, internal.NewValidationFieldError("period", "period must be week, month or year", internal.ErrCodeValidationFailed)
	}

	now := s.now()
	from := periodStart(now, period)

	agg, err := s.repo.HoursAggregates(p.ID, from, now)
	if err != nil {
		s.logger.Error("failed to aggregate hours", "error", err, "user_id", p.ID)
		return nil, internal.NewInternalError("failed to aggregate hours", err)
	}

	total := agg.TotalSeconds / 3600
	avg := 0.0
	if agg.DaysWorked > 0 {
		avg = total / float64(agg.DaysWorked)
	}

	return &HoursStats{
		Period:             period,
		TotalHours:         round2(total),
		EntryCount:         agg.EntryCount,
		DaysWorked:         agg.DaysWorked,
		AverageHoursPerDay: round2(avg),
	}, nil
}

func projectStats(c *ProjectCounts) ProjectStats {
	total := c.Pending + c.Ongoing + c.Completed
	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(c.Completed) / float64(total) * 100))
	}
	return ProjectStats{
		Pending:        c.Pending,
		Ongoing:        c.Ongoing,
		Completed:      c.Completed,
		Total:          total,
		CompletionRate: rate,
	}
}

func billingStats(agg *InvoiceAggregates) *BillingStats {
	avg := decimal.Zero
	if agg.Count > 0 {
		avg = agg.TotalBilled.Div(decimal.NewFromInt(agg.Count)).Round(2)
	}
	return &BillingStats{
		Pending:       agg.Pending,
		Paid:          agg.Paid,
		Overdue:       agg.Overdue,
		Cancelled:     agg.Cancelled,
		InvoiceCount:  agg.Count,
		TotalBilled:   agg.TotalBilled,
		TotalPaid:     agg.TotalPaid,
		Outstanding:   agg.TotalBilled.Sub(agg.TotalPaid),
		AverageAmount: avg,
	}
}

func periodStart(now time.Time, period Period) time.Time {
	switch period {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(-1, 0, 0)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
