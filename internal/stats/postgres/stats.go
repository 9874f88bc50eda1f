package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opsledger/opsledger/internal/stats"
)

// StatsRepository runs the aggregate queries with sqlx; the views are
// read-only so there is no need for the ORM here.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) stats.Repository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) ProjectCounts() (*stats.ProjectCounts, error) {
	var c stats.ProjectCounts
	query := `
SELECT
  COUNT(*) FILTER (WHERE status = 'pending')   AS pending,
  COUNT(*) FILTER (WHERE status = 'ongoing')   AS ongoing,
  COUNT(*) FILTER (WHERE status = 'completed') AS completed
FROM projects`
	if err := r.db.Get(&c, query); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *StatsRepository) UserCounts() (*stats.UserCounts, error) {
	var c stats.UserCounts
	query := `
SELECT
  COUNT(*) FILTER (WHERE approved)     AS approved,
  COUNT(*) FILTER (WHERE NOT approved) AS unapproved
FROM users`
	if err := r.db.Get(&c, query); err != nil {
		return nil, err
	}
	return &c, nil
}

// InvoiceAggregates projects overdue at query time: pending rows past
// due count as overdue, stored status untouched. Cancelled invoices are
// excluded from the money sums.
func (r *StatsRepository) InvoiceAggregates(now time.Time) (*stats.InvoiceAggregates, error) {
	var agg stats.InvoiceAggregates
	query := `
SELECT
  COUNT(*) FILTER (WHERE status = 'pending' AND due_date >= $1) AS pending,
  COUNT(*) FILTER (WHERE status = 'pending' AND due_date < $1)  AS overdue,
  COUNT(*) FILTER (WHERE status = 'paid')                       AS paid,
  COUNT(*) FILTER (WHERE status = 'cancelled')                  AS cancelled,
  COUNT(*)                                                      AS count,
  COALESCE(SUM(amount)      FILTER (WHERE status <> 'cancelled'), 0) AS total_billed,
  COALESCE(SUM(paid_amount) FILTER (WHERE status <> 'cancelled'), 0) AS total_paid
FROM invoices`
	if err := r.db.Get(&agg, query, now); err != nil {
		return nil, err
	}
	return &agg, nil
}

// HoursAggregates measures open entries against the window end.
func (r *StatsRepository) HoursAggregates(userID int64, from, to time.Time) (*stats.HoursAggregates, error) {
	var agg stats.HoursAggregates
	query := `
SELECT
  COALESCE(SUM(EXTRACT(EPOCH FROM (COALESCE(clock_out, $3) - clock_in))), 0) AS total_seconds,
  COUNT(*)                  AS entry_count,
  COUNT(DISTINCT work_date) AS days_worked
FROM time_entries
WHERE user_id = $1 AND clock_in >= $2 AND clock_in <= $3`
	if err := r.db.Get(&agg, query, userID, from, to); err != nil {
		return nil, err
	}
	return &agg, nil
}
