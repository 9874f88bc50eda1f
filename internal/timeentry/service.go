package timeentry

import (
	"log/slog"
	"time"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
)

// Repository defines the data access methods for time entries.
// CreateIfNoneOpen runs the open-entry check and the insert in one
// transaction so two concurrent clock-ins cannot both succeed.
type Repository interface {
	CreateIfNoneOpen(e *TimeEntry) error
	GetByID(id int64) (*TimeEntry, error)
	GetOpenByUser(userID int64) (*TimeEntry, error)
	ListByUser(userID int64, limit, offset int) ([]*TimeEntry, int64, error)
	Update(e *TimeEntry) error
	Delete(id int64) error
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

// ClockIn opens a new entry for the caller. An already-open entry is a
// business-state conflict.
func (s *Service) ClockIn(p *auth.Principal) (*TimeEntry, error) {
	now := s.now()
	entry := &TimeEntry{
		UserID:   p.ID,
		ClockIn:  now,
		WorkDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}

	if err := s.repo.CreateIfNoneOpen(entry); err != nil {
		return nil, err
	}

	s.logger.Info("clocked in", "user_id", p.ID, "entry_id", entry.ID)
	return s.withDuration(entry), nil
}

// ClockOut closes the caller's most recent open entry.
func (s *Service) ClockOut(p *auth.Principal) (*TimeEntry, error) {
	entry, err := s.repo.GetOpenByUser(p.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry.ClockOut = &now

	if err := s.repo.Update(entry); err != nil {
		s.logger.Error("failed to clock out", "error", err, "entry_id", entry.ID)
		return nil, internal.NewInternalError("failed to clock out", err)
	}

	s.logger.Info("clocked out", "user_id", p.ID, "entry_id", entry.ID)
	return s.withDuration(entry), nil
}

// List returns the caller's own entries, newest first.
func (s *Service) List(p *auth.Principal, limit, offset int) ([]*TimeEntry, int64, error) {
	entries, total, err := s.repo.ListByUser(p.ID, limit, offset)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list time entries", err)
	}
	for _, e := range entries {
		s.withDuration(e)
	}
	return entries, total, nil
}

// Delete removes one of the caller's own closed entries. Open entries
// and other users' entries reject.
func (s *Service) Delete(p *auth.Principal, id int64) error {
	entry, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if entry.UserID != p.ID {
		return internal.NewForbiddenError("not the resource owner", internal.ErrCodeNotOwner)
	}
	if entry.Open() {
		return internal.NewConflictError("entry is still open", internal.ErrCodeEntryStillOpen)
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete time entry", "error", err, "entry_id", id)
		return internal.NewInternalError("failed to delete time entry", err)
	}

	s.logger.Info("time entry deleted", "user_id", p.ID, "entry_id", id)
	return nil
}

func (s *Service) withDuration(e *TimeEntry) *TimeEntry {
	e.Duration = FormatDuration(e.Elapsed(s.now()))
	return e
}
