package project

import (
	"log/slog"
	"time"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/access"
)

// Repository defines the data access methods for projects.
type Repository interface {
	Create(p *Project) error
	GetByID(id int64) (*Project, error)
	List(limit, offset int) ([]*Project, int64, error)
	ListByOwner(ownerID int64, limit, offset int) ([]*Project, int64, error)
	Update(p *Project) error
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

// Create stores a new project owned by the caller.
func (s *Service) Create(p *auth.Principal, dto CreateProjectDTO) (*Project, error) {
	if d := access.CanAccessProjects(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj := &Project{
		Name:        dto.Name,
		Description: dto.Description,
		StartDate:   parseDate(dto.StartDate),
		Status:      StatusPending,
		OwnerID:     p.ID,
	}
	if dto.Status != nil {
		proj.Status = Status(*dto.Status)
	}
	if dto.EndDate != nil {
		end := parseDate(*dto.EndDate)
		proj.EndDate = &end
	}

	if err := s.checkDates(proj); err != nil {
		return nil, err
	}
	if err := s.checkEndDateAllowed(p, proj); err != nil {
		return nil, err
	}

	if err := s.repo.Create(proj); err != nil {
		s.logger.Error("failed to create project", "error", err, "owner_id", p.ID)
		return nil, internal.NewInternalError("failed to create project", err)
	}

	s.logger.Info("project created", "project_id", proj.ID, "owner_id", p.ID)
	return proj, nil
}

// Get returns a single project, ownership-gated for non-privileged callers.
func (s *Service) Get(p *auth.Principal, id int64) (*Project, error) {
	proj, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if d := access.CanAccessProject(p.Roles, proj.OwnerID, p.ID); !d.Allowed {
		return nil, forbidden(d)
	}
	return proj, nil
}

// List returns all projects for privileged callers and only the
// caller's own for everyone else.
func (s *Service) List(p *auth.Principal, limit, offset int) ([]*Project, int64, error) {
	if d := access.CanAccessProjects(p.Roles); !d.Allowed {
		return nil, 0, forbidden(d)
	}

	if p.Roles.IsPrivileged() {
		return s.repo.List(limit, offset)
	}
	return s.repo.ListByOwner(p.ID, limit, offset)
}

// Update applies a partial edit, re-validating the date invariants
// against the resulting record.
func (s *Service) Update(p *auth.Principal, id int64, dto UpdateProjectDTO) (*Project, error) {
	proj, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if d := access.CanAccessProject(p.Roles, proj.OwnerID, p.ID); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.Name != nil {
		proj.Name = *dto.Name
	}
	if dto.Description != nil {
		proj.Description = *dto.Description
	}
	if dto.StartDate != nil {
		proj.StartDate = parseDate(*dto.StartDate)
	}
	if dto.Status != nil {
		proj.Status = Status(*dto.Status)
	}
	if dto.EndDate != nil {
		if *dto.EndDate == "" {
			proj.EndDate = nil
		} else {
			end := parseDate(*dto.EndDate)
			proj.EndDate = &end
		}
	}

	if err := s.checkDates(proj); err != nil {
		return nil, err
	}
	if err := s.checkEndDateAllowed(p, proj); err != nil {
		return nil, err
	}

	if err := s.repo.Update(proj); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", id)
		return nil, internal.NewInternalError("failed to update project", err)
	}

	s.logger.Info("project updated", "project_id", id, "updated_by", p.ID)
	return proj, nil
}

// Complete marks a project completed and stamps today as the end date.
// Completing twice is a business-state conflict.
func (s *Service) Complete(p *auth.Principal, id int64) (*Project, error) {
	proj, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if d := access.CanAccessProject(p.Roles, proj.OwnerID, p.ID); !d.Allowed {
		return nil, forbidden(d)
	}

	if proj.Status == StatusCompleted {
		return nil, internal.NewConflictError("project is already completed", internal.ErrCodeProjectAlreadyCompleted)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	proj.Status = StatusCompleted
	proj.EndDate = &today

	if err := s.checkDates(proj); err != nil {
		return nil, err
	}

	if err := s.repo.Update(proj); err != nil {
		s.logger.Error("failed to complete project", "error", err, "project_id", id)
		return nil, internal.NewInternalError("failed to complete project", err)
	}

	s.logger.Info("project completed", "project_id", id, "completed_by", p.ID)
	return proj, nil
}

// Delete removes a project. Dependent invoice references are nulled by
// the repository, never deleted.
func (s *Service) Delete(p *auth.Principal, id int64) error {
	if d := access.CanDeleteProject(p.Roles); !d.Allowed {
		return forbidden(d)
	}

	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete project", "error", err, "project_id", id)
		return internal.NewInternalError("failed to delete project", err)
	}

	s.logger.Info("project deleted", "project_id", id, "deleted_by", p.ID)
	return nil
}

func (s *Service) checkDates(proj *Project) error {
	if proj.EndDate != nil && proj.EndDate.Before(proj.StartDate) {
		return internal.NewValidationFieldError("end_date", "end date must not precede start date", internal.ErrCodeInvalidDate)
	}
	return nil
}

// checkEndDateAllowed enforces that for non-privileged writers a stored
// end date implies a completed status. The rule is judged against the
// record as it would be written, so a status revert that would leave a
// dangling end date is rejected too.
func (s *Service) checkEndDateAllowed(p *auth.Principal, proj *Project) error {
	if proj.EndDate == nil || p.Roles.IsPrivileged() {
		return nil
	}
	if proj.Status != StatusCompleted {
		return internal.NewValidationFieldError("end_date", "end date may only be set when status is completed", internal.ErrCodeInvalidStatus)
	}
	return nil
}

func forbidden(d access.Decision) *internal.AppError {
	if d.Reason == access.ReasonNotOwner {
		return internal.NewForbiddenError("not the resource owner", internal.ErrCodeNotOwner)
	}
	return internal.NewForbiddenError("insufficient role", internal.ErrCodeMissingRole)
}
