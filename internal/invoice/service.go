package invoice

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/access"
	"github.com/opsledger/opsledger/internal/project"
	"github.com/opsledger/opsledger/internal/user"
)

// Repository defines the data access methods for invoices. Mutate runs
// its read-modify-write inside one transaction so payment application
// cannot race. NextSequence atomically reserves the next per-year
// invoice number.
type Repository interface {
	Create(inv *Invoice) error
	GetByID(id int64) (*Invoice, error)
	List(limit, offset int) ([]*Invoice, int64, error)
	Update(inv *Invoice) error
	Delete(id int64) error
	Mutate(id int64, fn func(inv *Invoice) error) (*Invoice, error)
	NextSequence(year int) (int, error)
}

// ClientDirectory resolves invoice clients; the user repository
// satisfies it.
type ClientDirectory interface {
	GetByID(id int64) (*user.User, error)
}

// ProjectDirectory resolves optional project references.
type ProjectDirectory interface {
	GetByID(id int64) (*project.Project, error)
}

type Service struct {
	repo     Repository
	clients  ClientDirectory
	projects ProjectDirectory
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, clients ClientDirectory, projects ProjectDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		clients:  clients,
		projects: projects,
		logger:   logger,
		now:      time.Now,
	}
}

// Create builds a new pending invoice. The number is reserved
// atomically per invoice year.
func (s *Service) Create(p *auth.Principal, dto CreateInvoiceDTO) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkClient(dto.ClientID); err != nil {
		return nil, err
	}
	if dto.ProjectID != nil {
		if _, err := s.projects.GetByID(*dto.ProjectID); err != nil {
			return nil, err
		}
	}

	date := parseDate(dto.Date)
	due := parseDate(dto.DueDate)
	if due.Before(date) {
		return nil, internal.NewValidationFieldError("due_date", "due date must not precede invoice date", internal.ErrCodeInvalidDate)
	}

	year := date.Year()
	seq, err := s.repo.NextSequence(year)
	if err != nil {
		s.logger.Error("failed to reserve invoice sequence", "error", err, "year", year)
		return nil, internal.NewInternalError("failed to reserve invoice number", err)
	}

	inv := &Invoice{
		Number:      FormatNumber(year, seq),
		ClientID:    dto.ClientID,
		ProjectID:   dto.ProjectID,
		Amount:      dto.Amount,
		Description: dto.Description,
		Date:        date,
		DueDate:     due,
		Status:      StatusPending,
	}

	if err := s.repo.Create(inv); err != nil {
		s.logger.Error("failed to create invoice", "error", err, "number", inv.Number)
		return nil, internal.NewInternalError("failed to create invoice", err)
	}

	s.logger.Info("invoice created", "invoice_id", inv.ID, "number", inv.Number, "created_by", p.ID)
	return s.withEffective(inv), nil
}

func (s *Service) Get(p *auth.Principal, id int64) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	inv, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.withEffective(inv), nil
}

func (s *Service) List(p *auth.Principal, limit, offset int) ([]*Invoice, int64, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, 0, forbidden(d)
	}

	invoices, total, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list invoices", err)
	}
	for _, inv := range invoices {
		s.withEffective(inv)
	}
	return invoices, total, nil
}

// Update edits invoice fields. Reassigning the client re-checks
// approval; the amount can never drop below what is already paid.
func (s *Service) Update(p *auth.Principal, id int64, dto UpdateInvoiceDTO) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.ClientID != nil {
		if err := s.checkClient(*dto.ClientID); err != nil {
			return nil, err
		}
	}
	if dto.ProjectID != nil {
		if _, err := s.projects.GetByID(*dto.ProjectID); err != nil {
			return nil, err
		}
	}

	inv, err := s.repo.Mutate(id, func(inv *Invoice) error {
		if dto.ClientID != nil {
			inv.ClientID = *dto.ClientID
		}
		if dto.ProjectID != nil {
			inv.ProjectID = dto.ProjectID
		}
		if dto.Amount != nil {
			if dto.Amount.LessThan(inv.PaidAmount) {
				return internal.NewValidationFieldError("amount",
					fmt.Sprintf("amount cannot be below the %s already paid", inv.PaidAmount.StringFixed(2)),
					internal.ErrCodeInvalidAmount)
			}
			inv.Amount = *dto.Amount
		}
		if dto.Description != nil {
			inv.Description = *dto.Description
		}
		if dto.Date != nil {
			inv.Date = parseDate(*dto.Date)
		}
		if dto.DueDate != nil {
			inv.DueDate = parseDate(*dto.DueDate)
		}
		if inv.DueDate.Before(inv.Date) {
			return internal.NewValidationFieldError("due_date", "due date must not precede invoice date", internal.ErrCodeInvalidDate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice updated", "invoice_id", id, "updated_by", p.ID)
	return s.withEffective(inv), nil
}

// MarkPaid settles the invoice in full regardless of prior partial
// payments.
func (s *Service) MarkPaid(p *auth.Principal, id int64) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	inv, err := s.repo.Mutate(id, func(inv *Invoice) error {
		if inv.Status == StatusCancelled {
			return internal.NewConflictError("cancelled invoices reject payment", internal.ErrCodeInvoiceCancelled)
		}
		if inv.Status == StatusPaid {
			return internal.NewConflictError("invoice is already paid", internal.ErrCodeInvoiceAlreadyPaid)
		}
		inv.PaidAmount = inv.Amount
		inv.Status = StatusPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice marked paid", "invoice_id", id, "marked_by", p.ID)
	return s.withEffective(inv), nil
}

// ApplyPayment adds a partial payment. A payment that would push the
// total past the invoice amount is rejected, reporting the remaining
// balance; reaching the full amount flips the invoice to paid.
func (s *Service) ApplyPayment(p *auth.Principal, id int64, dto PaymentDTO) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.repo.Mutate(id, func(inv *Invoice) error {
		if inv.Status == StatusCancelled {
			return internal.NewConflictError("cancelled invoices reject payment", internal.ErrCodeInvoiceCancelled)
		}
		if inv.Status == StatusPaid {
			return internal.NewConflictError("invoice is already paid", internal.ErrCodeInvoiceAlreadyPaid)
		}

		newTotal := inv.PaidAmount.Add(dto.Amount)
		if newTotal.GreaterThan(inv.Amount) {
			return internal.NewConflictError(
				fmt.Sprintf("payment exceeds remaining balance of %s", inv.Remaining().StringFixed(2)),
				internal.ErrCodePaymentExceedsBalance)
		}

		inv.PaidAmount = newTotal
		if inv.PaidAmount.Equal(inv.Amount) {
			inv.Status = StatusPaid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment applied", "invoice_id", id, "amount", dto.Amount.StringFixed(2), "applied_by", p.ID)
	return s.withEffective(inv), nil
}

// Cancel voids the invoice. Paid and already-cancelled invoices reject.
func (s *Service) Cancel(p *auth.Principal, id int64) (*Invoice, error) {
	if d := access.CanAccessBilling(p.Roles); !d.Allowed {
		return nil, forbidden(d)
	}

	inv, err := s.repo.Mutate(id, func(inv *Invoice) error {
		if inv.Status == StatusCancelled {
			return internal.NewConflictError("invoice is already cancelled", internal.ErrCodeInvoiceCancelled)
		}
		if inv.Status == StatusPaid {
			return internal.NewConflictError("paid invoices cannot be cancelled", internal.ErrCodeInvoiceAlreadyPaid)
		}
		inv.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled", "invoice_id", id, "cancelled_by", p.ID)
	return s.withEffective(inv), nil
}

// Delete removes an invoice outright. Admin only.
func (s *Service) Delete(p *auth.Principal, id int64) error {
	if d := access.CanDeleteInvoice(p.Roles); !d.Allowed {
		return forbidden(d)
	}

	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete invoice", "error", err, "invoice_id", id)
		return internal.NewInternalError("failed to delete invoice", err)
	}

	s.logger.Info("invoice deleted", "invoice_id", id, "deleted_by", p.ID)
	return nil
}

// checkClient enforces that the client exists and is approved, both at
// creation and at reassignment.
func (s *Service) checkClient(clientID int64) error {
	client, err := s.clients.GetByID(clientID)
	if err != nil {
		return err
	}
	if !client.Approved {
		return internal.NewValidationFieldError("client_id", "client must be an approved user", internal.ErrCodeUserNotApproved)
	}
	return nil
}

func (s *Service) withEffective(inv *Invoice) *Invoice {
	inv.EffectiveStatus = inv.Effective(s.now())
	return inv
}

func forbidden(d access.Decision) *internal.AppError {
	if d.Reason == access.ReasonNotOwner {
		return internal.NewForbiddenError("not the resource owner", internal.ErrCodeNotOwner)
	}
	return internal.NewForbiddenError("insufficient role", internal.ErrCodeMissingRole)
}
