package invoice_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/core/roles"
	"github.com/opsledger/opsledger/internal/invoice"
	"github.com/opsledger/opsledger/internal/project"
	"github.com/opsledger/opsledger/internal/user"
)

type mockInvoiceRepo struct {
	invoices  map[int64]*invoice.Invoice
	sequences map[int]int
	nextID    int64
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices:  make(map[int64]*invoice.Invoice),
		sequences: make(map[int]int),
		nextID:    1,
	}
}

func (m *mockInvoiceRepo) Create(inv *invoice.Invoice) error {
	inv.ID = m.nextID
	m.nextID++
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) GetByID(id int64) (*invoice.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, internal.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) List(limit, offset int) ([]*invoice.Invoice, int64, error) {
	var all []*invoice.Invoice
	for id := int64(1); id < m.nextID; id++ {
		if inv, ok := m.invoices[id]; ok {
			cp := *inv
			all = append(all, &cp)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockInvoiceRepo) Update(inv *invoice.Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return internal.ErrInvoiceNotFound
	}
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) Delete(id int64) error {
	delete(m.invoices, id)
	return nil
}

// Mutate mirrors the transactional repository: fn failing leaves the
// stored row untouched.
func (m *mockInvoiceRepo) Mutate(id int64, fn func(inv *invoice.Invoice) error) (*invoice.Invoice, error) {
	stored, ok := m.invoices[id]
	if !ok {
		return nil, internal.ErrInvoiceNotFound
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.invoices[id] = &cp
	out := cp
	return &out, nil
}

func (m *mockInvoiceRepo) NextSequence(year int) (int, error) {
	m.sequences[year]++
	return m.sequences[year], nil
}

type mockClients struct {
	users map[int64]*user.User
}

func (m *mockClients) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

type mockProjects struct {
	projects map[int64]*project.Project
}

func (m *mockProjects) GetByID(id int64) (*project.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, internal.ErrProjectNotFound
	}
	return p, nil
}

func principalWith(id int64, names ...string) *auth.Principal {
	set, _ := roles.Parse(names)
	return &auth.Principal{ID: id, Roles: set, Approved: true}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	Expect(err).ToNot(HaveOccurred())
	return d
}

var _ = Describe("InvoiceService", func() {
	var (
		repo    *mockInvoiceRepo
		clients *mockClients
		service *invoice.Service

		supervisor *auth.Principal
		admin      *auth.Principal
		manager    *auth.Principal
	)

	newInvoice := func(amount string) *invoice.Invoice {
		inv, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
			ClientID: 10,
			Amount:   dec(amount),
			Date:     "2024-03-01",
			DueDate:  "2024-03-31",
		})
		Expect(err).ToNot(HaveOccurred())
		return inv
	}

	BeforeEach(func() {
		repo = newMockInvoiceRepo()
		clients = &mockClients{users: map[int64]*user.User{
			10: {ID: 10, Email: "client@example.com", Approved: true},
			11: {ID: 11, Email: "pending@example.com", Approved: false},
		}}
		projects := &mockProjects{projects: map[int64]*project.Project{
			20: {ID: 20, Name: "Relaunch"},
		}}
		service = invoice.NewService(repo, clients, projects, slog.Default())

		supervisor = principalWith(1, "staff", "supervisor")
		admin = principalWith(2, "staff", "admin")
		manager = principalWith(3, "staff", "manager")
	})

	Describe("Create", func() {
		It("should number invoices per year with a zero-padded sequence", func() {
			first := newInvoice("100.00")
			second := newInvoice("50.00")

			Expect(first.Number).To(Equal("20240001"))
			Expect(second.Number).To(Equal("20240002"))
		})

		It("should keep sequences independent across years", func() {
			newInvoice("100.00")

			inv, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 10,
				Amount:   dec("75.00"),
				Date:     "2025-01-15",
				DueDate:  "2025-02-15",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(inv.Number).To(Equal("20250001"))
		})

		It("should reject an unapproved client", func() {
			_, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 11,
				Amount:   dec("100.00"),
				Date:     "2024-03-01",
				DueDate:  "2024-03-31",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUserNotApproved))
		})

		It("should reject a missing client", func() {
			_, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 99,
				Amount:   dec("100.00"),
				Date:     "2024-03-01",
				DueDate:  "2024-03-31",
			})

			Expect(err).To(Equal(internal.ErrUserNotFound))
		})

		It("should reject a missing project reference", func() {
			projectID := int64(404)
			_, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID:  10,
				ProjectID: &projectID,
				Amount:    dec("100.00"),
				Date:      "2024-03-01",
				DueDate:   "2024-03-31",
			})

			Expect(err).To(Equal(internal.ErrProjectNotFound))
		})

		It("should reject a due date before the invoice date", func() {
			_, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 10,
				Amount:   dec("100.00"),
				Date:     "2024-03-31",
				DueDate:  "2024-03-01",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidDate))
		})

		It("should shut out non-billing roles entirely", func() {
			_, err := service.Create(manager, invoice.CreateInvoiceDTO{
				ClientID: 10,
				Amount:   dec("100.00"),
				Date:     "2024-03-01",
				DueDate:  "2024-03-31",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))
		})
	})

	Describe("ApplyPayment", func() {
		It("should accumulate partial payments and flip to paid at the full amount", func() {
			inv := newInvoice("100.00")

			inv, err := service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("40.00")})
			Expect(err).ToNot(HaveOccurred())
			Expect(inv.PaidAmount.StringFixed(2)).To(Equal("40.00"))
			Expect(inv.Status).To(Equal(invoice.StatusPending))

			_, err = service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("70.00")})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePaymentExceedsBalance))
			Expect(appErr.Message).To(ContainSubstring("60.00"))

			stored, err := service.Get(supervisor, inv.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.PaidAmount.StringFixed(2)).To(Equal("40.00"))

			inv, err = service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("60.00")})
			Expect(err).ToNot(HaveOccurred())
			Expect(inv.PaidAmount.StringFixed(2)).To(Equal("100.00"))
			Expect(inv.Status).To(Equal(invoice.StatusPaid))
		})

		It("should reject payment on a cancelled invoice", func() {
			inv := newInvoice("100.00")
			_, err := service.Cancel(supervisor, inv.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("10.00")})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvoiceCancelled))
		})

		It("should reject a non-positive payment", func() {
			inv := newInvoice("100.00")

			_, err := service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("0")})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidAmount))
		})
	})

	Describe("MarkPaid", func() {
		It("should settle in full regardless of prior partial payments", func() {
			inv := newInvoice("100.00")
			_, err := service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("25.00")})
			Expect(err).ToNot(HaveOccurred())

			inv, err = service.MarkPaid(supervisor, inv.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(inv.PaidAmount.Equal(inv.Amount)).To(BeTrue())
			Expect(inv.Status).To(Equal(invoice.StatusPaid))
		})

		It("should conflict when already paid", func() {
			inv := newInvoice("100.00")
			_, err := service.MarkPaid(supervisor, inv.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.MarkPaid(supervisor, inv.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvoiceAlreadyPaid))
		})
	})

	Describe("Update", func() {
		It("should refuse dropping the amount below the paid total", func() {
			inv := newInvoice("100.00")
			_, err := service.ApplyPayment(supervisor, inv.ID, invoice.PaymentDTO{Amount: dec("40.00")})
			Expect(err).ToNot(HaveOccurred())

			lower := dec("30.00")
			_, err = service.Update(supervisor, inv.ID, invoice.UpdateInvoiceDTO{Amount: &lower})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidAmount))
		})

		It("should re-check approval when reassigning the client", func() {
			inv := newInvoice("100.00")

			unapproved := int64(11)
			_, err := service.Update(supervisor, inv.ID, invoice.UpdateInvoiceDTO{ClientID: &unapproved})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUserNotApproved))
		})
	})

	Describe("overdue projection", func() {
		It("should read a pending invoice past due as overdue without touching storage", func() {
			inv, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 10,
				Amount:   dec("100.00"),
				Date:     "2019-12-01",
				DueDate:  "2020-01-01",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(inv.EffectiveStatus).To(Equal(invoice.StatusOverdue))

			stored, ok := repo.invoices[inv.ID]
			Expect(ok).To(BeTrue())
			Expect(stored.Status).To(Equal(invoice.StatusPending))
		})

		It("should not project overdue onto paid or cancelled invoices", func() {
			inv, err := service.Create(supervisor, invoice.CreateInvoiceDTO{
				ClientID: 10,
				Amount:   dec("100.00"),
				Date:     "2019-12-01",
				DueDate:  "2020-01-01",
			})
			Expect(err).ToNot(HaveOccurred())

			paid, err := service.MarkPaid(supervisor, inv.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(paid.EffectiveStatus).To(Equal(invoice.StatusPaid))
		})
	})

	Describe("Delete", func() {
		It("should be admin only", func() {
			inv := newInvoice("100.00")

			err := service.Delete(supervisor, inv.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingRole))

			Expect(service.Delete(admin, inv.ID)).To(Succeed())
			_, err = service.Get(admin, inv.ID)
			Expect(err).To(Equal(internal.ErrInvoiceNotFound))
		})
	})
})
