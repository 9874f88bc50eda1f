package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/invoice"
)

// InvoiceRepository implements the invoice.Repository interface using GORM
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) invoice.Repository {
	return &InvoiceRepository{db: db}
}

// invoiceSequence backs the atomic per-year number reservation.
type invoiceSequence struct {
	Year    int `gorm:"primaryKey"`
	LastSeq int `gorm:"not null"`
}

func (invoiceSequence) TableName() string {
	return "invoice_sequences"
}

func (r *InvoiceRepository) Create(inv *invoice.Invoice) error {
	return r.db.Create(inv).Error
}

func (r *InvoiceRepository) GetByID(id int64) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Where("id = ?", id).First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) List(limit, offset int) ([]*invoice.Invoice, int64, error) {
	var total int64
	if err := r.db.Model(&invoice.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []*invoice.Invoice
	err := r.db.Order("date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *InvoiceRepository) Update(inv *invoice.Invoice) error {
	inv.UpdatedAt = time.Now()
	return r.db.Save(inv).Error
}

func (r *InvoiceRepository) Delete(id int64) error {
	return r.db.Delete(&invoice.Invoice{}, id).Error
}

// Mutate loads the row with a write lock, applies fn and saves, all in
// one transaction. fn returning an error rolls everything back.
func (r *InvoiceRepository) Mutate(id int64, fn func(inv *invoice.Invoice) error) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&inv).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return internal.ErrInvoiceNotFound
			}
			return err
		}
		if err := fn(&inv); err != nil {
			return err
		}
		inv.UpdatedAt = time.Now()
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// NextSequence reserves the next invoice number for a year with a
// single upsert, so concurrent creations cannot observe the same value.
func (r *InvoiceRepository) NextSequence(year int) (int, error) {
	var seq invoiceSequence
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_seq": gorm.Expr("invoice_sequences.last_seq + 1")}),
		}).Create(&invoiceSequence{Year: year, LastSeq: 1}).Error; err != nil {
			return err
		}
		return tx.Where("year = ?", year).First(&seq).Error
	})
	if err != nil {
		return 0, err
	}
	return seq.LastSeq, nil
}
