package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsledger/opsledger/internal"
)

const dateLayout = "2006-01-02"

type CreateInvoiceDTO struct {
	ClientID    int64           `json:"client_id"`
	ProjectID   *int64          `json:"project_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	DueDate     string          `json:"due_date"`
}

func (dto CreateInvoiceDTO) Validate() error {
	if dto.ClientID == 0 {
		return internal.NewValidationFieldError("client_id", "client is required", internal.ErrCodeValidationFailed)
	}
	if !dto.Amount.IsPositive() {
		return internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if _, err := time.Parse(dateLayout, dto.Date); err != nil {
		return internal.NewValidationFieldError("date", "date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	if _, err := time.Parse(dateLayout, dto.DueDate); err != nil {
		return internal.NewValidationFieldError("due_date", "due date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	return nil
}

type UpdateInvoiceDTO struct {
	ClientID    *int64           `json:"client_id,omitempty"`
	ProjectID   *int64           `json:"project_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *string          `json:"date,omitempty"`
	DueDate     *string          `json:"due_date,omitempty"`
}

func (dto UpdateInvoiceDTO) Validate() error {
	if dto.Amount != nil && !dto.Amount.IsPositive() {
		return internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if dto.Date != nil {
		if _, err := time.Parse(dateLayout, *dto.Date); err != nil {
			return internal.NewValidationFieldError("date", "date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
	}
	if dto.DueDate != nil {
		if _, err := time.Parse(dateLayout, *dto.DueDate); err != nil {
			return internal.NewValidationFieldError("due_date", "due date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
	}
	return nil
}

type PaymentDTO struct {
	Amount decimal.Decimal `json:"amount"`
}

func (dto PaymentDTO) Validate() error {
	if !dto.Amount.IsPositive() {
		return internal.NewValidationFieldError("amount", "payment amount must be positive", internal.ErrCodeInvalidAmount)
	}
	return nil
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}
