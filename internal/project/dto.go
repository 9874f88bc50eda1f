package project

import (
	"strings"
	"time"

	"github.com/opsledger/opsledger/internal"
)

const dateLayout = "2006-01-02"

// CreateProjectDTO carries calendar dates as YYYY-MM-DD strings.
type CreateProjectDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (dto CreateProjectDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.StartDate == "" {
		return internal.NewValidationFieldError("start_date", "start date is required", internal.ErrCodeValidationFailed)
	}
	if _, err := time.Parse(dateLayout, dto.StartDate); err != nil {
		return internal.NewValidationFieldError("start_date", "start date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	if dto.EndDate != nil {
		if _, err := time.Parse(dateLayout, *dto.EndDate); err != nil {
			return internal.NewValidationFieldError("end_date", "end date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
	}
	if dto.Status != nil && !Status(*dto.Status).Valid() {
		return internal.NewValidationFieldError("status", "status must be pending, ongoing or completed", internal.ErrCodeInvalidStatus)
	}
	return nil
}

// UpdateProjectDTO is a partial update; nil fields are untouched. An
// explicit empty-string end date clears the field.
type UpdateProjectDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (dto UpdateProjectDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.StartDate != nil {
		if _, err := time.Parse(dateLayout, *dto.StartDate); err != nil {
			return internal.NewValidationFieldError("start_date", "start date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
	}
	if dto.EndDate != nil && *dto.EndDate != "" {
		if _, err := time.Parse(dateLayout, *dto.EndDate); err != nil {
			return internal.NewValidationFieldError("end_date", "end date must be YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
	}
	if dto.Status != nil && !Status(*dto.Status).Valid() {
		return internal.NewValidationFieldError("status", "status must be pending, ongoing or completed", internal.ErrCodeInvalidStatus)
	}
	return nil
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}
