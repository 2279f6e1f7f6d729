// Package address models shipping/billing contact records and reconciles
// candidate addresses against the customer's saved address book.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	TypeHome   = "home"
	TypeOffice = "office"
	TypeOther  = "other"
)

// Address is a shipping or billing contact record. ID is zero while the
// record only exists in a form; the remote address service assigns ids.
// Records are immutable once submitted; edits create new records.
type Address struct {
	ID                int64   `json:"id,omitempty"`
	ContactPersonName string  `json:"contact_person_name" validate:"required"`
	Phone             string  `json:"phone" validate:"required"`
	Email             string  `json:"email" validate:"required,email"`
	Country           string  `json:"country" validate:"required"`
	City              string  `json:"city" validate:"required"`
	Zip               string  `json:"zip" validate:"required"`
	Address           string  `json:"address" validate:"required"`
	Latitude          float64 `json:"latitude,omitempty"`
	Longitude         float64 `json:"longitude,omitempty"`
	AddressType       string  `json:"address_type,omitempty"`
	IsBilling         bool    `json:"is_billing,omitempty"`
}

var ErrInvalid = errors.New("address is invalid")

var addressValidator = validator.New()

// FieldError is a per-field validation message, surfaced back to the form.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the submission invariant: name, phone, email, country,
// city, zip and street address must all be non-empty. Returns one entry per
// failing field.
func Validate(a Address) []FieldError {
	err := addressValidator.Struct(a)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "address", Message: err.Error()}}
	}

	fieldErrs := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrs = append(fieldErrs, FieldError{
			Field:   jsonFieldName(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return fieldErrs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func jsonFieldName(structField string) string {
	switch structField {
	case "ContactPersonName":
		return "contact_person_name"
	case "Address":
		return "address"
	default:
		return strings.ToLower(structField)
	}
}

// NormalizeType maps free-form address type tags to the known set.
func NormalizeType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case TypeHome:
		return TypeHome
	case TypeOffice, "work":
		return TypeOffice
	default:
		return TypeOther
	}
}
