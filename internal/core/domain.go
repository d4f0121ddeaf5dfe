package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPaymentMethod is applied to records that carry none.
	DefaultPaymentMethod = "Cash"

	// TotalCategory is the reserved budget category covering all spending.
	TotalCategory = "Total"
)

var (
	// SuggestedCategories is the fixed set offered to users. Any string is legal.
	SuggestedCategories = []string{"Food", "Travel", "Shopping", "Bills", "Other"}

	// PaymentMethods is the set offered to users. Any string is legal.
	PaymentMethods = []string{"Cash", "Card", "UPI", "Net Banking", "Wallet", "Other"}
)

type (
	// Expense is a single spending record. ID is its only identity.
	Expense struct {
		ID            string    `json:"id"`
		Amount        Money     `json:"amount"`
		Category      string    `json:"category"`
		Date          time.Time `json:"date,omitzero"`
		PaymentMethod string    `json:"paymentMethod,omitempty"`
	}

	// Budget is the spending limit for a (category, month) pair.
	Budget struct {
		ID        string    `json:"id"`
		Category  string    `json:"category"`
		Amount    Money     `json:"amount"`
		Month     string    `json:"month"`
		CreatedAt time.Time `json:"createdAt,omitzero"`
	}

	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
)

// Error taxonomy. Validation errors wrap ErrValidation so callers can
// branch on the family with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	ErrInvalidAmount      = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrNegativeAmount     = fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	ErrEmptyCategory      = fmt.Errorf("%w: category is required", ErrValidation)
	ErrInvalidMonth       = fmt.Errorf("%w: month must be in YYYY-MM form", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyID            = fmt.Errorf("%w: id is required", ErrValidation)
	ErrMissingCredentials = fmt.Errorf("%w: email and password are required", ErrValidation)
	ErrMissingFields      = fmt.Errorf("%w: all fields are required", ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email address", ErrValidation)
)

// Validate checks the fields a user must supply when recording an expense.
func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Normalize fills the documented defaults for missing date and payment
// method. now is used for the date.
func (e Expense) Normalize(now time.Time) Expense {
	if e.Date.IsZero() {
		e.Date = now
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = DefaultPaymentMethod
	}
	return e
}

// NeedsNormalization reports whether Normalize would change the record.
func (e Expense) NeedsNormalization() bool {
	return e.Date.IsZero() || e.PaymentMethod == ""
}

// Validate checks a budget. A zero amount is legal.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if _, _, err := ParseMonth(b.Month); err != nil {
		return err
	}
	return nil
}

// IsTotal reports whether the budget covers all categories.
func (b Budget) IsTotal() bool {
	return b.Category == TotalCategory
}

// NameFromEmail derives a display name from the local part of an email.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
