package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Revenue Kind = "revenue"
	Expense Kind = "expense"
)

const (
	StatusPaid     Status = "paid"
	StatusReceived Status = "received"
	StatusPending  Status = "pending"
	StatusOverdue  Status = "overdue"
	StatusDueSoon  Status = "due_soon"
)

// UncategorizedName is displayed for expenses whose category was removed.
const UncategorizedName = "Uncategorized"

const (
	maxDescriptionLen  = 200
	maxCategoryNameLen = 50
)

type (
	// Kind tells revenues and expenses apart.
	Kind string

	// Status is derived from a line-item and the current instant. It is never stored.
	Status string

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// InstallmentPlan splits an expense into monthly payments on PaymentDay.
	InstallmentPlan struct {
		NumInstallments int
		PaymentDay      int
	}

	// LineItem is a revenue or an expense. Settled means received for
	// revenues and paid for expenses.
	LineItem struct {
		ID           int64
		Kind         Kind
		Description  string
		Value        Money
		DueDate      Date
		Settled      bool
		Category     *Category        // expenses only
		Installments *InstallmentPlan // expenses only
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNegativeValue       = errors.New("value cannot be negative")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrInvalidInstallments = errors.New("number of installments must be at least 1")
	ErrInvalidPaymentDay   = errors.New("payment day must be between 1 and 31")
	ErrUnknownKind         = errors.New("unknown line-item kind")
	ErrEmptyCategoryName   = errors.New("empty category name")
	ErrCategoryNameTooLong = fmt.Errorf("category name too long (max %d characters)", maxCategoryNameLen)
)

// ParseKind accepts the singular and plural spellings used by the API paths.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "revenue", "revenues":
		return Revenue, nil
	case "expense", "expenses":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Valid() bool {
	return k == Revenue || k == Expense
}

func (k Kind) String() string { return string(k) }

// SettledStatus is the status of a settled item of this kind.
func (k Kind) SettledStatus() Status {
	if k == Revenue {
		return StatusReceived
	}
	return StatusPaid
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategoryName
	}
	if len(name) > maxCategoryNameLen {
		return ErrCategoryNameTooLong
	}
	return nil
}

// DisplayName returns the category name, or UncategorizedName for a nil category.
func (c *Category) DisplayName() string {
	if c == nil {
		return UncategorizedName
	}
	return c.Name
}

func (p InstallmentPlan) Validate() error {
	if p.NumInstallments < 1 {
		return ErrInvalidInstallments
	}
	if p.PaymentDay < 1 || p.PaymentDay > 31 {
		return ErrInvalidPaymentDay
	}
	return nil
}

func (li LineItem) Validate() error {
	if !li.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, li.Kind)
	}
	if err := li.DueDate.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(li.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := li.Value.Validate(); err != nil {
		return err
	}
	if li.Installments != nil {
		if err := li.Installments.Validate(); err != nil {
			return err
		}
	}
	return nil
}
