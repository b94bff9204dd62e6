// Package sheets defines the spreadsheet mirror of the ledger.
package sheets

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// LedgerRow is one line-item as mirrored to a spreadsheet. Key is unique
// across kinds.
type LedgerRow struct {
	Key          string
	UserID       int64
	Kind         core.Kind
	ItemID       int64
	Description  string
	Value        core.Money
	DueDate      core.Date
	Settled      bool
	Category     string
	Installments int
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		// Upsert replaces the row with the same key or appends a new one.
		Upsert(ctx context.Context, row LedgerRow) error
		// Remove deletes the row of a line-item. Missing rows are not an error.
		Remove(ctx context.Context, kind core.Kind, itemID int64) error
	}

	LedgerReader interface {
		Rows(ctx context.Context) ([]LedgerRow, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)

// RowKey identifies a line-item row, e.g. "expense:42".
func RowKey(kind core.Kind, itemID int64) string {
	return fmt.Sprintf("%s:%d", kind, itemID)
}

// RowFromItem flattens a stored line-item. Expenses without a category show
// as uncategorized.
func RowFromItem(userID int64, item core.LineItem) LedgerRow {
	row := LedgerRow{
		Key:         RowKey(item.Kind, item.ID),
		UserID:      userID,
		Kind:        item.Kind,
		ItemID:      item.ID,
		Description: item.Description,
		Value:       item.Value,
		DueDate:     item.DueDate,
		Settled:     item.Settled,
	}
	if item.Kind == core.Expense {
		row.Category = item.Category.DisplayName()
		if item.Installments != nil {
			row.Installments = item.Installments.NumInstallments
		}
	}
	return row
}
