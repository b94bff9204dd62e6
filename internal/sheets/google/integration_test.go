//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LedgerMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if spreadsheetID == "" || credsFile == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or GOOGLE_SERVICE_ACCOUNT_FILE not set")
	}
	creds, err := os.ReadFile(credsFile)
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	sheet := os.Getenv("GOOGLE_SHEET_NAME")
	if sheet == "" {
		sheet = "Ledger"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client, err := New(ctx, spreadsheetID, sheet, creds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	itemID := time.Now().UnixNano() % 1_000_000
	row := ports.RowFromItem(1, core.LineItem{
		ID:          itemID,
		Kind:        core.Expense,
		Description: "integration test",
		Value:       core.Cents(1234),
		DueDate:     core.DateOf(time.Now()),
	})
	if err := client.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	row.Settled = true
	if err := client.Upsert(ctx, row); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	rows, err := client.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	found := 0
	for _, r := range rows {
		if r.Key == row.Key {
			found++
			if !r.Settled {
				t.Errorf("row not updated in place: %+v", r)
			}
		}
	}
	if found != 1 {
		t.Fatalf("want exactly one row for %s, found %d", row.Key, found)
	}

	if err := client.Remove(ctx, core.Expense, itemID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}
