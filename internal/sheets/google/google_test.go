package google

import (
	"context"
	"strings"
	"testing"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name, id, sheet string
		creds           []byte
		want            string
	}{
		{"missing id", " ", "Ledger", []byte("{}"), "missing spreadsheet id"},
		{"missing sheet", "abc", "", []byte("{}"), "missing sheet name"},
		{"missing creds", "abc", "Ledger", nil, "missing service account credentials"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(ctx, tc.id, tc.sheet, tc.creds)
			if err == nil || err.Error() != tc.want {
				t.Fatalf("want %q, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Ledger"}
	ctx := context.Background()
	if err := c.Upsert(ctx, ports.LedgerRow{Key: "expense:1"}); err == nil {
		t.Fatal("expected error from Upsert without service")
	}
	if err := c.Remove(ctx, core.Expense, 1); err == nil {
		t.Fatal("expected error from Remove without service")
	}
	if _, err := c.Rows(ctx); err == nil {
		t.Fatal("expected error from Rows without service")
	}
}

func TestRowValuesParseRow(t *testing.T) {
	row := ports.LedgerRow{
		Key:          "expense:42",
		UserID:       7,
		Kind:         core.Expense,
		ItemID:       42,
		Description:  "Laptop",
		Value:        core.Cents(100000),
		DueDate:      core.NewDate(2025, 3, 11),
		Settled:      true,
		Category:     "Work",
		Installments: 3,
	}
	values := rowValues(row)
	if len(values) != len(header) {
		t.Fatalf("row has %d columns, header %d", len(values), len(header))
	}
	if values[5] != "1000.00" || values[6] != "2025-03-11" || values[7] != "1" {
		t.Fatalf("unexpected values: %v", values)
	}
	got, err := parseRow(values)
	if err != nil {
		t.Fatalf("parseRow: %v", err)
	}
	if got != row {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, row)
	}
}

func TestParseRow_SheetFormatting(t *testing.T) {
	// Sheets returns formatted values; numbers may come back as float64
	// and trailing empty cells are dropped.
	got, err := parseRow([]any{"revenue:3", 7.0, "revenue", 3.0, "Salary", "2500,5", "2025-03-27", "0"})
	if err != nil {
		t.Fatalf("parseRow: %v", err)
	}
	if got.Value.Cents != 250050 || got.Settled || got.Category != "" || got.Installments != 0 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestParseRow_Errors(t *testing.T) {
	cases := map[string][]any{
		"short":        {"expense:1", "7", "expense"},
		"kind":         {"x:1", "7", "loan", "1", "d", "1", "2025-01-01", "0"},
		"user":         {"expense:1", "u", "expense", "1", "d", "1", "2025-01-01", "0"},
		"value":        {"expense:1", "7", "expense", "1", "d", "abc", "2025-01-01", "0"},
		"date":         {"expense:1", "7", "expense", "1", "d", "1", "01/01/2025", "0"},
		"installments": {"expense:1", "7", "expense", "1", "d", "1", "2025-01-01", "0", "Food", "three"},
		"key mismatch": {"expense:2", "7", "expense", "1", "d", "1", "2025-01-01", "0"},
	}
	for name, values := range cases {
		if _, err := parseRow(values); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFindRow(t *testing.T) {
	keys := []string{"Key", "revenue:1", "", "expense:1"}
	if n := findRow(keys, "expense:1"); n != 4 {
		t.Fatalf("want row 4, got %d", n)
	}
	if n := findRow(keys, "Key"); n != 0 {
		t.Fatalf("header must never match, got %d", n)
	}
	if n := findRow(nil, "revenue:1"); n != 0 {
		t.Fatalf("want 0 on empty sheet, got %d", n)
	}
}

func TestHeaderMatchesColumns(t *testing.T) {
	if got := strings.ToUpper(string(rune('A' + len(header) - 1))); got != lastColumn {
		t.Fatalf("header spans to %s, lastColumn is %s", got, lastColumn)
	}
}
