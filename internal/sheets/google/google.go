// Package google mirrors the ledger into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// header is written to row 1 of an empty sheet. Column A holds the row key.
var header = []any{"Key", "User", "Kind", "Item", "Description", "Value", "Due date", "Settled", "Category", "Installments"}

const lastColumn = "J"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// mu serializes writes so that row lookups and updates don't interleave.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ ports.Ledger = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
func New(ctx context.Context, spreadsheetID, sheet string, credentialsJSON []byte) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return nil, errors.New("missing sheet name")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (c *Client) Upsert(ctx context.Context, row ports.LedgerRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	values := rowValues(row)

	if n := findRow(keys, row.Key); n > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, n, lastColumn, n)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{values}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	rows := [][]any{values}
	if len(keys) == 0 {
		rows = [][]any{header, values}
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, kind core.Kind, itemID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	n := findRow(keys, ports.RowKey(kind, itemID))
	if n == 0 {
		return nil
	}
	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, c.sheet, err)
	}
	return nil
}

// Rows reads every data row. Rows that fail to parse are skipped with a warning.
func (c *Client) Rows(ctx context.Context) ([]ports.LedgerRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]ports.LedgerRow, 0, len(resp.Values))
	for i, values := range resp.Values {
		if len(values) == 0 {
			continue
		}
		row, err := parseRow(values)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed sheet row", "sheet", c.sheet, "row", i+2, "error", err)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *Client) keys(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	keys := make([]string, len(resp.Values))
	for i, v := range resp.Values {
		if len(v) > 0 {
			keys[i] = strings.TrimSpace(fmt.Sprint(v[0]))
		}
	}
	return keys, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheet {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheet)
}

// findRow returns the 1-based row holding key, or 0. Row 1 is the header.
func findRow(keys []string, key string) int {
	for i, k := range keys {
		if i == 0 {
			continue
		}
		if k == key {
			return i + 1
		}
	}
	return 0
}

func rowValues(r ports.LedgerRow) []any {
	settled := "0"
	if r.Settled {
		settled = "1"
	}
	installments := ""
	if r.Installments > 0 {
		installments = strconv.Itoa(r.Installments)
	}
	return []any{
		r.Key,
		strconv.FormatInt(r.UserID, 10),
		string(r.Kind),
		strconv.FormatInt(r.ItemID, 10),
		r.Description,
		r.Value.String(),
		r.DueDate.String(),
		settled,
		r.Category,
		installments,
	}
}

func parseRow(values []any) (ports.LedgerRow, error) {
	cols := toStrings(values)
	if len(cols) < 8 {
		return ports.LedgerRow{}, fmt.Errorf("expected at least 8 columns, got %d", len(cols))
	}
	kind, err := core.ParseKind(cols[2])
	if err != nil {
		return ports.LedgerRow{}, err
	}
	userID, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil {
		return ports.LedgerRow{}, fmt.Errorf("user id %q: %w", cols[1], err)
	}
	itemID, err := strconv.ParseInt(cols[3], 10, 64)
	if err != nil {
		return ports.LedgerRow{}, fmt.Errorf("item id %q: %w", cols[3], err)
	}
	value, err := core.ParseMoney(cols[5])
	if err != nil {
		return ports.LedgerRow{}, err
	}
	due, err := core.ParseDate(cols[6])
	if err != nil {
		return ports.LedgerRow{}, err
	}
	row := ports.LedgerRow{
		Key:         cols[0],
		UserID:      userID,
		Kind:        kind,
		ItemID:      itemID,
		Description: cols[4],
		Value:       value,
		DueDate:     due,
		Settled:     cols[7] == "1" || strings.EqualFold(cols[7], "true"),
		Category:    safeGet(cols, 8),
	}
	if s := safeGet(cols, 9); s != "" {
		if row.Installments, err = strconv.Atoi(s); err != nil {
			return ports.LedgerRow{}, fmt.Errorf("installments %q: %w", s, err)
		}
	}
	if want := ports.RowKey(kind, itemID); row.Key != want {
		return ports.LedgerRow{}, fmt.Errorf("key %q does not match %q", row.Key, want)
	}
	return row, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
