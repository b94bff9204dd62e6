package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Flag is a 0/1 wire boolean. It also decodes JSON booleans and "0"/"1" strings.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", b)
	}
	return nil
}

// RawLineItem is a line-item as exchanged with the persistence API.
// Expenses carry Paid, revenues carry Received. Status is output only.
type RawLineItem struct {
	ID              int64          `json:"id"`
	Description     string         `json:"description"`
	Value           core.Money     `json:"value"`
	DueDate         string         `json:"due_date"`
	Paid            *Flag          `json:"paid,omitempty"`
	Received        *Flag          `json:"received,omitempty"`
	CategoryID      *int64         `json:"category_id,omitempty"`
	Category        *core.Category `json:"category,omitempty"`
	NumInstallments int            `json:"num_installments,omitempty"`
	PaymentDay      int            `json:"payment_day,omitempty"`
	Status          core.Status    `json:"status,omitempty"`
}

// Normalize turns a raw record into a validated line-item of the given kind.
// Malformed dates fail with core.ErrInvalidDate.
func Normalize(raw RawLineItem, kind core.Kind) (core.LineItem, error) {
	if !kind.Valid() {
		return core.LineItem{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
	due, err := core.ParseDate(raw.DueDate)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("line-item %d: %w", raw.ID, err)
	}
	item := core.LineItem{
		ID:          raw.ID,
		Kind:        kind,
		Description: strings.TrimSpace(raw.Description),
		Value:       raw.Value,
		DueDate:     due,
	}
	switch kind {
	case core.Revenue:
		item.Settled = raw.Received != nil && bool(*raw.Received)
	case core.Expense:
		item.Settled = raw.Paid != nil && bool(*raw.Paid)
		switch {
		case raw.Category != nil && raw.Category.ID != 0:
			c := *raw.Category
			item.Category = &c
		case raw.CategoryID != nil && *raw.CategoryID != 0:
			item.Category = &core.Category{ID: *raw.CategoryID}
		}
		if raw.NumInstallments > 0 || raw.PaymentDay > 0 {
			item.Installments = &core.InstallmentPlan{
				NumInstallments: raw.NumInstallments,
				PaymentDay:      raw.PaymentDay,
			}
		}
	}
	if err := item.Value.Validate(); err != nil {
		return core.LineItem{}, fmt.Errorf("line-item %d: %w", raw.ID, err)
	}
	if item.Installments != nil {
		if err := item.Installments.Validate(); err != nil {
			return core.LineItem{}, fmt.Errorf("line-item %d: %w", raw.ID, err)
		}
	}
	return item, nil
}

// NormalizeAll normalizes every record, stopping at the first malformed one.
func NormalizeAll(raws []RawLineItem, kind core.Kind) ([]core.LineItem, error) {
	items := make([]core.LineItem, 0, len(raws))
	for _, raw := range raws {
		item, err := Normalize(raw, kind)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ToRaw renders a classified line-item in wire form.
func ToRaw(c Classified) RawLineItem {
	item := c.Item
	settled := Flag(item.Settled)
	raw := RawLineItem{
		ID:          item.ID,
		Description: item.Description,
		Value:       item.Value,
		DueDate:     item.DueDate.String(),
		Status:      c.Status,
	}
	if item.Kind == core.Revenue {
		raw.Received = &settled
		return raw
	}
	raw.Paid = &settled
	if item.Category != nil {
		cat := *item.Category
		raw.Category = &cat
		raw.CategoryID = &cat.ID
	} else {
		raw.Category = &core.Category{Name: core.UncategorizedName}
	}
	if item.Installments != nil {
		raw.NumInstallments = item.Installments.NumInstallments
		raw.PaymentDay = item.Installments.PaymentDay
	}
	return raw
}

// ToRawAll renders every classified item in order.
func ToRawAll(items []Classified) []RawLineItem {
	out := make([]RawLineItem, 0, len(items))
	for _, c := range items {
		out = append(out, ToRaw(c))
	}
	return out
}

// FilterForm is the wire shape of Criteria. Blank strings and nulls leave a
// constraint unset.
type FilterForm struct {
	Description string          `json:"description"`
	DateStart   string          `json:"date_start"`
	DateEnd     string          `json:"date_end"`
	Min         json.RawMessage `json:"min,omitempty"`
	Max         json.RawMessage `json:"max,omitempty"`
	Categories  []core.Category `json:"categories,omitempty"`
	Status      StatusFlags     `json:"status"`
}

// Criteria parses the form.
func (f FilterForm) Criteria() (Criteria, error) {
	c := Criteria{
		Description: strings.TrimSpace(f.Description),
		Statuses:    f.Status,
	}
	var err error
	if c.DateStart, err = optionalDate(f.DateStart); err != nil {
		return Criteria{}, fmt.Errorf("date_start: %w", err)
	}
	if c.DateEnd, err = optionalDate(f.DateEnd); err != nil {
		return Criteria{}, fmt.Errorf("date_end: %w", err)
	}
	if c.Min, err = optionalMoney(f.Min); err != nil {
		return Criteria{}, fmt.Errorf("min: %w", err)
	}
	if c.Max, err = optionalMoney(f.Max); err != nil {
		return Criteria{}, fmt.Errorf("max: %w", err)
	}
	for _, cat := range f.Categories {
		c.Categories = append(c.Categories, cat.ID)
	}
	return c, nil
}

// FormOf is the inverse of FilterForm.Criteria.
func FormOf(c Criteria) FilterForm {
	f := FilterForm{
		Description: c.Description,
		Status:      c.Statuses,
	}
	if c.DateStart != nil {
		f.DateStart = c.DateStart.String()
	}
	if c.DateEnd != nil {
		f.DateEnd = c.DateEnd.String()
	}
	if c.Min != nil {
		f.Min = json.RawMessage(c.Min.String())
	}
	if c.Max != nil {
		f.Max = json.RawMessage(c.Max.String())
	}
	for _, id := range c.Categories {
		f.Categories = append(f.Categories, core.Category{ID: id})
	}
	return f
}

func optionalDate(s string) (*core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalMoney(b json.RawMessage) (*core.Money, error) {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" || s == `""` {
		return nil, nil
	}
	var m core.Money
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
