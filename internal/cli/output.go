package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// statusOrder fixes the order statuses are printed in.
var statusOrder = []core.Status{
	core.StatusOverdue,
	core.StatusDueSoon,
	core.StatusPending,
	core.StatusPaid,
	core.StatusReceived,
}

// csvRow is the exported shape of a classified line-item.
type csvRow struct {
	ID           int64  `csv:"id"`
	Kind         string `csv:"kind"`
	Description  string `csv:"description"`
	Value        string `csv:"value"`
	DueDate      string `csv:"due_date"`
	Status       string `csv:"status"`
	Category     string `csv:"category"`
	Installments string `csv:"installments"`
}

func toCSVRow(c ledger.Classified) csvRow {
	item := c.Item
	row := csvRow{
		ID:          item.ID,
		Kind:        string(item.Kind),
		Description: item.Description,
		Value:       item.Value.String(),
		DueDate:     item.DueDate.String(),
		Status:      string(c.Status),
	}
	if item.Kind == core.Expense {
		row.Category = item.Category.DisplayName()
		if item.Installments != nil {
			row.Installments = strconv.Itoa(item.Installments.NumInstallments)
		}
	}
	return row
}

func writeCSV(w io.Writer, kind core.Kind, items []ledger.Classified) error {
	rows := make([]csvRow, 0, len(items))
	for _, c := range items {
		rows = append(rows, toCSVRow(c))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write %s csv: %w", kind, err)
	}
	return nil
}

func writeTable(w io.Writer, kind core.Kind, items []ledger.Classified) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if kind == core.Expense {
		fmt.Fprintln(tw, "ID\tDUE\tSTATUS\tVALUE\tCATEGORY\tDESCRIPTION")
	} else {
		fmt.Fprintln(tw, "ID\tDUE\tSTATUS\tVALUE\tDESCRIPTION")
	}
	for _, c := range items {
		r := toCSVRow(c)
		if kind == core.Expense {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.DueDate, r.Status, r.Value, r.Category, r.Description)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.DueDate, r.Status, r.Value, r.Description)
		}
	}
	return tw.Flush()
}

func writeOverview(w io.Writer, summaries ...core.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSTATUS\tCOUNT\tTOTAL")
	for _, s := range summaries {
		for _, st := range statusOrder {
			t, ok := s.ByStatus[st]
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Kind, st, t.Count, t.Total)
		}
		fmt.Fprintf(tw, "%s\tall\t%d\t%s\n", s.Kind, s.Count, s.Total)
	}
	return tw.Flush()
}

func writeCategories(w io.Writer, cats []core.Category) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}

func writeInstallments(w io.Writer, plan []ledger.Installment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDUE\tSTATUS\tVALUE")
	for _, in := range plan {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", in.Number, in.DueDate, in.Status, in.Value)
	}
	return tw.Flush()
}
