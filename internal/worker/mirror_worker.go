// Package worker keeps the spreadsheet mirror in step with the database.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// LineItemSource is the read side of the ledger database.
type LineItemSource interface {
	GetLineItem(ctx context.Context, userID, id int64) (core.LineItem, error)
	ListAllLineItems(ctx context.Context) ([]storage.OwnedLineItem, error)
}

// ResyncStats summarizes a full resync.
type ResyncStats struct {
	Upserted int
	Removed  int
	Failed   int
}

// MirrorWorker applies line-item events to a spreadsheet and periodically
// rebuilds it from the database to recover from missed events.
type MirrorWorker struct {
	source LineItemSource
	sheet  sheets.Ledger
	logger *log.Logger
}

func NewMirrorWorker(source LineItemSource, sheet sheets.Ledger, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		source: source,
		sheet:  sheet,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single line-item event from AMQP. The current
// record is always read back from the database, so stale or reordered events
// converge on the latest state.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.LineItemEvent) error {
	w.logger.InfoContext(ctx, "Processing line-item event",
		"event_id", evt.ID,
		"type", evt.Type,
		log.FieldKind, evt.Kind,
		log.FieldItemID, evt.ItemID,
		log.FieldUserID, evt.UserID)

	if evt.Type == amqp.EventDeleted {
		return w.remove(ctx, evt.Kind, evt.ItemID)
	}

	item, err := w.source.GetLineItem(ctx, evt.UserID, evt.ItemID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted after the event was published.
		return w.remove(ctx, evt.Kind, evt.ItemID)
	}
	if err != nil {
		return fmt.Errorf("get line-item %d: %w", evt.ItemID, err)
	}
	if err := w.sheet.Upsert(ctx, sheets.RowFromItem(evt.UserID, item)); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, kind core.Kind, itemID int64) error {
	if err := w.sheet.Remove(ctx, kind, itemID); err != nil {
		return fmt.Errorf("remove row %s: %w", sheets.RowKey(kind, itemID), err)
	}
	return nil
}

// Resync writes every stored line-item to the sheet and removes rows whose
// item no longer exists. Individual row failures are counted, not fatal.
func (w *MirrorWorker) Resync(ctx context.Context) (ResyncStats, error) {
	var stats ResyncStats

	items, err := w.source.ListAllLineItems(ctx)
	if err != nil {
		return stats, fmt.Errorf("list line-items: %w", err)
	}
	rows, err := w.sheet.Rows(ctx)
	if err != nil {
		return stats, fmt.Errorf("read sheet rows: %w", err)
	}

	live := make(map[string]struct{}, len(items))
	for _, owned := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row := sheets.RowFromItem(owned.UserID, owned.Item)
		live[row.Key] = struct{}{}
		if err := w.sheet.Upsert(ctx, row); err != nil {
			w.logger.ErrorContext(ctx, "Failed to upsert row during resync", "key", row.Key, log.FieldError, err)
			stats.Failed++
			continue
		}
		stats.Upserted++
	}

	for _, row := range rows {
		if _, ok := live[row.Key]; ok {
			continue
		}
		if err := w.sheet.Remove(ctx, row.Kind, row.ItemID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to remove stale row", "key", row.Key, log.FieldError, err)
			stats.Failed++
			continue
		}
		stats.Removed++
	}

	w.logger.InfoContext(ctx, "Resync completed",
		log.FieldOperation, log.OpSync,
		"upserted", stats.Upserted,
		"removed", stats.Removed,
		"failed", stats.Failed)
	return stats, nil
}
