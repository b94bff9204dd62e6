package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// OwnedLineItem is a line-item together with the user it belongs to.
type OwnedLineItem struct {
	UserID int64
	Item   core.LineItem
}

const lineItemSelect = `
SELECT li.id, li.user_id, li.kind, li.description, li.value_cents, li.due_date, li.settled,
       li.category_id, COALESCE(c.name, ''), li.num_installments, li.payment_day
FROM line_items li
LEFT JOIN categories c ON c.id = li.category_id`

func scanLineItem(row interface{ Scan(...any) error }) (OwnedLineItem, error) {
	var (
		out          OwnedLineItem
		kind         string
		due          string
		settled      int
		categoryID   sql.NullInt64
		categoryName string
		numInst      sql.NullInt64
		paymentDay   sql.NullInt64
	)
	item := &out.Item
	if err := row.Scan(&item.ID, &out.UserID, &kind, &item.Description, &item.Value.Cents, &due, &settled,
		&categoryID, &categoryName, &numInst, &paymentDay); err != nil {
		return OwnedLineItem{}, err
	}
	k, err := core.ParseKind(kind)
	if err != nil {
		return OwnedLineItem{}, fmt.Errorf("line-item %d: %w", item.ID, err)
	}
	item.Kind = k
	if item.DueDate, err = core.ParseDate(due); err != nil {
		return OwnedLineItem{}, fmt.Errorf("line-item %d: %w", item.ID, err)
	}
	item.Settled = settled == 1
	if categoryID.Valid {
		item.Category = &core.Category{ID: categoryID.Int64, Name: categoryName}
	}
	if numInst.Valid && paymentDay.Valid {
		item.Installments = &core.InstallmentPlan{
			NumInstallments: int(numInst.Int64),
			PaymentDay:      int(paymentDay.Int64),
		}
	}
	return out, nil
}

func lineItemArgs(item core.LineItem) (categoryID, numInst, paymentDay any) {
	if item.Category != nil {
		categoryID = item.Category.ID
	}
	if item.Installments != nil {
		numInst = item.Installments.NumInstallments
		paymentDay = item.Installments.PaymentDay
	}
	return categoryID, numInst, paymentDay
}

func (r *SQLiteRepository) queryLineItems(ctx context.Context, query string, args ...any) ([]OwnedLineItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OwnedLineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

// ListLineItems returns the user's items of one kind in insertion order.
func (r *SQLiteRepository) ListLineItems(ctx context.Context, userID int64, kind core.Kind) ([]core.LineItem, error) {
	owned, err := r.queryLineItems(ctx, lineItemSelect+` WHERE li.user_id = ? AND li.kind = ? ORDER BY li.id`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s line-items: %w", kind, err)
	}
	items := make([]core.LineItem, 0, len(owned))
	for _, o := range owned {
		items = append(items, o.Item)
	}
	return items, nil
}

// ListAllLineItems returns every stored item across users.
func (r *SQLiteRepository) ListAllLineItems(ctx context.Context) ([]OwnedLineItem, error) {
	owned, err := r.queryLineItems(ctx, lineItemSelect+` ORDER BY li.id`)
	if err != nil {
		return nil, fmt.Errorf("list all line-items: %w", err)
	}
	return owned, nil
}

func (r *SQLiteRepository) GetLineItem(ctx context.Context, userID, id int64) (core.LineItem, error) {
	row := r.db.QueryRowContext(ctx, lineItemSelect+` WHERE li.user_id = ? AND li.id = ?`, userID, id)
	li, err := scanLineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LineItem{}, ErrNotFound
	}
	if err != nil {
		return core.LineItem{}, fmt.Errorf("get line-item %d: %w", id, err)
	}
	return li.Item, nil
}

func (r *SQLiteRepository) CreateLineItem(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error) {
	categoryID, numInst, paymentDay := lineItemArgs(item)
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO line_items (user_id, kind, description, value_cents, due_date, settled, category_id, num_installments, payment_day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		userID, string(item.Kind), item.Description, item.Value.Cents, item.DueDate.String(), boolToInt(item.Settled),
		categoryID, numInst, paymentDay).Scan(&id)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("insert line-item: %w", err)
	}

	slog.InfoContext(ctx, "Line-item saved",
		"item_id", id,
		"user_id", userID,
		"kind", item.Kind,
		"amount_cents", item.Value.Cents,
		"due_date", item.DueDate.String())

	return r.GetLineItem(ctx, userID, id)
}

// UpdateLineItem replaces description, value, due date, settled flag, category
// and installment plan of an existing item of the same kind.
func (r *SQLiteRepository) UpdateLineItem(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error) {
	categoryID, numInst, paymentDay := lineItemArgs(item)
	res, err := r.db.ExecContext(ctx,
		`UPDATE line_items
		 SET description = ?, value_cents = ?, due_date = ?, settled = ?, category_id = ?,
		     num_installments = ?, payment_day = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND kind = ?`,
		item.Description, item.Value.Cents, item.DueDate.String(), boolToInt(item.Settled), categoryID,
		numInst, paymentDay, item.ID, userID, string(item.Kind))
	if err != nil {
		return core.LineItem{}, fmt.Errorf("update line-item %d: %w", item.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return core.LineItem{}, err
	}
	return r.GetLineItem(ctx, userID, item.ID)
}

func (r *SQLiteRepository) DeleteLineItem(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM line_items WHERE id = ? AND user_id = ? AND kind = ?`, id, userID, string(kind))
	if err != nil {
		return fmt.Errorf("delete line-item %d: %w", id, err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Line-item deleted", "item_id", id, "user_id", userID, "kind", kind)
	return nil
}
