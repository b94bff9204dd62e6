package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

type fixture struct {
	repo   *storage.SQLiteRepository
	sheet  *memory.Store
	worker *MirrorWorker
	userID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), core.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	sheet := memory.New()
	return &fixture{repo: repo, sheet: sheet, worker: NewMirrorWorker(repo, sheet, nil), userID: u.ID}
}

func (f *fixture) create(t *testing.T, kind core.Kind, desc string, cents int64) core.LineItem {
	t.Helper()
	item, err := f.repo.CreateLineItem(context.Background(), f.userID, core.LineItem{
		Kind: kind, Description: desc, Value: core.Cents(cents), DueDate: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)
	return item
}

func TestHandleEventUpsertsCurrentRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rent := f.create(t, core.Expense, "Rent", 90000)

	require.NoError(t, f.worker.HandleEvent(ctx, amqp.NewLineItemEvent(amqp.EventCreated, f.userID, core.Expense, rent.ID)))

	rent.Settled = true
	_, err := f.repo.UpdateLineItem(ctx, f.userID, rent)
	require.NoError(t, err)
	require.NoError(t, f.worker.HandleEvent(ctx, amqp.NewLineItemEvent(amqp.EventUpdated, f.userID, core.Expense, rent.ID)))

	rows, _ := f.sheet.Rows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, sheets.RowKey(core.Expense, rent.ID), rows[0].Key)
	assert.True(t, rows[0].Settled)
	assert.Equal(t, core.UncategorizedName, rows[0].Category)
	assert.Equal(t, f.userID, rows[0].UserID)
}

func TestHandleEventRemovesRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.create(t, core.Revenue, "Salary", 250000)
	b := f.create(t, core.Revenue, "Bonus", 50000)
	for _, id := range []int64{a.ID, b.ID} {
		require.NoError(t, f.worker.HandleEvent(ctx, amqp.NewLineItemEvent(amqp.EventCreated, f.userID, core.Revenue, id)))
	}

	require.NoError(t, f.worker.HandleEvent(ctx, amqp.NewLineItemEvent(amqp.EventDeleted, f.userID, core.Revenue, a.ID)))

	// An update for an item deleted in the meantime also drops its row.
	require.NoError(t, f.repo.DeleteLineItem(ctx, f.userID, core.Revenue, b.ID))
	require.NoError(t, f.worker.HandleEvent(ctx, amqp.NewLineItemEvent(amqp.EventUpdated, f.userID, core.Revenue, b.ID)))

	rows, _ := f.sheet.Rows(ctx)
	assert.Empty(t, rows)
}

type failingSource struct{ LineItemSource }

func (failingSource) GetLineItem(context.Context, int64, int64) (core.LineItem, error) {
	return core.LineItem{}, errors.New("database is locked")
}

func (failingSource) ListAllLineItems(context.Context) ([]storage.OwnedLineItem, error) {
	return nil, errors.New("database is locked")
}

func TestHandleEventPropagatesSourceErrors(t *testing.T) {
	w := NewMirrorWorker(failingSource{}, memory.New(), nil)
	err := w.HandleEvent(context.Background(), amqp.NewLineItemEvent(amqp.EventCreated, 1, core.Expense, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	_, err = w.Resync(context.Background())
	assert.Error(t, err)
}

func TestResyncRebuildsSheet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat, _, err := f.repo.EnsureCategory(ctx, f.userID, "Home")
	require.NoError(t, err)

	rent, err := f.repo.CreateLineItem(ctx, f.userID, core.LineItem{
		Kind: core.Expense, Description: "Rent", Value: core.Cents(90000), DueDate: core.NewDate(2025, 3, 1),
		Category: &cat, Installments: &core.InstallmentPlan{NumInstallments: 2, PaymentDay: 5},
	})
	require.NoError(t, err)
	f.create(t, core.Revenue, "Salary", 250000)

	require.NoError(t, f.sheet.Upsert(ctx, sheets.LedgerRow{Key: sheets.RowKey(core.Expense, 999), Kind: core.Expense, ItemID: 999}))
	require.NoError(t, f.sheet.Upsert(ctx, sheets.LedgerRow{Key: sheets.RowKey(core.Expense, rent.ID), Kind: core.Expense, ItemID: rent.ID, Description: "stale"}))

	stats, err := f.worker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResyncStats{Upserted: 2, Removed: 1}, stats)

	rows, _ := f.sheet.Rows(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rent", rows[0].Description)
	assert.Equal(t, "Home", rows[0].Category)
	assert.Equal(t, 2, rows[0].Installments)
	assert.Equal(t, core.Revenue, rows[1].Kind)
	assert.Empty(t, rows[1].Category)

	stats, err = f.worker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResyncStats{Upserted: 2}, stats, "resync is idempotent")
}
