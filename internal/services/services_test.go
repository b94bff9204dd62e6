package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/storage"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LineItemEvent
	err    error
}

func (p *recordingPublisher) PublishLineItemEvent(_ context.Context, evt *amqp.LineItemEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newUser(t *testing.T, repo *storage.SQLiteRepository, email string) int64 {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Ada", Email: email, PasswordHash: "x"})
	require.NoError(t, err)
	return u.ID
}

func expense(desc string, cents int64, due core.Date, paid bool) core.LineItem {
	return core.LineItem{Kind: core.Expense, Description: desc, Value: core.Cents(cents), DueDate: due, Settled: paid}
}

func TestLineItemService_CreateListFilter(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	pub := &recordingPublisher{}
	svc := NewLineItemService(repo, pub)

	_, err := svc.Create(ctx, userID, expense("Rent", 90000, core.NewDate(2025, 3, 1), false))
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, expense("Power", 6000, core.NewDate(2025, 3, 11), false))
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, expense("Gym", 3000, core.NewDate(2025, 3, 20), true))
	require.NoError(t, err)

	all, err := svc.List(ctx, userID, core.Expense, now)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []core.Status{core.StatusOverdue, core.StatusDueSoon, core.StatusPaid},
		[]core.Status{all[0].Status, all[1].Status, all[2].Status})

	overdue, err := svc.Filter(ctx, userID, core.Expense, ledger.Criteria{Statuses: ledger.FlagsFor(core.StatusOverdue)}, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Rent", overdue[0].Item.Description)

	revenues, err := svc.List(ctx, userID, core.Revenue, now)
	require.NoError(t, err)
	assert.Empty(t, revenues)

	assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventCreated, amqp.EventCreated}, pub.types())
}

func TestLineItemService_RevenueDropsExpenseFields(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	svc := NewLineItemService(repo, nil)

	created, err := svc.Create(ctx, userID, core.LineItem{
		Kind:         core.Revenue,
		Description:  "Salary",
		Value:        core.Cents(250000),
		DueDate:      core.NewDate(2025, 3, 27),
		Category:     &core.Category{ID: 99},
		Installments: &core.InstallmentPlan{NumInstallments: 2, PaymentDay: 5},
	})
	require.NoError(t, err)
	assert.Nil(t, created.Category)
	assert.Nil(t, created.Installments)
}

func TestLineItemService_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	pub := &recordingPublisher{}
	svc := NewLineItemService(repo, pub)

	_, err := svc.Create(ctx, userID, expense("", 100, core.NewDate(2025, 3, 1), false))
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = svc.Create(ctx, userID, expense("Neg", -1, core.NewDate(2025, 3, 1), false))
	assert.ErrorIs(t, err, core.ErrNegativeValue)

	bad := expense("Orphan", 100, core.NewDate(2025, 3, 1), false)
	bad.Category = &core.Category{ID: 12345}
	_, err = svc.Create(ctx, userID, bad)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.Empty(t, pub.types(), "rejected items must not publish")
}

func TestLineItemService_CategoriesAreScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	alice := newUser(t, repo, "alice@example.com")
	bob := newUser(t, repo, "bob@example.com")
	cats := NewCategoryService(repo)
	svc := NewLineItemService(repo, nil)

	foreign, _, err := cats.Ensure(ctx, bob, "Food")
	require.NoError(t, err)

	item := expense("Lunch", 1200, core.NewDate(2025, 3, 1), false)
	item.Category = &core.Category{ID: foreign.ID}
	_, err = svc.Create(ctx, alice, item)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestLineItemService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	pub := &recordingPublisher{}
	svc := NewLineItemService(repo, pub)

	created, err := svc.Create(ctx, userID, expense("Rent", 90000, core.NewDate(2025, 3, 1), false))
	require.NoError(t, err)

	created.Settled = true
	updated, err := svc.Update(ctx, userID, created)
	require.NoError(t, err)
	assert.True(t, updated.Settled)

	got, err := svc.Get(ctx, userID, core.Expense, created.ID, now)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, got.Status)

	_, err = svc.Get(ctx, userID, core.Revenue, created.ID, now)
	assert.ErrorIs(t, err, storage.ErrNotFound, "an expense is not reachable as a revenue")

	assert.ErrorIs(t, svc.Delete(ctx, userID, core.Revenue, created.ID), storage.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, userID, core.Expense, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, userID, core.Expense, created.ID), storage.ErrNotFound)

	assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}, pub.types())
}

func TestLineItemService_PublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	svc := NewLineItemService(repo, &recordingPublisher{err: errors.New("circuit breaker is open")})

	created, err := svc.Create(ctx, userID, expense("Rent", 90000, core.NewDate(2025, 3, 1), false))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestLineItemService_Installments(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	svc := NewLineItemService(repo, nil)

	item := expense("Laptop", 100000, core.NewDate(2025, 1, 31), false)
	item.Installments = &core.InstallmentPlan{NumInstallments: 3, PaymentDay: 31}
	created, err := svc.Create(ctx, userID, item)
	require.NoError(t, err)

	plan, err := svc.Installments(ctx, userID, created.ID, now)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, "2025-02-28", plan[1].DueDate.String())
	assert.Equal(t, int64(33334), plan[0].Value.Cents)

	plain, err := svc.Create(ctx, userID, expense("Coffee", 300, core.NewDate(2025, 3, 1), false))
	require.NoError(t, err)
	_, err = svc.Installments(ctx, userID, plain.ID, now)
	assert.ErrorIs(t, err, ledger.ErrNoInstallmentPlan)
}

func TestLineItemService_Summary(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	svc := NewLineItemService(repo, nil)

	_, err := svc.Create(ctx, userID, expense("Rent", 90000, core.NewDate(2025, 3, 1), false))
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, expense("Gym", 3000, core.NewDate(2025, 3, 1), true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, core.LineItem{
		Kind: core.Revenue, Description: "Salary", Value: core.Cents(250000), DueDate: core.NewDate(2025, 3, 27),
	})
	require.NoError(t, err)

	overview, err := svc.Summary(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.Expenses.Count)
	assert.Equal(t, int64(93000), overview.Expenses.Total.Cents)
	assert.Equal(t, 1, overview.Expenses.ByStatus[core.StatusOverdue].Count)
	assert.Equal(t, 1, overview.Revenues.ByStatus[core.StatusPending].Count)
}

func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	cats := NewCategoryService(repo)
	items := NewLineItemService(repo, nil)

	_, _, err := cats.Ensure(ctx, userID, "  ")
	assert.ErrorIs(t, err, core.ErrEmptyCategoryName)

	food, created, err := cats.Ensure(ctx, userID, "Food")
	require.NoError(t, err)
	assert.True(t, created)

	list, err := cats.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	again, created, err := cats.Ensure(ctx, userID, "food")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, food.ID, again.ID)

	_, _, err = cats.Ensure(ctx, userID, "Rent")
	require.NoError(t, err)
	list, err = cats.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 2, "creating a category invalidates the cached list")

	item := expense("Groceries", 4500, core.NewDate(2025, 3, 1), false)
	item.Category = &core.Category{ID: food.ID}
	stored, err := items.Create(ctx, userID, item)
	require.NoError(t, err)
	assert.Equal(t, "Food", stored.Category.Name)

	detached, err := cats.Delete(ctx, userID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	got, err := items.Get(ctx, userID, core.Expense, stored.ID, now)
	require.NoError(t, err)
	assert.Nil(t, got.Item.Category)
	assert.Equal(t, core.UncategorizedName, got.Item.Category.DisplayName())

	list, err = cats.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCategoryService_ListReturnsCallerOwnedSlice(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	cats := NewCategoryService(repo)

	_, _, err := cats.Ensure(ctx, userID, "Food")
	require.NoError(t, err)

	first, err := cats.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Name = "Clobbered"

	second, err := cats.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Food", second[0].Name)
}

func TestSavingService(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	userID := newUser(t, repo, "ada@example.com")
	svc := NewSavingService(repo)

	_, err := svc.Create(ctx, userID, core.Saving{Description: "Trip", Goal: core.Cents(0)})
	assert.ErrorIs(t, err, core.ErrInvalidGoal)

	trip, err := svc.Create(ctx, userID, core.Saving{Priority: 2, Description: "Trip", Value: core.Cents(100), Goal: core.Cents(1000)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, core.Saving{Priority: 1, Description: "Emergency", Goal: core.Cents(5000)})
	require.NoError(t, err)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Emergency", list[0].Description)

	trip.Value = core.Cents(1000)
	updated, err := svc.Update(ctx, userID, trip)
	require.NoError(t, err)
	assert.Equal(t, float64(100), updated.Progress())

	require.NoError(t, svc.Delete(ctx, userID, trip.ID))
	assert.ErrorIs(t, svc.Delete(ctx, userID, trip.ID), storage.ErrNotFound)
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	issuer := auth.NewIssuer("0123456789abcdef0123", time.Hour)
	svc := NewAuthService(repo, issuer)

	user, tok, err := svc.Register(ctx, Registration{Name: "Ada", Email: "Ada@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	id, err := issuer.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, _, err = svc.Register(ctx, Registration{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	_, _, err = svc.Register(ctx, Registration{Name: "Bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	_, _, err = svc.Register(ctx, Registration{Name: "Bob", Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, core.ErrInvalidEmail)

	logged, _, err := svc.Login(ctx, "ADA@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)
}
