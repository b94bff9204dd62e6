package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	apihttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// newAPI starts a real API server backed by a temporary database and returns
// a client logged in as a fresh user.
func newAPI(t *testing.T) *Client {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	issuer := auth.NewIssuer("client-test-secret-0123", time.Hour)
	authSvc := services.NewAuthService(repo, issuer)
	srv := apihttp.NewServer(apihttp.Options{
		Auth:       authSvc,
		LineItems:  services.NewLineItemService(repo, nil),
		Categories: services.NewCategoryService(repo),
		Savings:    services.NewSavingService(repo),
		Verifier:   issuer,
		Logger:     log.Discard(),
		Now:        func() time.Time { return now },
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})

	_, _, err = authSvc.Register(context.Background(), services.Registration{
		Name: "Ada", Email: "ada@example.com", Password: "correct horse",
	})
	require.NoError(t, err)

	c, err := New(ts.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)

	c, err := New("http://localhost:8081/", WithToken(" abc "))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081", c.baseURL.String())
	assert.Equal(t, "abc", c.token)
}

func TestLoginAndMe(t *testing.T) {
	c := newAPI(t)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = c.Login(context.Background(), "ada@example.com", "wrong password")
	assert.True(t, IsUnauthorized(err))
}

func TestLocalAndRemoteFilteringAgree(t *testing.T) {
	ctx := context.Background()
	c := newAPI(t)

	food, err := c.CreateCategory(ctx, "Food")
	require.NoError(t, err)
	seed := []core.LineItem{
		{Kind: core.Expense, Description: "Groceries", Value: core.Cents(8550), DueDate: core.NewDate(2025, 3, 11), Category: &food},
		{Kind: core.Expense, Description: "Rent", Value: core.Cents(90000), DueDate: core.NewDate(2025, 3, 1)},
		{Kind: core.Expense, Description: "Restaurant", Value: core.Cents(4000), DueDate: core.NewDate(2025, 2, 20), Settled: true, Category: &food},
		{Kind: core.Expense, Description: "Laptop", Value: core.Cents(100000), DueDate: core.NewDate(2025, 4, 1),
			Installments: &core.InstallmentPlan{NumInstallments: 4, PaymentDay: 15}},
	}
	for _, item := range seed {
		_, err := c.Create(ctx, item)
		require.NoError(t, err)
	}

	min := core.Cents(5000)
	criteria := []ledger.Criteria{
		{},
		{Description: "re"},
		{Min: &min},
		{Categories: []int64{food.ID}},
		{Statuses: ledger.FlagsFor(core.StatusOverdue, core.StatusDueSoon)},
	}
	for _, crit := range criteria {
		local, err := c.ListExpenses(ctx, crit, now)
		require.NoError(t, err)
		remote, err := c.FilterExpenses(ctx, crit, now)
		require.NoError(t, err)
		assert.Equal(t, local, remote, "criteria %+v", crit)
	}

	overdue, err := c.ListExpenses(ctx, ledger.Criteria{Statuses: ledger.FlagsFor(core.StatusOverdue)}, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Rent", overdue[0].Item.Description)
	assert.Nil(t, overdue[0].Item.Category)
}

func TestRevenueRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newAPI(t)

	created, err := c.Create(ctx, core.LineItem{Kind: core.Revenue, Description: "Salary", Value: core.Cents(250000), DueDate: core.NewDate(2025, 3, 27)})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, core.Revenue, created.Kind)

	created.Settled = true
	updated, err := c.Update(ctx, created)
	require.NoError(t, err)
	assert.True(t, updated.Settled)

	got, err := c.FilterRevenues(ctx, ledger.Criteria{Statuses: ledger.FlagsFor(core.StatusReceived)}, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.StatusReceived, got[0].Status)

	ov, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Revenues.Count)
	assert.Equal(t, int64(250000), ov.Revenues.Total.Cents)

	require.NoError(t, c.Delete(ctx, core.Revenue, created.ID))
	err = c.Delete(ctx, core.Revenue, created.ID)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestInstallmentsAndCategories(t *testing.T) {
	ctx := context.Background()
	c := newAPI(t)

	home, err := c.CreateCategory(ctx, "Home")
	require.NoError(t, err)
	sofa, err := c.Create(ctx, core.LineItem{Kind: core.Expense, Description: "Sofa", Value: core.Cents(60000),
		DueDate: core.NewDate(2025, 1, 31), Category: &home,
		Installments: &core.InstallmentPlan{NumInstallments: 3, PaymentDay: 31}})
	require.NoError(t, err)

	plan, err := c.Installments(ctx, sofa.ID)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, "2025-02-28", plan[1].DueDate.String())

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{home}, cats)

	detached, err := c.DeleteCategory(ctx, home.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	items, err := c.List(ctx, core.Expense)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Category)

	savings, err := c.Savings(ctx)
	require.NoError(t, err)
	assert.Empty(t, savings)
}

func TestAPIErrors(t *testing.T) {
	var sawAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/api/revenues":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"invalid date"}`))
		case "/api/expenses":
			_, _ = w.Write([]byte(`[{"id":1,"description":"x","value":1,"due_date":"not a date","paid":0}]`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	c, err := New(ts.URL, WithToken("tok"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.List(ctx, core.Revenue)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "fintrack api: 422: invalid date", apiErr.Error())
	assert.Equal(t, "Bearer tok", sawAuth)

	_, err = c.ListExpenses(ctx, ledger.Criteria{}, now)
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = c.Summary(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "fintrack api: 502 Bad Gateway", apiErr.Error())

	_, _ = c.Login(ctx, "a@b.c", "secret")
	assert.Empty(t, sawAuth, "login must not send a bearer token")

	_, err = c.Create(ctx, core.LineItem{Kind: "loan"})
	assert.ErrorIs(t, err, core.ErrUnknownKind)
}
