package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apihttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	url   string
	token string
	items *services.LineItemService
	uid   int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	issuer := auth.NewIssuer("cli-test-secret-0123456", time.Hour)
	authSvc := services.NewAuthService(repo, issuer)
	items := services.NewLineItemService(repo, nil)
	srv := apihttp.NewServer(apihttp.Options{
		Auth:       authSvc,
		LineItems:  items,
		Categories: services.NewCategoryService(repo),
		Savings:    services.NewSavingService(repo),
		Verifier:   issuer,
		Logger:     log.Discard(),
		Now:        func() time.Time { return testNow },
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})

	u, tok, err := authSvc.Register(context.Background(), services.Registration{
		Name: "Ada", Email: "ada@example.com", Password: "correct horse",
	})
	require.NoError(t, err)
	return &env{url: ts.URL, token: tok.AccessToken, items: items, uid: u.ID}
}

func (e *env) seed(t *testing.T, items ...core.LineItem) {
	t.Helper()
	for _, item := range items {
		_, err := e.items.Create(context.Background(), e.uid, item)
		require.NoError(t, err)
	}
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(Options{
		Config: &config.Config{APIURL: e.url, APIToken: e.token},
		Now:    func() time.Time { return testNow },
	})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginPrintsExport(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "correct horse\n", "login", "--email", "ada@example.com", "--token", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "export FINTRACK_TOKEN="), out)

	_, err = e.run(t, "", "login", "--email", "ada@example.com", "--password", "nope nope")
	assert.Error(t, err)
}

func TestListRequiresToken(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "list", "expenses", "--token", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestListExpenses(t *testing.T) {
	e := newEnv(t)
	e.seed(t,
		core.LineItem{Kind: core.Expense, Description: "Rent", Value: core.Cents(90000), DueDate: core.NewDate(2025, 3, 1)},
		core.LineItem{Kind: core.Expense, Description: "Gym", Value: core.Cents(3000), DueDate: core.NewDate(2025, 3, 11)},
		core.LineItem{Kind: core.Expense, Description: "Phone", Value: core.Cents(2000), DueDate: core.NewDate(2025, 3, 2), Settled: true},
	)

	out, err := e.run(t, "", "list", "expenses")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "CATEGORY")
	assert.Contains(t, lines[1], "overdue")
	assert.Contains(t, lines[1], core.UncategorizedName)
	assert.Contains(t, lines[2], "due_soon")
	assert.Contains(t, lines[3], "paid")

	for _, remote := range []string{"--remote=false", "--remote=true"} {
		out, err = e.run(t, "", "list", "expenses", "--status", "overdue,due_soon", "--min", "25", remote)
		require.NoError(t, err)
		assert.Contains(t, out, "Rent", remote)
		assert.Contains(t, out, "Gym", remote)
		assert.NotContains(t, out, "Phone", remote)
	}

	out, err = e.run(t, "", "list", "expenses", "--page", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "page 1 of 1")
}

func TestListCSV(t *testing.T) {
	e := newEnv(t)
	e.seed(t, core.LineItem{Kind: core.Revenue, Description: "Salary, March", Value: core.Cents(250000), DueDate: core.NewDate(2025, 3, 27)})

	out, err := e.run(t, "", "list", "revenues", "--csv")
	require.NoError(t, err)

	var rows []csvRow
	require.NoError(t, gocsv.UnmarshalString(out, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Salary, March", rows[0].Description)
	assert.Equal(t, "2500.00", rows[0].Value)
	assert.Equal(t, "pending", rows[0].Status)
	assert.Empty(t, rows[0].Category)
}

func TestListRejectsBadFlags(t *testing.T) {
	e := newEnv(t)
	cases := [][]string{
		{"list", "loans"},
		{"list", "expenses", "--status", "late"},
		{"list", "expenses", "--from", "yesterday"},
		{"list", "expenses", "--max", "lots"},
		{"list", "expenses", "--page", "-1"},
	}
	for _, args := range cases {
		_, err := e.run(t, "", args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestOverview(t *testing.T) {
	e := newEnv(t)
	e.seed(t,
		core.LineItem{Kind: core.Revenue, Description: "Salary", Value: core.Cents(250000), DueDate: core.NewDate(2025, 3, 1), Settled: true},
		core.LineItem{Kind: core.Expense, Description: "Rent", Value: core.Cents(90000), DueDate: core.NewDate(2025, 3, 1)},
		core.LineItem{Kind: core.Expense, Description: "Food", Value: core.Cents(10000), DueDate: core.NewDate(2025, 3, 1)},
	)

	out, err := e.run(t, "", "overview")
	require.NoError(t, err)
	assert.Regexp(t, `revenue\s+received\s+1\s+2500\.00`, out)
	assert.Regexp(t, `expense\s+overdue\s+2\s+1000\.00`, out)
	assert.Regexp(t, `expense\s+all\s+2\s+1000\.00`, out)
}

func TestCategoriesAndInstallments(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "categories", "add", "Home")
	require.NoError(t, err)
	assert.Contains(t, out, "Home")

	out, err = e.run(t, "", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Home")

	e.seed(t, core.LineItem{Kind: core.Expense, Description: "Sofa", Value: core.Cents(60000), DueDate: core.NewDate(2025, 1, 31),
		Installments: &core.InstallmentPlan{NumInstallments: 3, PaymentDay: 31}})
	out, err = e.run(t, "", "installments", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-02-28")
	assert.Contains(t, out, "200.00")

	out, err = e.run(t, "", "categories", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "0 expense(s)")

	_, err = e.run(t, "", "categories", "rm", "x")
	assert.Error(t, err)
}
