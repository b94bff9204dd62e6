package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/client"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// Options configures the command tree. Zero values use the environment and
// the wall clock.
type Options struct {
	Config *config.Config
	Now    func() time.Time
}

type rootFlags struct {
	apiURL   string
	token    string
	logLevel string
}

type app struct {
	flags  rootFlags
	now    func() time.Time
	logger *log.Logger
}

// NewRootCommand builds the fintrack operator CLI.
func NewRootCommand(opts Options) *cobra.Command {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Load()
	}
	a := &app{now: opts.Now, logger: log.Discard()}
	if a.now == nil {
		a.now = time.Now
	}

	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Operator CLI for the fintrack API",
		Long: `fintrack talks to a running fintrack API server.

Log in once and export the printed token, then list, filter and summarize
revenues and expenses. Statuses are computed locally from the current time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = SetupLogger(a.flags.logLevel, cmd.ErrOrStderr()).WithComponent(log.ComponentCLI)
		},
	}
	root.PersistentFlags().StringVar(&a.flags.apiURL, "api-url", cfg.APIURL, "API base URL (FINTRACK_API_URL)")
	root.PersistentFlags().StringVar(&a.flags.token, "token", cfg.APIToken, "bearer token (FINTRACK_TOKEN)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		a.loginCommand(),
		a.listCommand(),
		a.overviewCommand(),
		a.categoriesCommand(),
		a.installmentsCommand(),
	)
	return root
}

func (a *app) client() (*client.Client, error) {
	return client.New(a.flags.apiURL, client.WithToken(a.flags.token))
}

func (a *app) authedClient() (*client.Client, error) {
	if strings.TrimSpace(a.flags.token) == "" {
		return nil, errors.New("not logged in: run 'fintrack login' and export FINTRACK_TOKEN")
	}
	return a.client()
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a token to export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			tok, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "Logged in", log.FieldOperation, log.OpLogin)
			fmt.Fprintf(cmd.OutOrStdout(), "export FINTRACK_TOKEN=%s\n", tok.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type listFlags struct {
	description string
	from, to    string
	min, max    string
	statuses    []string
	categories  []int64
	remote      bool
	page        int
	csv         bool
}

func (f listFlags) criteria() (ledger.Criteria, error) {
	c := ledger.Criteria{Description: strings.TrimSpace(f.description), Categories: f.categories}
	var err error
	if c.DateStart, err = optionalDate(f.from); err != nil {
		return ledger.Criteria{}, fmt.Errorf("--from: %w", err)
	}
	if c.DateEnd, err = optionalDate(f.to); err != nil {
		return ledger.Criteria{}, fmt.Errorf("--to: %w", err)
	}
	if c.Min, err = optionalMoney(f.min); err != nil {
		return ledger.Criteria{}, fmt.Errorf("--min: %w", err)
	}
	if c.Max, err = optionalMoney(f.max); err != nil {
		return ledger.Criteria{}, fmt.Errorf("--max: %w", err)
	}
	statuses := make([]core.Status, 0, len(f.statuses))
	for _, s := range f.statuses {
		st := core.Status(strings.ToLower(strings.TrimSpace(s)))
		switch st {
		case core.StatusPending, core.StatusPaid, core.StatusReceived, core.StatusOverdue, core.StatusDueSoon:
			statuses = append(statuses, st)
		default:
			return ledger.Criteria{}, fmt.Errorf("--status: unknown status %q", s)
		}
	}
	c.Statuses = ledger.FlagsFor(statuses...)
	return c, nil
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

func optionalMoney(s string) (*core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	m, err := core.ParseMoney(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *app) listCommand() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:       "list revenues|expenses",
		Short:     "List line-items with their status",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"revenues", "expenses"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			criteria, err := f.criteria()
			if err != nil {
				return err
			}
			if f.page < 0 {
				return fmt.Errorf("--page must be positive, got %d", f.page)
			}
			c, err := a.authedClient()
			if err != nil {
				return err
			}

			items, err := a.fetch(cmd.Context(), c, kind, criteria, f.remote)
			if err != nil {
				return err
			}
			a.logger.DebugContext(cmd.Context(), "Fetched line-items",
				log.FieldKind, kind, log.FieldCount, len(items), "remote", f.remote)

			pages := 0
			if f.page > 0 {
				items, pages = ledger.Paginate(items, f.page, ledger.PageSize)
			}
			out := cmd.OutOrStdout()
			if f.csv {
				return writeCSV(out, kind, items)
			}
			if err := writeTable(out, kind, items); err != nil {
				return err
			}
			if pages > 0 {
				fmt.Fprintf(out, "page %d of %d\n", f.page, pages)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.description, "description", "", "case-insensitive substring of the description")
	fl.StringVar(&f.from, "from", "", "earliest due date (YYYY-MM-DD)")
	fl.StringVar(&f.to, "to", "", "latest due date (YYYY-MM-DD)")
	fl.StringVar(&f.min, "min", "", "minimum value")
	fl.StringVar(&f.max, "max", "", "maximum value")
	fl.StringSliceVar(&f.statuses, "status", nil, "statuses to keep: pending, paid, received, overdue, due_soon")
	fl.Int64SliceVar(&f.categories, "category", nil, "category ids to keep (expenses)")
	fl.BoolVar(&f.remote, "remote", false, "let the server evaluate the filter")
	fl.IntVar(&f.page, "page", 0, "show one page of results (1-based)")
	fl.BoolVar(&f.csv, "csv", false, "write CSV instead of a table")
	return cmd
}

func (a *app) fetch(ctx context.Context, c *client.Client, kind core.Kind, criteria ledger.Criteria, remote bool) ([]ledger.Classified, error) {
	now := a.now()
	switch {
	case kind == core.Revenue && remote:
		return c.FilterRevenues(ctx, criteria, now)
	case kind == core.Revenue:
		return c.ListRevenues(ctx, criteria, now)
	case remote:
		return c.FilterExpenses(ctx, criteria, now)
	default:
		return c.ListExpenses(ctx, criteria, now)
	}
}

func (a *app) overviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Summarize revenues and expenses by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			now := a.now()
			var revenues, expenses []ledger.Classified
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				revenues, err = c.ListRevenues(ctx, ledger.Criteria{}, now)
				return err
			})
			g.Go(func() error {
				var err error
				expenses, err = c.ListExpenses(ctx, ledger.Criteria{}, now)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return writeOverview(cmd.OutOrStdout(),
				ledger.Summarize(core.Revenue, revenues),
				ledger.Summarize(core.Expense, expenses))
		},
	}
}

func (a *app) categoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List expense categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			cats, err := c.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return writeCategories(cmd.OutOrStdout(), cats)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			cat, err := c.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", cat.ID, cat.Name)
			return nil
		},
	}, &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a category; its expenses become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			n, err := c.DeleteCategory(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted, %d expense(s) now %s\n", n, core.UncategorizedName)
			return nil
		},
	})
	return cmd
}

func (a *app) installmentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "installments EXPENSE_ID",
		Short: "Show the installment schedule of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid expense id %q", args[0])
			}
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			plan, err := c.Installments(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeInstallments(cmd.OutOrStdout(), plan)
		},
	}
}
