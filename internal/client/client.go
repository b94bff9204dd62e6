// Package client is a typed client for the fintrack REST API.
//
// Listing comes in two flavours. ListRevenues and ListExpenses fetch the whole
// collection and evaluate the criteria locally; FilterRevenues and
// FilterExpenses let the server filter and only classify what comes back.
// Both return items in server order with a status derived from now.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fintrack api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fintrack api: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// User is the current user as returned by /api/user/me.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate core.Date `json:"birth_date"`
}

// Overview holds per-kind summaries.
type Overview struct {
	Revenues core.Summary `json:"revenues"`
	Expenses core.Summary `json:"expenses"`
}

// Saving is a savings goal with its derived progress.
type Saving struct {
	ID          int64      `json:"id"`
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
	Value       core.Money `json:"value"`
	Goal        core.Money `json:"goal"`
	Progress    float64    `json:"progress"`
	Remaining   core.Money `json:"remaining"`
}

type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sets the bearer token sent on /api requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	c := &Client{baseURL: u, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (auth.Token, error) {
	var resp struct {
		Token auth.Token `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return auth.Token{}, err
	}
	c.token = resp.Token.AccessToken
	return resp.Token, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/user/me", nil, &u)
	return u, err
}

// List fetches every line-item of a kind, unclassified.
func (c *Client) List(ctx context.Context, kind core.Kind) ([]core.LineItem, error) {
	var raws []ledger.RawLineItem
	if err := c.do(ctx, http.MethodGet, "/api/"+string(kind)+"s", nil, &raws); err != nil {
		return nil, err
	}
	return ledger.NormalizeAll(raws, kind)
}

func (c *Client) ListRevenues(ctx context.Context, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	return c.listLocal(ctx, core.Revenue, criteria, now)
}

func (c *Client) ListExpenses(ctx context.Context, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	return c.listLocal(ctx, core.Expense, criteria, now)
}

func (c *Client) listLocal(ctx context.Context, kind core.Kind, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	items, err := c.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return ledger.Filter(items, kind, criteria, now)
}

func (c *Client) FilterRevenues(ctx context.Context, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	return c.filterRemote(ctx, core.Revenue, criteria, now)
}

func (c *Client) FilterExpenses(ctx context.Context, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	return c.filterRemote(ctx, core.Expense, criteria, now)
}

func (c *Client) filterRemote(ctx context.Context, kind core.Kind, criteria ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	var raws []ledger.RawLineItem
	if err := c.do(ctx, http.MethodPost, "/api/"+string(kind)+"/filter", ledger.FormOf(criteria), &raws); err != nil {
		return nil, err
	}
	items, err := ledger.NormalizeAll(raws, kind)
	if err != nil {
		return nil, err
	}
	return ledger.ClassifyAll(items, kind, now)
}

// Create stores a new line-item and returns it as saved.
func (c *Client) Create(ctx context.Context, item core.LineItem) (core.LineItem, error) {
	return c.send(ctx, http.MethodPost, "/api/"+string(item.Kind)+"/add", item)
}

// Update replaces an existing line-item.
func (c *Client) Update(ctx context.Context, item core.LineItem) (core.LineItem, error) {
	return c.send(ctx, http.MethodPut, "/api/"+string(item.Kind)+"/"+strconv.FormatInt(item.ID, 10), item)
}

func (c *Client) send(ctx context.Context, method, path string, item core.LineItem) (core.LineItem, error) {
	if !item.Kind.Valid() {
		return core.LineItem{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, item.Kind)
	}
	body := ledger.ToRaw(ledger.Classified{Item: item})
	var raw ledger.RawLineItem
	if err := c.do(ctx, method, path, body, &raw); err != nil {
		return core.LineItem{}, err
	}
	return ledger.Normalize(raw, item.Kind)
}

func (c *Client) Delete(ctx context.Context, kind core.Kind, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/"+string(kind)+"/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Installments(ctx context.Context, expenseID int64) ([]ledger.Installment, error) {
	var plan []ledger.Installment
	err := c.do(ctx, http.MethodGet, "/api/expense/"+strconv.FormatInt(expenseID, 10)+"/installments", nil, &plan)
	return plan, err
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &cats)
	return cats, err
}

// CreateCategory returns the existing category when the name is taken.
func (c *Client) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	var cat core.Category
	err := c.do(ctx, http.MethodPost, "/api/category/add", map[string]string{"name": name}, &cat)
	return cat, err
}

// DeleteCategory returns how many expenses became uncategorized.
func (c *Client) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	var resp struct {
		Detached int64 `json:"detached"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/category/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp.Detached, err
}

func (c *Client) Savings(ctx context.Context) ([]Saving, error) {
	var out []Saving
	err := c.do(ctx, http.MethodGet, "/api/savings", nil, &out)
	return out, err
}

func (c *Client) Summary(ctx context.Context) (Overview, error) {
	var ov Overview
	err := c.do(ctx, http.MethodGet, "/api/summary", nil, &ov)
	return ov, err
}

// do sends in as JSON and decodes a 2xx answer into out. Either may be nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && strings.HasPrefix(path, "/api/") {
		req.Header.Set("Authorization", auth.TokenType+" "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var eb struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Message
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
