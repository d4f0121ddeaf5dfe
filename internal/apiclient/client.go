// Package apiclient is the JSON-over-HTTP client for the spendsync server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spendsync/internal/core"
)

// ErrUnavailable wraps every failure to reach the server at all: dial
// errors, timeouts, connection resets.
var ErrUnavailable = errors.New("server unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses onto the core error taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return core.ErrValidation
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrConflict
	default:
		return nil
	}
}

// Client talks to the server's /api routes.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL, e.g. http://localhost:8082/api.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient lets tests inject an httptest client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type authResponse struct {
	Success bool      `json:"success"`
	User    core.User `json:"user"`
	Token   string    `json:"token"`
}

type expensesEnvelope struct {
	Expenses []core.Expense `json:"expenses"`
}

type expenseResponse struct {
	Success bool         `json:"success"`
	Expense core.Expense `json:"expense"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ExpensePatch is a partial update; nil fields are left unchanged.
type ExpensePatch struct {
	Amount        *core.Money `json:"amount,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Date          *time.Time  `json:"date,omitempty"`
	PaymentMethod *string     `json:"paymentMethod,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (core.User, string, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return core.User{}, "", err
	}
	return out.User, out.Token, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (core.User, string, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": password, "name": name,
	}, &out)
	if err != nil {
		return core.User{}, "", err
	}
	return out.User, out.Token, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var out expensesEnvelope
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// CreateExpense posts e; the server assigns the id.
func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	body := struct {
		Amount        core.Money `json:"amount"`
		Category      string     `json:"category"`
		Date          time.Time  `json:"date,omitzero"`
		PaymentMethod string     `json:"paymentMethod,omitempty"`
	}{e.Amount, e.Category, e.Date, e.PaymentMethod}

	var out expenseResponse
	if err := c.do(ctx, http.MethodPost, "/expenses", body, &out); err != nil {
		return core.Expense{}, err
	}
	return out.Expense, nil
}

func (c *Client) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	var out expenseResponse
	if err := c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), patch, &out); err != nil {
		return core.Expense{}, err
	}
	return out.Expense, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}

// Sync upserts the full local list on the server.
func (c *Client) Sync(ctx context.Context, expenses []core.Expense) error {
	return c.do(ctx, http.MethodPost, "/expenses/sync", expensesEnvelope{Expenses: expenses}, &messageResponse{})
}

// SyncPending upserts queued snapshots on the server.
func (c *Client) SyncPending(ctx context.Context, expenses []core.Expense) error {
	return c.do(ctx, http.MethodPost, "/expenses/sync-pending", expensesEnvelope{Expenses: expenses}, &messageResponse{})
}

// Daily fetches the aggregate for the day given as YYYY-MM-DD or RFC 3339.
func (c *Client) Daily(ctx context.Context, date string) (core.DailySummary, error) {
	var out core.DailySummary
	err := c.do(ctx, http.MethodGet, "/expenses/aggregate/daily?date="+url.QueryEscape(date), nil, &out)
	return out, err
}

// Monthly fetches the aggregate for a YYYY-MM month.
func (c *Client) Monthly(ctx context.Context, month string) (core.MonthlySummary, error) {
	var out core.MonthlySummary
	err := c.do(ctx, http.MethodGet, "/expenses/aggregate/monthly?month="+url.QueryEscape(month), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &e)
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
