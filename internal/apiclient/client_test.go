package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
)

func TestClientSyncSendsEnvelope(t *testing.T) {
	var got struct {
		Expenses []core.Expense `json:"expenses"`
	}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"Synced 1 expenses"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", time.Second)
	e := core.Expense{ID: "a", Amount: core.MustMoney("9.99"), Category: "Food", PaymentMethod: "Card"}
	require.NoError(t, c.Sync(context.Background(), []core.Expense{e}))
	assert.Equal(t, "/api/expenses/sync", path)
	require.Len(t, got.Expenses, 1)
	assert.True(t, got.Expenses[0].Amount.Equals(e.Amount))

	require.NoError(t, c.SyncPending(context.Background(), []core.Expense{e}))
	assert.Equal(t, "/api/expenses/sync-pending", path)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/expenses/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"Expense not found"}`))
		case "/api/auth/register":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"All fields are required"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	c := New(srv.URL+"/api", time.Second)
	ctx := context.Background()

	amount := core.MustMoney("3")
	_, err := c.UpdateExpense(ctx, "missing", ExpensePatch{Amount: &amount})
	require.ErrorIs(t, err, core.ErrNotFound)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Expense not found", se.Message)

	_, _, err = c.Register(ctx, "", "", "")
	require.ErrorIs(t, err, core.ErrValidation)

	err = c.Sync(ctx, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable), "a 500 is a server answer, not an outage")

	srv.Close()
	_, err = c.ListExpenses(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClientAggregates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/expenses/aggregate/daily":
			assert.Equal(t, "2025-03-01", r.URL.Query().Get("date"))
			_, _ = w.Write([]byte(`{"date":"2025-03-01","total":15.5,"expenses":[]}`))
		case "/api/expenses/aggregate/monthly":
			assert.Equal(t, "2025-03", r.URL.Query().Get("month"))
			_, _ = w.Write([]byte(`{"month":"2025-03","total":30,"categoryBreakdown":{"Food":30},"expenses":[]}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", time.Second)
	ctx := context.Background()

	day, err := c.Daily(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.True(t, day.Total.Equals(core.MustMoney("15.5")))

	month, err := c.Monthly(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, month.CategoryBreakdown["Food"].Equals(core.MustMoney("30")))
}
