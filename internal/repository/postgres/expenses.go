package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
)

// ExpenseRepository keeps insertion order through the seq column, which
// an upsert never changes.
type ExpenseRepository struct {
	db DBTX
}

func NewExpenseRepository(db DBTX) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, amount, category, date, payment_method`

const upsertExpense = `
	INSERT INTO expenses (id, amount, category, date, payment_method)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id)
	DO UPDATE SET
		amount = EXCLUDED.amount,
		category = EXCLUDED.category,
		date = EXCLUDED.date,
		payment_method = EXCLUDED.payment_method,
		updated_at = NOW();
`

func (r *ExpenseRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *ExpenseRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	return e, err
}

func (r *ExpenseRepository) Insert(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount, category, date, payment_method)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;
	`, expenseArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrConflict
	}
	return nil
}

func (r *ExpenseRepository) Replace(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount = $2, category = $3, date = $4, payment_method = $5, updated_at = NOW()
		WHERE id = $1;
	`, expenseArgs(e)...)
	if err != nil {
		return fmt.Errorf("replace expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Upsert runs in one transaction when the handle supports it, so a failed
// batch leaves no partial state.
func (r *ExpenseRepository) Upsert(ctx context.Context, expenses []core.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	db, ok := r.db.(*sql.DB)
	if !ok {
		return upsertAll(ctx, r.db, expenses)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	if err := upsertAll(ctx, tx, expenses); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func upsertAll(ctx context.Context, db DBTX, expenses []core.Expense) error {
	for _, e := range expenses {
		if _, err := db.ExecContext(ctx, upsertExpense, expenseArgs(e)...); err != nil {
			return fmt.Errorf("upsert expense %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func expenseArgs(e core.Expense) []any {
	var date sql.NullTime
	if !e.Date.IsZero() {
		date = sql.NullTime{Time: e.Date, Valid: true}
	}
	return []any{e.ID, e.Amount.Decimal.String(), e.Category, date, e.PaymentMethod}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e      core.Expense
		amount string
		date   sql.NullTime
	)
	if err := s.Scan(&e.ID, &amount, &e.Category, &date, &e.PaymentMethod); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	m, err := parseNumeric(amount)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = m
	if date.Valid {
		e.Date = date.Time.In(time.Local)
	}
	return e, nil
}

func parseNumeric(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("scan amount %q: %w", s, err)
	}
	return core.NewMoney(d), nil
}
