package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"spendsync/internal/core"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUpsertRunsInTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	q := regexp.QuoteMeta(`INSERT INTO expenses`) + `.*ON CONFLICT \(id\)\s+DO UPDATE SET`
	date := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(q).
		WithArgs("a", "12.5", "Food", sqlmock.AnyArg(), "Cash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("b", "3", "Travel", sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), []core.Expense{
		{ID: "a", Amount: core.MustMoney("12.50"), Category: "Food", Date: date, PaymentMethod: "Cash"},
		{ID: "b", Amount: core.MustMoney("3"), Category: "Travel"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO expenses`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), []core.Expense{{ID: "a", Amount: core.MustMoney("1")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListOrdersBySeq(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	date := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "amount", "category", "date", "payment_method"}).
		AddRow("a", "12.50", "Food", date, "Cash").
		AddRow("b", "3", "Travel", nil, "")
	mock.ExpectQuery(`SELECT .* FROM expenses ORDER BY seq`).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || !got[0].Amount.Equals(core.MustMoney("12.5")) {
		t.Fatalf("unexpected rows %+v", got)
	}
	if !got[0].Date.Equal(date) || !got[1].Date.IsZero() {
		t.Fatalf("unexpected dates %v / %v", got[0].Date, got[1].Date)
	}
}

func TestGetReplaceMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	mock.ExpectQuery(`SELECT .* FROM expenses WHERE id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "category", "date", "payment_method"}))
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(`UPDATE expenses`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Replace(context.Background(), core.Expense{ID: "nope", Amount: core.MustMoney("1")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(`INSERT INTO expenses .* DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Insert(context.Background(), core.Expense{ID: "dup", Amount: core.MustMoney("1")}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	mock.ExpectExec(`DELETE FROM expenses WHERE id = \$1`).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("1", "a@b.c", "a").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	if err := repo.Create(ctx, core.User{ID: "1", Email: "a@b.c", Name: "a"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	mock.ExpectQuery(`SELECT id, email, name FROM users`).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).AddRow("1", "a@b.c", "a"))
	u, err := repo.FindByEmail(ctx, "a@b.c")
	if err != nil || u.ID != "1" {
		t.Fatalf("find = %+v, %v", u, err)
	}

	mock.ExpectQuery(`SELECT id, email, name FROM users`).
		WithArgs("x@b.c").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.FindByEmail(ctx, "x@b.c"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
