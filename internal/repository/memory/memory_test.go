package memory

import (
	"context"
	"errors"
	"testing"

	"spendsync/internal/core"
)

func ids(es []core.Expense) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestExpenseRepositoryUpsertKeepsPosition(t *testing.T) {
	ctx := context.Background()
	r := NewExpenseRepository()

	for _, id := range []string{"a", "b", "c"} {
		if err := r.Insert(ctx, core.Expense{ID: id, Amount: core.MustMoney("1"), Category: "Food"}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := r.Insert(ctx, core.Expense{ID: "a"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate insert: %v", err)
	}

	err := r.Upsert(ctx, []core.Expense{
		{ID: "b", Amount: core.MustMoney("9"), Category: "Travel"},
		{ID: "d", Amount: core.MustMoney("4"), Category: "Food"},
		{ID: "d", Amount: core.MustMoney("5"), Category: "Food"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	list, _ := r.List(ctx)
	if got := ids(list); len(got) != 4 || got[0] != "a" || got[1] != "b" || got[3] != "d" {
		t.Fatalf("unexpected order %v", got)
	}
	if !list[1].Amount.Equals(core.MustMoney("9")) || !list[3].Amount.Equals(core.MustMoney("5")) {
		t.Fatalf("upsert did not replace: %+v", list)
	}

	// Idempotent: the same batch again changes nothing.
	_ = r.Upsert(ctx, list)
	again, _ := r.List(ctx)
	if len(again) != 4 {
		t.Fatalf("re-upsert changed length to %d", len(again))
	}
}

func TestExpenseRepositoryReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewExpenseRepository()

	if err := r.Replace(ctx, core.Expense{ID: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("replace missing: %v", err)
	}
	_ = r.Insert(ctx, core.Expense{ID: "x", Amount: core.MustMoney("1"), Category: "Food"})
	if err := r.Replace(ctx, core.Expense{ID: "x", Amount: core.MustMoney("2"), Category: "Food"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := r.Get(ctx, "x")
	if err != nil || !got.Amount.Equals(core.MustMoney("2")) {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if err := r.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := r.Get(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()

	if err := r.Create(ctx, core.User{ID: "1", Email: "A@b.c", Name: "A"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(ctx, core.User{ID: "2", Email: "a@B.c"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	u, err := r.FindByEmail(ctx, "a@b.c")
	if err != nil || u.ID != "1" {
		t.Fatalf("find = %+v, %v", u, err)
	}
	if _, err := r.FindByEmail(ctx, "nobody@b.c"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
