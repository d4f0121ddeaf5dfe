package core

import (
	"errors"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	good := Expense{ID: "a", Amount: MustMoney("1"), Category: "Food"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		e    Expense
		want error
	}{
		{Expense{Amount: Zero, Category: "Food"}, ErrInvalidAmount},
		{Expense{Amount: MustMoney("-3"), Category: "Food"}, ErrInvalidAmount},
		{Expense{Amount: MustMoney("3"), Category: "  "}, ErrEmptyCategory},
	}
	for i, tc := range cases {
		err := tc.e.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d should be a validation error", i)
		}
	}
}

func TestExpenseNormalize(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.Local)
	e := Expense{ID: "x", Amount: MustMoney("5"), Category: "Food"}
	if !e.NeedsNormalization() {
		t.Fatalf("expected normalization to be needed")
	}
	n := e.Normalize(now)
	if !n.Date.Equal(now) || n.PaymentMethod != DefaultPaymentMethod {
		t.Fatalf("unexpected defaults: %+v", n)
	}
	if n.NeedsNormalization() {
		t.Fatalf("normalized record still needs normalization")
	}

	kept := Expense{Date: now.AddDate(0, -1, 0), PaymentMethod: "Card"}.Normalize(now)
	if kept.PaymentMethod != "Card" || !kept.Date.Equal(now.AddDate(0, -1, 0)) {
		t.Fatalf("existing fields overwritten: %+v", kept)
	}
}

func TestBudgetValidate(t *testing.T) {
	cases := []struct {
		b  Budget
		ok bool
	}{
		{Budget{Category: "Food", Amount: MustMoney("1000"), Month: "2025-03"}, true},
		{Budget{Category: TotalCategory, Amount: Zero, Month: "2025-03"}, true},
		{Budget{Category: "", Amount: MustMoney("1"), Month: "2025-03"}, false},
		{Budget{Category: "Food", Amount: MustMoney("-1"), Month: "2025-03"}, false},
		{Budget{Category: "Food", Amount: MustMoney("1"), Month: "2025-13"}, false},
		{Budget{Category: "Food", Amount: MustMoney("1"), Month: "March"}, false},
	}
	for i, tc := range cases {
		err := tc.b.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthHelpers(t *testing.T) {
	march := time.Date(2025, 3, 31, 23, 59, 0, 0, time.Local)
	if got := MonthKey(march); got != "2025-03" {
		t.Fatalf("MonthKey = %q", got)
	}
	if !InMonth(march, "2025-03") || InMonth(march, "2025-04") || InMonth(march, "bad") {
		t.Fatalf("InMonth mismatch")
	}
	if !SameDay(march, time.Date(2025, 3, 31, 0, 1, 0, 0, time.Local)) {
		t.Fatalf("SameDay mismatch")
	}
	if FormatMonth(2025, time.January) != "2025-01" {
		t.Fatalf("FormatMonth mismatch")
	}
	if _, err := ParseDay("2025-03-31"); err != nil {
		t.Fatalf("ParseDay date: %v", err)
	}
	if _, err := ParseDay("2025-03-31T10:00:00Z"); err != nil {
		t.Fatalf("ParseDay timestamp: %v", err)
	}
	if _, err := ParseDay("yesterday"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSummaries(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)
	d2 := time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local)
	d3 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.Local)
	expenses := []Expense{
		{ID: "1", Amount: MustMoney("10"), Category: "Food", Date: d1},
		{ID: "2", Amount: MustMoney("5.5"), Category: "Travel", Date: d1},
		{ID: "3", Amount: MustMoney("20"), Category: "Food", Date: d2},
		{ID: "4", Amount: MustMoney("99"), Category: "Food", Date: d3},
	}

	day := Summarize(expenses, "2025-03-01", d1)
	if len(day.Expenses) != 2 || !day.Total.Equals(MustMoney("15.5")) {
		t.Fatalf("daily summary: %+v", day)
	}

	month := SummarizeMonth(expenses, "2025-03")
	if !month.Total.Equals(MustMoney("35.5")) || len(month.Expenses) != 3 {
		t.Fatalf("monthly summary: %+v", month)
	}
	if !month.CategoryBreakdown["Food"].Equals(MustMoney("30")) {
		t.Fatalf("food breakdown %s", month.CategoryBreakdown["Food"])
	}

	cats := ByCategory(month.Expenses)
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Travel" {
		t.Fatalf("unexpected category order: %+v", cats)
	}

	empty := SummarizeMonth(nil, "2025-05")
	if !empty.Total.IsZero() || empty.Expenses == nil || len(empty.CategoryBreakdown) != 0 {
		t.Fatalf("empty month summary: %+v", empty)
	}
}

func TestNameFromEmail(t *testing.T) {
	if got := NameFromEmail("alice@example.com"); got != "alice" {
		t.Fatalf("got %q", got)
	}
	if got := NameFromEmail("bob"); got != "bob" {
		t.Fatalf("got %q", got)
	}
}
