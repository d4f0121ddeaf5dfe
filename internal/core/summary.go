package core

import (
	"sort"
	"time"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// DailySummary is the aggregate of expenses on one calendar day.
type DailySummary struct {
	Date     string    `json:"date"`
	Total    Money     `json:"total"`
	Expenses []Expense `json:"expenses"`
}

// MonthlySummary is the aggregate of expenses in one YYYY-MM month.
type MonthlySummary struct {
	Month             string           `json:"month"`
	Total             Money            `json:"total"`
	CategoryBreakdown map[string]Money `json:"categoryBreakdown"`
	Expenses          []Expense        `json:"expenses"`
}

// FilterDay keeps the expenses that fall on the same local day as day.
func FilterDay(expenses []Expense, day time.Time) []Expense {
	out := make([]Expense, 0)
	for _, e := range expenses {
		if SameDay(e.Date, day) {
			out = append(out, e)
		}
	}
	return out
}

// FilterMonth keeps the expenses inside the YYYY-MM month.
func FilterMonth(expenses []Expense, month string) []Expense {
	out := make([]Expense, 0)
	for _, e := range expenses {
		if InMonth(e.Date, month) {
			out = append(out, e)
		}
	}
	return out
}

// FilterCategory keeps the expenses of one category.
func FilterCategory(expenses []Expense, category string) []Expense {
	out := make([]Expense, 0)
	for _, e := range expenses {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Summarize builds the daily aggregate. label is echoed back as Date.
func Summarize(expenses []Expense, label string, day time.Time) DailySummary {
	matched := FilterDay(expenses, day)
	return DailySummary{Date: label, Total: Sum(matched), Expenses: matched}
}

// SummarizeMonth builds the monthly aggregate with a per-category breakdown.
func SummarizeMonth(expenses []Expense, month string) MonthlySummary {
	matched := FilterMonth(expenses, month)
	breakdown := make(map[string]Money)
	for _, e := range matched {
		breakdown[e.Category] = breakdown[e.Category].Plus(e.Amount)
	}
	return MonthlySummary{
		Month:             month,
		Total:             Sum(matched),
		CategoryBreakdown: breakdown,
		Expenses:          matched,
	}
}

// ByCategory aggregates amounts per category, largest first. Ties are
// broken by name so the order is stable.
func ByCategory(expenses []Expense) []CategoryAmount {
	totals := make(map[string]Money)
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Plus(e.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
