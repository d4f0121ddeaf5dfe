package ledger

import (
	"context"
	"fmt"

	"spendsync/internal/core"
	"spendsync/internal/log"
)

// DefaultWarningThreshold is the percentage of a budget at which a warning
// is raised.
const DefaultWarningThreshold = 80.0

type AlertKind string

const (
	AlertExceeded      AlertKind = "budget_exceeded"
	AlertTotalExceeded AlertKind = "total_budget_exceeded"
	AlertWarning       AlertKind = "budget_warning"
)

// Alert is a local notification about a budget.
type Alert struct {
	Kind     AlertKind
	Title    string
	Body     string
	Category string
	Month    string
	Status   BudgetStatus
}

// Notifier delivers alerts to the user.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier delivers alerts as structured log records.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentAlerts)}
}

func (n *LogNotifier) Notify(ctx context.Context, a Alert) error {
	n.logger.WarnContext(ctx, a.Title,
		"body", a.Body,
		"kind", string(a.Kind),
		log.FieldCategory, a.Category,
		log.FieldMonth, a.Month,
		"percentage_used", a.Status.PercentageUsed)
	return nil
}

// BudgetAlerts raises alerts from budget status. Delivery failures are
// logged and never returned.
type BudgetAlerts struct {
	book      *BudgetBook
	notifier  Notifier
	logger    *log.Logger
	threshold float64
}

// NewBudgetAlerts uses DefaultWarningThreshold when threshold is not positive.
func NewBudgetAlerts(book *BudgetBook, notifier Notifier, threshold float64, logger *log.Logger) *BudgetAlerts {
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}
	return &BudgetAlerts{
		book:      book,
		notifier:  notifier,
		logger:    logger.WithComponent(log.ComponentAlerts),
		threshold: threshold,
	}
}

// CheckCategory alerts when the category budget is exceeded.
func (a *BudgetAlerts) CheckCategory(ctx context.Context, category, month string) bool {
	st := a.book.Status(ctx, category, month)
	if !st.IsExceeded {
		return false
	}
	return a.send(ctx, Alert{
		Kind:     AlertExceeded,
		Title:    "Budget Exceeded!",
		Body:     fmt.Sprintf("You've exceeded your %s budget for this month.", category),
		Category: category,
		Month:    st.Budget.Month,
		Status:   st,
	})
}

// CheckTotal alerts when the Total budget is exceeded.
func (a *BudgetAlerts) CheckTotal(ctx context.Context, month string) bool {
	st := a.book.TotalStatus(ctx, month)
	if !st.IsExceeded {
		return false
	}
	return a.send(ctx, Alert{
		Kind:     AlertTotalExceeded,
		Title:    "Total Budget Exceeded!",
		Body:     "You've exceeded your total monthly budget. Review your spending.",
		Category: core.TotalCategory,
		Month:    st.Budget.Month,
		Status:   st,
	})
}

// CheckWarning alerts when a budget exists, at least threshold percent of
// it is used, and it is not yet exceeded.
func (a *BudgetAlerts) CheckWarning(ctx context.Context, category string, threshold float64, month string) bool {
	st := a.book.Status(ctx, category, month)
	if st.Budget == nil || st.IsExceeded || st.PercentageUsed < threshold {
		return false
	}
	return a.send(ctx, Alert{
		Kind:     AlertWarning,
		Title:    "Budget Warning",
		Body:     fmt.Sprintf("You've used %.1f%% of your %s budget.", st.PercentageUsed, category),
		Category: category,
		Month:    st.Budget.Month,
		Status:   st,
	})
}

// AfterExpense runs every check relevant to a newly recorded expense.
func (a *BudgetAlerts) AfterExpense(ctx context.Context, e core.Expense) []AlertKind {
	month := core.MonthKey(e.Date)
	var fired []AlertKind
	if a.CheckCategory(ctx, e.Category, month) {
		fired = append(fired, AlertExceeded)
	}
	if a.CheckTotal(ctx, month) {
		fired = append(fired, AlertTotalExceeded)
	}
	if a.CheckWarning(ctx, e.Category, a.threshold, month) {
		fired = append(fired, AlertWarning)
	}
	return fired
}

func (a *BudgetAlerts) send(ctx context.Context, alert Alert) bool {
	if err := a.notifier.Notify(ctx, alert); err != nil {
		a.logger.ErrorContext(ctx, "Failed to deliver budget alert",
			"kind", string(alert.Kind), log.FieldCategory, alert.Category, log.FieldError, err.Error())
		return false
	}
	return true
}
