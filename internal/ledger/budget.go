package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// BudgetStatus is the derived view of one budget against actual spending.
// Budget is nil when no budget is set; the derived fields are then zero
// except Spending.
type BudgetStatus struct {
	Budget         *core.Budget `json:"budget"`
	Spending       core.Money   `json:"spending"`
	Remaining      core.Money   `json:"remaining"`
	PercentageUsed float64      `json:"percentageUsed"`
	IsExceeded     bool         `json:"isExceeded"`
}

// BudgetBook stores monthly budgets and evaluates them against the local
// expense store.
type BudgetBook struct {
	budgets  *collection[core.Budget]
	expenses ExpenseLister
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
}

func NewBudgetBook(store storage.BlobStore, expenses ExpenseLister, logger *log.Logger) *BudgetBook {
	logger = logger.WithComponent(log.ComponentBudget)
	return &BudgetBook{
		budgets:  newCollection[core.Budget](store, storage.KeyMonthlyBudget, logger),
		expenses: expenses,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// List returns every stored budget.
func (b *BudgetBook) List(ctx context.Context) []core.Budget {
	return b.budgets.read(ctx)
}

// ForMonth returns the budgets of one month. An empty month means the
// current one.
func (b *BudgetBook) ForMonth(ctx context.Context, month string) []core.Budget {
	month = b.month(month)
	out := make([]core.Budget, 0)
	for _, bud := range b.List(ctx) {
		if bud.Month == month {
			out = append(out, bud)
		}
	}
	return out
}

// Get finds the budget for (category, month).
func (b *BudgetBook) Get(ctx context.Context, category, month string) (core.Budget, bool) {
	month = b.month(month)
	for _, bud := range b.List(ctx) {
		if bud.Category == category && bud.Month == month {
			return bud, true
		}
	}
	return core.Budget{}, false
}

// Save stores bud, replacing any budget with the same category and month.
func (b *BudgetBook) Save(ctx context.Context, bud core.Budget) (core.Budget, error) {
	bud.Month = b.month(bud.Month)
	if err := bud.Validate(); err != nil {
		return core.Budget{}, err
	}
	if bud.ID == "" {
		bud.ID = b.newID()
	}
	if bud.CreatedAt.IsZero() {
		bud.CreatedAt = b.now()
	}

	err := b.budgets.update(ctx, func(items []core.Budget) ([]core.Budget, error) {
		i := slices.IndexFunc(items, func(x core.Budget) bool {
			return x.Category == bud.Category && x.Month == bud.Month
		})
		if i >= 0 {
			items[i] = bud
			return items, nil
		}
		return append(items, bud), nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	b.logger.InfoContext(ctx, "Budget saved",
		log.FieldCategory, bud.Category, log.FieldMonth, bud.Month, log.FieldAmount, bud.Amount.String())
	return bud, nil
}

// Delete removes the budget with the given id. Unknown ids are ignored.
func (b *BudgetBook) Delete(ctx context.Context, id string) error {
	return b.budgets.update(ctx, func(items []core.Budget) ([]core.Budget, error) {
		return slices.DeleteFunc(items, func(x core.Budget) bool { return x.ID == id }), nil
	})
}

// CategorySpending sums the expenses of one category in month.
func (b *BudgetBook) CategorySpending(ctx context.Context, category, month string) core.Money {
	month = b.month(month)
	return core.Sum(core.FilterCategory(core.FilterMonth(b.expenses.List(ctx), month), category))
}

// TotalSpending sums every expense in month.
func (b *BudgetBook) TotalSpending(ctx context.Context, month string) core.Money {
	return core.Sum(core.FilterMonth(b.expenses.List(ctx), b.month(month)))
}

// Status evaluates the budget of category in month.
func (b *BudgetBook) Status(ctx context.Context, category, month string) BudgetStatus {
	month = b.month(month)
	spending := b.CategorySpending(ctx, category, month)
	bud, ok := b.Get(ctx, category, month)
	if !ok {
		return BudgetStatus{Spending: spending}
	}
	return evaluate(bud, spending)
}

// TotalStatus evaluates the Total budget against all spending in month.
func (b *BudgetBook) TotalStatus(ctx context.Context, month string) BudgetStatus {
	month = b.month(month)
	spending := b.TotalSpending(ctx, month)
	bud, ok := b.Get(ctx, core.TotalCategory, month)
	if !ok {
		return BudgetStatus{Spending: spending}
	}
	return evaluate(bud, spending)
}

func (b *BudgetBook) IsExceeded(ctx context.Context, category, month string) bool {
	return b.Status(ctx, category, month).IsExceeded
}

func (b *BudgetBook) IsTotalExceeded(ctx context.Context, month string) bool {
	return b.TotalStatus(ctx, month).IsExceeded
}

func (b *BudgetBook) month(m string) string {
	if m == "" {
		return core.MonthKey(b.now())
	}
	return m
}

func evaluate(bud core.Budget, spending core.Money) BudgetStatus {
	st := BudgetStatus{
		Budget:     &bud,
		Spending:   spending,
		Remaining:  core.Zero,
		IsExceeded: spending.GreaterThan(bud.Amount.Decimal),
	}
	if rem := bud.Amount.Minus(spending); rem.IsPositive() {
		st.Remaining = rem
	}
	if bud.Amount.IsPositive() {
		st.PercentageUsed = spending.Mul(hundred).DivRound(bud.Amount.Decimal, 4).InexactFloat64()
	}
	return st
}
