package ledger

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

// ExpenseStore is the durable client-local list of expenses, newest first.
type ExpenseStore struct {
	items   *collection[core.Expense]
	intents IntentPublisher
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

// NewExpenseStore creates a store over the EXPENSES blob. Intents are
// dropped until SetPublisher is called.
func NewExpenseStore(store storage.BlobStore, logger *log.Logger) *ExpenseStore {
	logger = logger.WithComponent(log.ComponentExpense)
	s := &ExpenseStore{
		items:   newCollection[core.Expense](store, storage.KeyExpenses, logger),
		intents: noopPublisher{},
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	s.items.decodeLegacy = decodeLegacyExpenses
	s.items.upgrade = func(items []core.Expense) []core.Expense {
		now := s.now()
		for i := range items {
			items[i] = items[i].Normalize(now)
		}
		return items
	}
	return s
}

// SetPublisher routes sync intents to p.
func (s *ExpenseStore) SetPublisher(p IntentPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	s.intents = p
}

// List returns all expenses, newest first. Read failures yield an empty list.
func (s *ExpenseStore) List(ctx context.Context) []core.Expense {
	return s.items.read(ctx)
}

// Get finds an expense by id.
func (s *ExpenseStore) Get(ctx context.Context, id string) (core.Expense, bool) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

// Create validates e, fills id, date and payment method when missing, and
// prepends it to the list.
func (s *ExpenseStore) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	e = e.Normalize(s.now())

	err := s.items.update(ctx, func(items []core.Expense) ([]core.Expense, error) {
		return append([]core.Expense{e}, items...), nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	s.logger.InfoContext(ctx, "Expense saved locally",
		log.NewFields().WithExpense(e).WithOperation(log.OpCreate).ToSlice()...)
	s.intents.Publish(ctx, SyncIntent{Kind: IntentCreate, Expense: e, ExpenseID: e.ID})
	return e, nil
}

// Update replaces the amount of the expense with the given id. An unknown
// id is a no-op: nothing is written and no intent is emitted.
func (s *ExpenseStore) Update(ctx context.Context, id string, amount core.Money) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	var (
		updated core.Expense
		found   bool
	)
	err := s.items.update(ctx, func(items []core.Expense) ([]core.Expense, error) {
		i := slices.IndexFunc(items, func(e core.Expense) bool { return e.ID == id })
		if i < 0 {
			return items, nil
		}
		items[i].Amount = amount
		updated, found = items[i], true
		return items, nil
	})
	if err != nil {
		return err
	}
	if !found {
		s.logger.DebugContext(ctx, "Update of unknown expense ignored", log.FieldExpenseID, id)
		return nil
	}

	s.logger.InfoContext(ctx, "Expense updated locally",
		log.NewFields().WithExpense(updated).WithOperation(log.OpUpdate).ToSlice()...)
	s.intents.Publish(ctx, SyncIntent{Kind: IntentUpdate, Expense: updated, ExpenseID: id})
	return nil
}

// Delete removes the expense with the given id. Removing an unknown id
// still succeeds.
func (s *ExpenseStore) Delete(ctx context.Context, id string) error {
	err := s.items.update(ctx, func(items []core.Expense) ([]core.Expense, error) {
		return slices.DeleteFunc(items, func(e core.Expense) bool { return e.ID == id }), nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Expense deleted locally",
		log.FieldExpenseID, id, log.FieldOperation, log.OpDelete)
	s.intents.Publish(ctx, SyncIntent{Kind: IntentDelete, ExpenseID: id})
	return nil
}

// legacyExpense mirrors records written by older clients, whose dates
// were free-form strings.
type legacyExpense struct {
	ID            string     `json:"id"`
	Amount        core.Money `json:"amount"`
	Category      string     `json:"category"`
	Date          string     `json:"date"`
	PaymentMethod string     `json:"paymentMethod"`
}

func decodeLegacyExpenses(raw []byte) ([]core.Expense, error) {
	var legacy []legacyExpense
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(legacy))
	for _, l := range legacy {
		e := core.Expense{
			ID:            l.ID,
			Amount:        l.Amount,
			Category:      l.Category,
			PaymentMethod: l.PaymentMethod,
		}
		// Unparseable dates are left zero and defaulted by the upgrade.
		if t, err := core.ParseDay(l.Date); err == nil {
			e.Date = t
		}
		out = append(out, e)
	}
	return out, nil
}
