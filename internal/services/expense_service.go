package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendsync/internal/cache"
	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/repository"
)

// MergePublisher receives an event after each bulk upsert.
type MergePublisher interface {
	PublishMerge(ctx context.Context, ev core.MergeEvent) error
}

// ExpensePatch is a partial update; nil fields are left unchanged.
type ExpensePatch struct {
	Amount        *core.Money `json:"amount"`
	Category      *string     `json:"category"`
	Date          *time.Time  `json:"date"`
	PaymentMethod *string     `json:"paymentMethod"`
}

// ExpenseService is the server-side expense store. Aggregates are computed
// over the full collection and cached until the next write.
type ExpenseService struct {
	repo      repository.ExpenseRepository
	daily     cache.Cache[core.DailySummary]
	monthly   cache.Cache[core.MonthlySummary]
	publisher MergePublisher
	logger    *log.Logger
	now       func() time.Time

	// gen counts invalidations. An aggregate is cached only if no write
	// invalidated the caches while it was being computed.
	mu  sync.Mutex
	gen uint64
}

// ExpenseServiceOption configures an ExpenseService.
type ExpenseServiceOption func(*ExpenseService)

// WithAggregateCaches sets the caches used for the daily and monthly views.
func WithAggregateCaches(daily cache.Cache[core.DailySummary], monthly cache.Cache[core.MonthlySummary]) ExpenseServiceOption {
	return func(s *ExpenseService) {
		s.daily = daily
		s.monthly = monthly
	}
}

// WithMergePublisher sets where merge events go. A nil publisher disables them.
func WithMergePublisher(p MergePublisher) ExpenseServiceOption {
	return func(s *ExpenseService) { s.publisher = p }
}

func NewExpenseService(repo repository.ExpenseRepository, logger *log.Logger, opts ...ExpenseServiceOption) *ExpenseService {
	s := &ExpenseService{
		repo:    repo,
		daily:   cache.NewLRUCache[core.DailySummary](100, 5*time.Minute),
		monthly: cache.NewLRUCache[core.MonthlySummary](100, 5*time.Minute),
		logger:  logger.WithComponent(log.ComponentExpense),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Create stores e under a new server-assigned id. Any id in e is ignored.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if !e.Amount.IsPositive() {
		return core.Expense{}, core.ErrInvalidAmount
	}
	e.ID = uuid.NewString()
	if err := s.repo.Insert(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(e).
		ToSlice()...)
	return e, nil
}

// Update merges the non-nil fields of patch into the stored record.
func (s *ExpenseService) Update(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if patch.Amount != nil {
		if !patch.Amount.IsPositive() {
			return core.Expense{}, core.ErrInvalidAmount
		}
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.PaymentMethod != nil {
		e.PaymentMethod = *patch.PaymentMethod
	}

	if err := s.repo.Replace(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "Expense updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithExpense(e).
		ToSlice()...)
	return e, nil
}

// Delete removes the record. Unknown ids succeed.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id)
	return nil
}

// Merge upserts expenses by id and returns how many were applied. Entries
// without an id are skipped.
func (s *ExpenseService) Merge(ctx context.Context, source core.MergeSource, expenses []core.Expense) (int, error) {
	batch := make([]core.Expense, 0, len(expenses))
	ids := make([]string, 0, len(expenses))
	for _, e := range expenses {
		if e.ID == "" {
			continue
		}
		batch = append(batch, e)
		ids = append(ids, e.ID)
	}
	if skipped := len(expenses) - len(batch); skipped > 0 {
		s.logger.WarnContext(ctx, "Skipping expenses without id",
			log.FieldSource, string(source),
			log.FieldCount, skipped)
	}

	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.repo.Upsert(ctx, batch); err != nil {
		return 0, fmt.Errorf("merge expenses: %w", err)
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "Expenses merged",
		log.FieldOperation, log.OpMerge,
		log.FieldSource, string(source),
		log.FieldCount, len(batch))

	s.publishMerge(ctx, core.MergeEvent{Source: source, IDs: ids, At: s.now()})
	return len(batch), nil
}

// Daily aggregates the expenses on the given day (YYYY-MM-DD or RFC 3339).
// An empty date means today; the response echoes the input label.
func (s *ExpenseService) Daily(ctx context.Context, date string) (core.DailySummary, error) {
	day := s.now()
	if date == "" {
		date = day.Format("2006-01-02")
	} else {
		var err error
		if day, err = core.ParseDay(date); err != nil {
			return core.DailySummary{}, err
		}
	}

	gen := s.generation()
	if v, ok := s.daily.Get(ctx, date); ok {
		return v, nil
	}
	expenses, err := s.repo.List(ctx)
	if err != nil {
		return core.DailySummary{}, fmt.Errorf("daily aggregate: %w", err)
	}
	summary := core.Summarize(expenses, date, day)
	s.storeIfCurrent(gen, func() { s.daily.Set(ctx, date, summary) })

	s.logger.DebugContext(ctx, "Daily aggregate computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldCount, len(summary.Expenses))
	return summary, nil
}

// Monthly aggregates a YYYY-MM month with a per-category breakdown. An empty
// month means the current one.
func (s *ExpenseService) Monthly(ctx context.Context, month string) (core.MonthlySummary, error) {
	if month == "" {
		month = core.MonthKey(s.now())
	}
	if _, _, err := core.ParseMonth(month); err != nil {
		return core.MonthlySummary{}, err
	}

	gen := s.generation()
	if v, ok := s.monthly.Get(ctx, month); ok {
		return v, nil
	}
	expenses, err := s.repo.List(ctx)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("monthly aggregate: %w", err)
	}
	summary := core.SummarizeMonth(expenses, month)
	s.storeIfCurrent(gen, func() { s.monthly.Set(ctx, month, summary) })

	s.logger.DebugContext(ctx, "Monthly aggregate computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldMonth, month,
		log.FieldCount, len(summary.Expenses))
	return summary, nil
}

func (s *ExpenseService) invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.daily.Clear(ctx)
	s.monthly.Clear(ctx)
}

func (s *ExpenseService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// storeIfCurrent runs set unless the caches were invalidated since gen
// was read.
func (s *ExpenseService) storeIfCurrent(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.logger.Debug("Discarding aggregate computed before a write")
		return
	}
	set()
}

func (s *ExpenseService) publishMerge(ctx context.Context, ev core.MergeEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Merge publisher not configured, skipping event")
		return
	}
	if err := s.publisher.PublishMerge(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish merge event",
			log.FieldSource, string(ev.Source),
			log.FieldError, err.Error())
	}
}
