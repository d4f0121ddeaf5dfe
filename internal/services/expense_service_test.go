package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/repository/memory"
)

type recordingMergePublisher struct {
	mu     sync.Mutex
	events []core.MergeEvent
	err    error
}

func (p *recordingMergePublisher) PublishMerge(_ context.Context, ev core.MergeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var march = time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

func newExpenseService(t *testing.T, opts ...ExpenseServiceOption) *ExpenseService {
	t.Helper()
	s := NewExpenseService(memory.NewExpenseRepository(), log.Discard(), opts...)
	s.now = func() time.Time { return march }
	return s
}

func exp(id, amount, category string, date time.Time) core.Expense {
	return core.Expense{ID: id, Amount: core.MustMoney(amount), Category: category, Date: date, PaymentMethod: "Cash"}
}

func TestExpenseServiceCreate(t *testing.T) {
	ctx := context.Background()
	s := newExpenseService(t)

	created, err := s.Create(ctx, core.Expense{ID: "client-id", Amount: core.MustMoney("12.5"), Category: "Food"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-id", created.ID)

	_, err = s.Create(ctx, core.Expense{Amount: core.MustMoney("0"), Category: "Food"})
	assert.ErrorIs(t, err, core.ErrValidation)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestExpenseServiceUpdate(t *testing.T) {
	ctx := context.Background()
	s := newExpenseService(t)

	_, err := s.Update(ctx, "missing", ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = s.Merge(ctx, core.MergeFullSync, []core.Expense{exp("a", "10", "Food", march)})
	require.NoError(t, err)

	amount := core.MustMoney("25")
	category := "Travel"
	updated, err := s.Update(ctx, "a", ExpensePatch{Amount: &amount, Category: &category})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equals(amount))
	assert.Equal(t, "Travel", updated.Category)
	assert.Equal(t, "Cash", updated.PaymentMethod, "unpatched fields are kept")

	zero := core.MustMoney("0")
	_, err = s.Update(ctx, "a", ExpensePatch{Amount: &zero})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestExpenseServiceMerge(t *testing.T) {
	ctx := context.Background()
	pub := &recordingMergePublisher{}
	s := newExpenseService(t, WithMergePublisher(pub))

	batch := []core.Expense{
		exp("a", "10", "Food", march),
		{Amount: core.MustMoney("3"), Category: "Food"},
		exp("b", "4", "Bills", march),
	}
	n, err := s.Merge(ctx, core.MergeFullSync, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same batch again: idempotent.
	n, err = s.Merge(ctx, core.MergePendingSync, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.Len(t, pub.events, 2)
	assert.Equal(t, core.MergeFullSync, pub.events[0].Source)
	assert.Equal(t, []string{"a", "b"}, pub.events[0].IDs)
	assert.Equal(t, core.MergePendingSync, pub.events[1].Source)
}

func TestExpenseServiceMergePublishFailureIsIgnored(t *testing.T) {
	pub := &recordingMergePublisher{err: errors.New("broker down")}
	s := newExpenseService(t, WithMergePublisher(pub))

	n, err := s.Merge(context.Background(), core.MergeFullSync, []core.Expense{exp("a", "1", "Food", march)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExpenseServiceMergeEmptyBatch(t *testing.T) {
	pub := &recordingMergePublisher{}
	s := newExpenseService(t, WithMergePublisher(pub))

	n, err := s.Merge(context.Background(), core.MergeFullSync, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, pub.events)
}

func TestExpenseServiceAggregates(t *testing.T) {
	ctx := context.Background()
	s := newExpenseService(t)

	other := time.Date(2025, 2, 27, 9, 0, 0, 0, time.Local)
	_, err := s.Merge(ctx, core.MergeFullSync, []core.Expense{
		exp("a", "10", "Food", march),
		exp("b", "5.25", "Travel", march),
		exp("c", "2", "Food", march.AddDate(0, 0, 1)),
		exp("d", "100", "Food", other),
	})
	require.NoError(t, err)

	day, err := s.Daily(ctx, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", day.Date)
	assert.True(t, day.Total.Equals(core.MustMoney("15.25")), "total %s", day.Total)
	assert.Len(t, day.Expenses, 2)

	month, err := s.Monthly(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, month.Total.Equals(core.MustMoney("17.25")))
	assert.True(t, month.CategoryBreakdown["Food"].Equals(core.MustMoney("12")))
	assert.True(t, month.CategoryBreakdown["Travel"].Equals(core.MustMoney("5.25")))

	// Writes invalidate cached aggregates.
	require.NoError(t, s.Delete(ctx, "b"))
	month, err = s.Monthly(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, month.Total.Equals(core.MustMoney("12")))

	empty, err := s.Monthly(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", empty.Month)

	_, err = s.Monthly(ctx, "2025-13")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	_, err = s.Daily(ctx, "not-a-date")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestExpenseServiceDeleteUnknown(t *testing.T) {
	s := newExpenseService(t)
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}

// gatedRepository holds the first List call until release is closed.
type gatedRepository struct {
	*memory.ExpenseRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepository) List(ctx context.Context) ([]core.Expense, error) {
	list, err := r.ExpenseRepository.List(ctx)
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return list, err
}

func TestExpenseServiceAggregateNotCachedAcrossWrite(t *testing.T) {
	ctx := context.Background()
	repo := &gatedRepository{
		ExpenseRepository: memory.NewExpenseRepository(),
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	s := NewExpenseService(repo, log.Discard())
	june := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

	done := make(chan core.MonthlySummary)
	go func() {
		sum, err := s.Monthly(ctx, "2024-06")
		assert.NoError(t, err)
		done <- sum
	}()

	<-repo.entered
	n, err := s.Merge(ctx, core.MergeFullSync, []core.Expense{exp("a", "10", "Food", june)})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	close(repo.release)

	stale := <-done
	assert.Empty(t, stale.Expenses)

	fresh, err := s.Monthly(ctx, "2024-06")
	require.NoError(t, err)
	require.Len(t, fresh.Expenses, 1)
	assert.True(t, fresh.Total.Equals(core.MustMoney("10")))
}
