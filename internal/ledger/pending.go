package ledger

import (
	"context"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

// PendingQueue holds expense snapshots whose sync failed. Entries are only
// ever removed all at once.
type PendingQueue struct {
	items *collection[core.Expense]
}

func NewPendingQueue(store storage.BlobStore, logger *log.Logger) *PendingQueue {
	q := &PendingQueue{
		items: newCollection[core.Expense](store, storage.KeyPendingSync, logger.WithComponent(log.ComponentSync)),
	}
	q.items.decodeLegacy = decodeLegacyExpenses
	return q
}

// Append adds a snapshot to the end of the queue. Duplicates are kept.
func (q *PendingQueue) Append(ctx context.Context, e core.Expense) error {
	return q.items.update(ctx, func(items []core.Expense) ([]core.Expense, error) {
		return append(items, e), nil
	})
}

// List returns the queued snapshots in insertion order.
func (q *PendingQueue) List(ctx context.Context) []core.Expense {
	return q.items.read(ctx)
}

func (q *PendingQueue) Len(ctx context.Context) int {
	return len(q.List(ctx))
}

// Clear drops every queued snapshot.
func (q *PendingQueue) Clear(ctx context.Context) error {
	return q.items.clear(ctx)
}
