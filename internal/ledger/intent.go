package ledger

import (
	"context"

	"spendsync/internal/core"
)

// IntentKind names the local mutation that produced a sync intent.
type IntentKind string

const (
	IntentCreate IntentKind = "create"
	IntentUpdate IntentKind = "update"
	IntentDelete IntentKind = "delete"
)

// SyncIntent is emitted by the ExpenseStore after a successful local write.
// Expense is the written record for create and update; delete intents only
// carry ExpenseID.
type SyncIntent struct {
	Kind      IntentKind
	Expense   core.Expense
	ExpenseID string
}

// IntentPublisher receives sync intents. Publish must not block on the
// network.
type IntentPublisher interface {
	Publish(ctx context.Context, intent SyncIntent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, SyncIntent) {}

// RemoteSyncer is the server-side bulk upsert used by the reconciler.
type RemoteSyncer interface {
	Sync(ctx context.Context, expenses []core.Expense) error
	SyncPending(ctx context.Context, expenses []core.Expense) error
}

// Connectivity reports whether the server is believed reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ExpenseLister is the read side of the expense store.
type ExpenseLister interface {
	List(ctx context.Context) []core.Expense
}
