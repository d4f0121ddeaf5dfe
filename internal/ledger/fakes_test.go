package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

type recordingPublisher struct {
	mu      sync.Mutex
	intents []SyncIntent
}

func (p *recordingPublisher) Publish(_ context.Context, i SyncIntent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, i)
}

func (p *recordingPublisher) all() []SyncIntent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SyncIntent(nil), p.intents...)
}

type fakeRemote struct {
	mu          sync.Mutex
	err         error
	syncCalls   [][]core.Expense
	pendingCall [][]core.Expense
}

func (f *fakeRemote) Sync(_ context.Context, expenses []core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, append([]core.Expense(nil), expenses...))
	return f.err
}

func (f *fakeRemote) SyncPending(_ context.Context, expenses []core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingCall = append(f.pendingCall, append([]core.Expense(nil), expenses...))
	return f.err
}

func (f *fakeRemote) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeRemote) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncCalls), len(f.pendingCall)
}

type fakeConn struct{ online atomic.Bool }

func newFakeConn(online bool) *fakeConn {
	c := &fakeConn{}
	c.online.Store(online)
	return c
}

func (c *fakeConn) Online(context.Context) bool { return c.online.Load() }

// fixture wires a store, queue and reconciler over an in-memory blob store.
type fixture struct {
	blobs  *storage.MemoryBlobStore
	store  *ExpenseStore
	queue  *PendingQueue
	remote *fakeRemote
	conn   *fakeConn
	rec    *Reconciler
}

func newFixture(online bool, opts ...ReconcilerOption) *fixture {
	logger := log.Discard()
	f := &fixture{
		blobs:  storage.NewMemoryBlobStore(),
		remote: &fakeRemote{},
		conn:   newFakeConn(online),
	}
	f.store = NewExpenseStore(f.blobs, logger)
	f.queue = NewPendingQueue(f.blobs, logger)
	f.rec = NewReconciler(f.store, f.queue, f.remote, f.conn, logger, opts...)
	f.store.SetPublisher(f.rec)
	return f
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func expense(id, amount, category string, date time.Time) core.Expense {
	return core.Expense{ID: id, Amount: core.MustMoney(amount), Category: category, Date: date, PaymentMethod: "Card"}
}
