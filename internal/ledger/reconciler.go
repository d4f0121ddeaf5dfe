package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spendsync/internal/core"
	"spendsync/internal/log"
)

// ErrOffline is returned when an attempt is skipped because the server is
// believed unreachable. No network call is made in that case.
var ErrOffline = errors.New("offline")

// AttemptState is the state of one sync attempt.
type AttemptState int

const (
	StateIdle AttemptState = iota
	StateAttempting
	StateSucceeded
	StateFailed
)

func (s AttemptState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Attempt records the most recent sync attempt.
type Attempt struct {
	Operation string
	State     AttemptState
	Err       error
	Count     int
	At        time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithFlushCallback registers fn to run after every successful flush
// triggered by a connectivity-restored signal.
func WithFlushCallback(fn func()) ReconcilerOption {
	return func(r *Reconciler) { r.onFlushed = fn }
}

// Reconciler pushes local state to the server. Each sync intent spawns one
// fire-and-forget attempt; failures are parked in the pending queue and
// flushed when connectivity returns.
//
// Attempts are not mutually exclusive. The server's upsert by id is what
// makes overlapping pushes and flushes converge.
type Reconciler struct {
	expenses ExpenseLister
	queue    *PendingQueue
	remote   RemoteSyncer
	conn     Connectivity
	logger   *log.Logger
	now      func() time.Time

	onFlushed func()

	inflight sync.WaitGroup

	mu      sync.Mutex
	last    Attempt
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(expenses ExpenseLister, queue *PendingQueue, remote RemoteSyncer, conn Connectivity, logger *log.Logger, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		expenses: expenses,
		queue:    queue,
		remote:   remote,
		conn:     conn,
		logger:   logger.WithComponent(log.ComponentSync),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish starts an attempt for intent in the background. The attempt
// outlives ctx's cancellation; use Wait to drain.
func (r *Reconciler) Publish(ctx context.Context, intent SyncIntent) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.HandleIntent(context.WithoutCancel(ctx), intent)
	}()
}

// HandleIntent pushes the full local list and, when that fails, parks the
// changed record in the pending queue. Failed deletes are not queued.
func (r *Reconciler) HandleIntent(ctx context.Context, intent SyncIntent) {
	err := r.PushAll(ctx)
	if err == nil {
		return
	}

	switch intent.Kind {
	case IntentCreate, IntentUpdate:
		if qerr := r.queue.Append(ctx, intent.Expense); qerr != nil {
			r.logger.ErrorContext(ctx, "Failed to queue expense for later sync",
				log.NewFields().WithExpense(intent.Expense).WithError(qerr).ToSlice()...)
			return
		}
		r.logger.InfoContext(ctx, "Expense queued for later sync",
			log.FieldExpenseID, intent.Expense.ID, log.FieldIntent, string(intent.Kind), log.FieldError, err.Error())
	case IntentDelete:
		// Known gap: the server keeps the record until the next successful full push.
		r.logger.WarnContext(ctx, "Delete not synced and not queued",
			log.FieldExpenseID, intent.ExpenseID, log.FieldError, err.Error())
	}
}

// PushAll sends the complete local list to the server. An empty list
// succeeds without a network call and leaves the queue untouched; a
// successful push clears the queue.
func (r *Reconciler) PushAll(ctx context.Context) error {
	r.record(log.OpSync, StateAttempting, nil, 0)

	if !r.conn.Online(ctx) {
		r.record(log.OpSync, StateFailed, ErrOffline, 0)
		return ErrOffline
	}

	expenses := r.expenses.List(ctx)
	if len(expenses) == 0 {
		r.record(log.OpSync, StateSucceeded, nil, 0)
		return nil
	}

	if err := r.remote.Sync(ctx, expenses); err != nil {
		r.logger.WarnContext(ctx, "Sync failed", log.FieldCount, len(expenses), log.FieldError, err.Error())
		err = fmt.Errorf("sync expenses: %w", err)
		r.record(log.OpSync, StateFailed, err, len(expenses))
		return err
	}

	if err := r.queue.Clear(ctx); err != nil {
		r.logger.WarnContext(ctx, "Failed to clear pending queue after sync", log.FieldError, err.Error())
	}
	r.logger.InfoContext(ctx, "Expenses synced", log.FieldCount, len(expenses))
	r.record(log.OpSync, StateSucceeded, nil, len(expenses))
	return nil
}

// FlushPending sends the pending queue to the server and clears it on
// success. A failed flush leaves the queue intact.
func (r *Reconciler) FlushPending(ctx context.Context) error {
	r.record(log.OpSyncPending, StateAttempting, nil, 0)

	if !r.conn.Online(ctx) {
		r.record(log.OpSyncPending, StateFailed, ErrOffline, 0)
		return ErrOffline
	}

	pending := r.queue.List(ctx)
	if len(pending) == 0 {
		r.record(log.OpSyncPending, StateSucceeded, nil, 0)
		return nil
	}

	if err := r.remote.SyncPending(ctx, pending); err != nil {
		r.logger.WarnContext(ctx, "Pending flush failed", log.FieldCount, len(pending), log.FieldError, err.Error())
		err = fmt.Errorf("sync pending expenses: %w", err)
		r.record(log.OpSyncPending, StateFailed, err, len(pending))
		return err
	}

	if err := r.queue.Clear(ctx); err != nil {
		err = fmt.Errorf("clear pending queue: %w", err)
		r.record(log.OpSyncPending, StateFailed, err, len(pending))
		return err
	}
	r.logger.InfoContext(ctx, "Pending expenses flushed", log.FieldCount, len(pending))
	r.record(log.OpSyncPending, StateSucceeded, nil, len(pending))
	return nil
}

// Run flushes the pending queue each time restored fires, until ctx is
// done or restored is closed. Flushes run asynchronously.
func (r *Reconciler) Run(ctx context.Context, restored <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-restored:
			if !ok {
				return
			}
			r.inflight.Add(1)
			go func() {
				defer r.inflight.Done()
				fctx := context.WithoutCancel(ctx)
				if err := r.FlushPending(fctx); err != nil {
					return
				}
				if r.onFlushed != nil {
					r.onFlushed()
				}
			}()
		}
	}
}

// Start runs Run in the background. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context, restored <-chan struct{}) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(doneCh)
		defer cancel()
		go func() {
			select {
			case <-stopCh:
				cancel()
			case <-runCtx.Done():
			}
		}()
		r.Run(runCtx, restored)
	}()

	r.logger.InfoContext(ctx, "Auto-sync started")
	return nil
}

// Stop ends the auto-sync loop and waits for in-flight attempts.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Auto-sync stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	if err := r.Wait(ctx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Auto-sync stopped")
	return nil
}

// IsRunning reports whether the auto-sync loop is active.
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until every in-flight attempt has finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastAttempt returns the most recent attempt; State is StateIdle before
// any attempt was made.
func (r *Reconciler) LastAttempt() Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reconciler) record(op string, state AttemptState, err error, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = Attempt{Operation: op, State: state, Err: err, Count: count, At: r.now()}
}

// Pending exposes the queued snapshots, mostly for status output.
func (r *Reconciler) Pending(ctx context.Context) []core.Expense {
	return r.queue.List(ctx)
}
