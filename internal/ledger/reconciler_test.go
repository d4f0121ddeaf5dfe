package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
)

func waitIdle(t *testing.T, r *Reconciler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestCreateOnlinePushesFullList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)
	now := time.Now()

	require.NoError(t, f.queue.Append(ctx, expense("old", "1", "Food", now)))
	_, err := f.store.Create(ctx, expense("a", "10", "Food", now))
	require.NoError(t, err)
	waitIdle(t, f.rec)
	_, err = f.store.Create(ctx, expense("b", "20", "Food", now))
	require.NoError(t, err)
	waitIdle(t, f.rec)

	syncs, pendings := f.remote.counts()
	assert.Equal(t, 2, syncs)
	assert.Equal(t, 0, pendings)
	assert.Len(t, f.remote.syncCalls[1], 2, "every push carries the full local list")
	assert.Equal(t, 0, f.queue.Len(ctx), "successful push clears the queue")
	assert.Equal(t, StateSucceeded, f.rec.LastAttempt().State)
}

func TestOfflineCreateQueuesWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	e, err := f.store.Create(ctx, expense("a", "10", "Food", time.Now()))
	require.NoError(t, err)
	waitIdle(t, f.rec)

	syncs, _ := f.remote.counts()
	assert.Zero(t, syncs, "offline push must not reach the network")

	pending := f.queue.List(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, e.ID, pending[0].ID)

	last := f.rec.LastAttempt()
	assert.Equal(t, StateFailed, last.State)
	assert.ErrorIs(t, last.Err, ErrOffline)
}

func TestFailedUpdateQueuesSnapshotAndDeleteDoesNot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	_, err := f.store.Create(ctx, expense("a", "10", "Food", time.Now()))
	require.NoError(t, err)
	waitIdle(t, f.rec)

	f.remote.setErr(errors.New("HTTP 500"))
	require.NoError(t, f.store.Update(ctx, "a", core.MustMoney("30")))
	waitIdle(t, f.rec)

	pending := f.queue.List(ctx)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Amount.Equals(core.MustMoney("30")))

	require.NoError(t, f.store.Delete(ctx, "missing"))
	waitIdle(t, f.rec)
	assert.Len(t, f.queue.List(ctx), 1, "failed deletes are never queued")
}

func TestPushAllEmptyListSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)
	require.NoError(t, f.queue.Append(ctx, expense("q", "1", "Food", time.Now())))

	require.NoError(t, f.rec.PushAll(ctx))

	syncs, _ := f.remote.counts()
	assert.Zero(t, syncs)
	assert.Equal(t, 1, f.queue.Len(ctx), "empty push leaves the queue untouched")
}

func TestFlushPending(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("offline", func(t *testing.T) {
		f := newFixture(false)
		require.NoError(t, f.queue.Append(ctx, expense("q", "1", "Food", now)))
		require.ErrorIs(t, f.rec.FlushPending(ctx), ErrOffline)
		_, pendings := f.remote.counts()
		assert.Zero(t, pendings)
		assert.Equal(t, 1, f.queue.Len(ctx))
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(true)
		require.NoError(t, f.rec.FlushPending(ctx))
		_, pendings := f.remote.counts()
		assert.Zero(t, pendings)
	})

	t.Run("failure keeps queue", func(t *testing.T) {
		f := newFixture(true)
		f.remote.setErr(errors.New("boom"))
		require.NoError(t, f.queue.Append(ctx, expense("q", "1", "Food", now)))
		require.Error(t, f.rec.FlushPending(ctx))
		assert.Equal(t, 1, f.queue.Len(ctx))
	})

	t.Run("success clears queue", func(t *testing.T) {
		f := newFixture(true)
		require.NoError(t, f.queue.Append(ctx, expense("q1", "1", "Food", now)))
		require.NoError(t, f.queue.Append(ctx, expense("q1", "2", "Food", now)))
		require.NoError(t, f.rec.FlushPending(ctx))
		assert.Len(t, f.remote.pendingCall[0], 2, "duplicates are sent as queued")
		assert.Equal(t, 0, f.queue.Len(ctx))
	})
}

func TestRunFlushesOnRestoredSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushed := make(chan struct{}, 1)
	f := newFixture(false, WithFlushCallback(func() { flushed <- struct{}{} }))

	_, err := f.store.Create(ctx, expense("a", "10", "Food", time.Now()))
	require.NoError(t, err)
	waitIdle(t, f.rec)
	require.Equal(t, 1, f.queue.Len(ctx))

	restored := make(chan struct{})
	require.NoError(t, f.rec.Start(ctx, restored))
	assert.True(t, f.rec.IsRunning())

	f.conn.online.Store(true)
	restored <- struct{}{}

	select {
	case <-flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("flush callback not called")
	}
	assert.Equal(t, 0, f.queue.Len(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, f.rec.Stop(stopCtx))
	assert.False(t, f.rec.IsRunning())
}

func TestStartTwiceFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(true)
	restored := make(chan struct{})

	require.NoError(t, f.rec.Start(ctx, restored))
	require.Error(t, f.rec.Start(ctx, restored))
	require.NoError(t, f.rec.Stop(context.Background()))
}

func TestAttemptStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, StateIdle, newFixture(true).rec.LastAttempt().State)
}
