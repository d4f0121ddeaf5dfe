// Package storage provides the on-device key/value persistence used by the
// terminal client. Every value is an opaque blob that is read and written
// whole.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Keys used by the client.
const (
	KeyExpenses      = "EXPENSES"
	KeyMonthlyBudget = "MONTHLY_BUDGET"
	KeyPendingSync   = "PENDING_SYNC_EXPENSES"
	KeyAuthToken     = "AUTH_TOKEN"
	KeyUserInfo      = "USER_INFO"
)

// ErrBlobNotFound is returned by Get when the key was never written.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is whole-value persistence keyed by string.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryBlobStore keeps blobs in a map. Used in tests and as a throwaway
// store when no database path is configured.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBlobStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.blobs[key] = v
	return nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
