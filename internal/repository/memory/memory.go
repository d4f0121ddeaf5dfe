// Package memory provides mutex-guarded in-process repositories. State is
// lost on restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"spendsync/internal/core"
)

type ExpenseRepository struct {
	mu       sync.RWMutex
	expenses []core.Expense
}

func NewExpenseRepository() *ExpenseRepository {
	return &ExpenseRepository{}
}

func (r *ExpenseRepository) List(context.Context) ([]core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.expenses), nil
}

func (r *ExpenseRepository) Get(_ context.Context, id string) (core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.expenses[i], nil
	}
	return core.Expense{}, core.ErrNotFound
}

func (r *ExpenseRepository) Insert(_ context.Context, e core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(e.ID) >= 0 {
		return core.ErrConflict
	}
	r.expenses = append(r.expenses, e)
	return nil
}

func (r *ExpenseRepository) Replace(_ context.Context, e core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(e.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	r.expenses[i] = e
	return nil
}

func (r *ExpenseRepository) Upsert(_ context.Context, expenses []core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range expenses {
		if i := r.index(e.ID); i >= 0 {
			r.expenses[i] = e
			continue
		}
		r.expenses = append(r.expenses, e)
	}
	return nil
}

func (r *ExpenseRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses = slices.DeleteFunc(r.expenses, func(e core.Expense) bool { return e.ID == id })
	return nil
}

// index must be called with mu held.
func (r *ExpenseRepository) index(id string) int {
	return slices.IndexFunc(r.expenses, func(e core.Expense) bool { return e.ID == id })
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]core.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]core.User)}
}

func (r *UserRepository) Create(_ context.Context, u core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := r.users[key]; ok {
		return core.ErrConflict
	}
	r.users[key] = u
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}
