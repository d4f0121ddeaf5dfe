// Package repository defines the server-side persistence ports for
// expenses and users. Implementations live in subpackages.
package repository

import (
	"context"

	"spendsync/internal/core"
)

// ExpenseRepository stores expenses in insertion order. Replacing an
// existing record keeps its position.
type ExpenseRepository interface {
	List(ctx context.Context) ([]core.Expense, error)
	// Get returns core.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (core.Expense, error)
	Insert(ctx context.Context, e core.Expense) error
	// Replace overwrites an existing record; core.ErrNotFound if absent.
	Replace(ctx context.Context, e core.Expense) error
	// Upsert replaces each record with a matching id in place and appends
	// the rest, in order. Later entries with a repeated id win.
	Upsert(ctx context.Context, expenses []core.Expense) error
	// Delete removes the record if present. Unknown ids are not an error.
	Delete(ctx context.Context, id string) error
}

// UserRepository stores registered users keyed by email.
type UserRepository interface {
	// Create returns core.ErrConflict when the email is taken.
	Create(ctx context.Context, u core.User) error
	// FindByEmail returns core.ErrNotFound for unknown emails.
	FindByEmail(ctx context.Context, email string) (core.User, error)
}

// Pinger is implemented by repositories backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}
