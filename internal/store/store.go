// Package store defines the persistent todo store contract.
//
// Implementations live in subpackages: sqlitestore is the durable one,
// memstore is a map used by tests and throwaway sessions.
package store

import (
	"context"

	"github.com/idilsaglam/todolocal/internal/model"
)

// Store is a durable key-indexed collection of todos.
// Single-record operations are atomic; there are no cross-operation
// transactions.
type Store interface {
	// Get returns ok=false on a miss; a miss is not an error.
	Get(ctx context.Context, id int64) (todo model.Todo, ok bool, err error)
	// Put inserts or replaces by id.
	Put(ctx context.Context, todo model.Todo) error
	// BulkInsert upserts many records in one logical operation.
	BulkInsert(ctx context.Context, todos []model.Todo) error
	// Update merges p onto the stored record and returns the result.
	// It fails with model.ErrNotFound if id is absent.
	Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error)
	// Delete removes id; deleting an absent id succeeds.
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	// List returns every record in no particular order.
	List(ctx context.Context) ([]model.Todo, error)
	Close() error
}
