// Package seed populates an empty todo store from a remote read-only API.
//
// Seeding happens at most once per empty store: once any record exists the
// loader is a no-op, even if the remote collection has changed since.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/store"
)

// DefaultLimit is the size of the one page pulled on first run.
const DefaultLimit = 30

var (
	ErrSeedFetchFailed       = errors.New("seed fetch failed")
	ErrRemoteItemFetchFailed = errors.New("remote todo fetch failed")
)

// Fallback is a secondary copy of the collection, tried when the remote
// source is unavailable. jsonstore.Snapshot satisfies it.
type Fallback interface {
	Load() ([]model.Todo, bool, error)
}

// Loader checks the store and seeds it when empty.
type Loader struct {
	store    store.Store
	source   PageSource
	fallback Fallback
	limit    int
	logger   *log.Logger

	mu sync.Mutex
}

type Option func(*Loader)

func WithLimit(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

func WithFallback(f Fallback) Option {
	return func(l *Loader) { l.fallback = f }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(st store.Store, src PageSource, opts ...Option) *Loader {
	l := &Loader{store: st, source: src, limit: DefaultLimit}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDiscard(l.logger).WithPrefix("seed")
	return l
}

// EnsureSeeded fills an empty store and reports how many records it wrote.
// Callers in one process are serialized so a second caller sees the first
// caller's records and does nothing. Separate processes may both seed;
// upserts by id make that harmless.
func (l *Loader) EnsureSeeded(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	todos, fetchErr := l.source.FetchPage(ctx, l.limit)
	if fetchErr != nil {
		todos = l.fromFallback(fetchErr)
		if todos == nil {
			return 0, fmt.Errorf("%w: %w", ErrSeedFetchFailed, fetchErr)
		}
	}

	records := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		records = append(records, project(t))
	}
	if err := l.store.BulkInsert(ctx, records); err != nil {
		return 0, fmt.Errorf("bulk insert: %w", err)
	}
	l.logger.Info("seeded store", "count", len(records), "from_fallback", fetchErr != nil)
	return len(records), nil
}

// fromFallback returns the fallback's records, or nil when it has none.
func (l *Loader) fromFallback(cause error) []model.Todo {
	if l.fallback == nil {
		return nil
	}
	todos, ok, err := l.fallback.Load()
	if err != nil {
		l.logger.Warn("fallback unreadable", "err", err)
		return nil
	}
	if !ok || len(todos) == 0 {
		return nil
	}
	l.logger.Warn("remote seed failed, using snapshot", "err", cause, "count", len(todos))
	return todos
}

// project keeps the fields the store cares about; the remote owner is
// replaced by the local default.
func project(t model.Todo) model.Todo {
	return model.Todo{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		UserID:    model.DefaultUserID,
	}
}
