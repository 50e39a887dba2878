// Package repo is the single path through which todos are read and mutated.
package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/seed"
	"github.com/idilsaglam/todolocal/internal/store"
)

// Seeder populates an empty store before the first list read.
type Seeder interface {
	EnsureSeeded(ctx context.Context) (int, error)
}

// Repository wraps a store with seeding, id minting and the remote
// per-item fallback. It knows nothing about caching.
type Repository struct {
	store  store.Store
	seeder Seeder
	remote seed.ItemSource
	now    func() time.Time
	logger *log.Logger

	mu   sync.Mutex
	last int64 // last minted id

	// writeMu serializes read-modify-write mutations.
	writeMu sync.Mutex
}

type Option func(*Repository)

// WithRemote enables the remote lookup for ids missing locally.
func WithRemote(src seed.ItemSource) Option {
	return func(r *Repository) { r.remote = src }
}

// WithClock replaces time.Now for id minting.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

func New(st store.Store, seeder Seeder, opts ...Option) *Repository {
	r := &Repository{store: st, seeder: seeder, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger).WithPrefix("repo")
	return r
}

// ListAll seeds an empty store, then returns every todo newest id first.
func (r *Repository) ListAll(ctx context.Context) ([]model.Todo, error) {
	if r.seeder != nil {
		if _, err := r.seeder.EnsureSeeded(ctx); err != nil {
			return nil, err
		}
	}
	todos, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID > todos[j].ID })
	return todos, nil
}

// Get looks id up locally and, when missing, asks the remote source.
// Remote results are returned but not stored.
func (r *Repository) Get(ctx context.Context, id int64) (model.Todo, error) {
	t, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	if ok {
		return t, nil
	}
	if r.remote == nil {
		return model.Todo{}, fmt.Errorf("todo %d: %w", id, model.ErrNotFound)
	}
	t, err = r.remote.FetchOne(ctx, id)
	if err != nil {
		return model.Todo{}, fmt.Errorf("%w: %w", seed.ErrRemoteItemFetchFailed, err)
	}
	r.logger.Debug("served todo from remote", "id", id)
	return t, nil
}

// Lookup accepts the id as text, the way it arrives from navigation.
func (r *Repository) Lookup(ctx context.Context, idText string) (model.Todo, error) {
	id, err := model.ParseID(idText)
	if err != nil {
		return model.Todo{}, err
	}
	return r.Get(ctx, id)
}

// Create stores a new todo under a freshly minted id.
func (r *Repository) Create(ctx context.Context, d model.Draft) (model.Todo, error) {
	if err := d.Validate(); err != nil {
		return model.Todo{}, err
	}
	id, err := r.mintID(ctx)
	if err != nil {
		return model.Todo{}, err
	}
	t := d.Todo(id)
	if err := r.store.Put(ctx, t); err != nil {
		return model.Todo{}, err
	}
	r.logger.Debug("created todo", "id", id)
	return t, nil
}

// Update merges p onto the stored todo.
func (r *Repository) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.update(ctx, id, p)
}

func (r *Repository) update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	if err := p.Validate(); err != nil {
		return model.Todo{}, err
	}
	t, err := r.store.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Todo{}, fmt.Errorf("todo %d: %w", id, model.ErrNotFound)
		}
		return model.Todo{}, err
	}
	return t, nil
}

// Toggle flips the completed flag. Concurrent toggles of one id never
// read the same prior value.
func (r *Repository) Toggle(ctx context.Context, id int64) (model.Todo, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	t, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	if !ok {
		return model.Todo{}, fmt.Errorf("todo %d: %w", id, model.ErrNotFound)
	}
	return r.update(ctx, id, model.SetCompleted(!t.Completed))
}

// Delete removes id. Deleting a missing id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.store.Delete(ctx, id)
}

// mintID returns a time-derived id greater than any id minted before by
// this repository and not present in the store.
func (r *Repository) mintID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.now().UnixMilli()
	if id <= r.last {
		id = r.last + 1
	}
	for {
		_, taken, err := r.store.Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("mint id: %w", err)
		}
		if !taken {
			break
		}
		id++
	}
	r.last = id
	return id, nil
}
