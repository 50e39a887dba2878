package memstore

import (
	"context"
	"sync"

	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/store"
)

// Store keeps todos in a map. Nothing survives the process.
type Store struct {
	mu    sync.RWMutex
	todos map[int64]model.Todo
}

var _ store.Store = (*Store)(nil)

func New(seed ...model.Todo) *Store {
	s := &Store{todos: make(map[int64]model.Todo, len(seed))}
	for _, t := range seed {
		s.todos[t.ID] = t
	}
	return s
}

func (s *Store) Get(_ context.Context, id int64) (model.Todo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	return t, ok, nil
}

func (s *Store) Put(_ context.Context, t model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos[t.ID] = t
	return nil
}

func (s *Store) BulkInsert(_ context.Context, todos []model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range todos {
		s.todos[t.ID] = t
	}
	return nil
}

func (s *Store) Update(_ context.Context, id int64, p model.Patch) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return model.Todo{}, model.ErrNotFound
	}
	t = p.Apply(t)
	s.todos[id] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.todos, id)
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos), nil
}

func (s *Store) List(_ context.Context) ([]model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
