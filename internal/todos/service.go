// Package todos is the API the CLI and TUI talk to. It routes reads
// through the query cache, writes through the repository, and keeps the
// two coherent by invalidating after every successful write.
package todos

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/query"
	"github.com/idilsaglam/todolocal/internal/repo"
)

// Snapshotter receives the full list after every fresh load.
type Snapshotter interface {
	Save(todos []model.Todo) error
}

type Service struct {
	repo     *repo.Repository
	cache    *query.Cache
	snapshot Snapshotter
	logger   *log.Logger
}

type Option func(*Service)

func WithSnapshot(s Snapshotter) Option { return func(svc *Service) { svc.snapshot = s } }

func WithLogger(l *log.Logger) Option { return func(svc *Service) { svc.logger = l } }

func New(r *repo.Repository, c *query.Cache, opts ...Option) *Service {
	s := &Service{repo: r, cache: c}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger).WithPrefix("todos")
	return s
}

// List returns every todo, newest id first.
func (s *Service) List(ctx context.Context) ([]model.Todo, error) {
	return query.Fetch(ctx, s.cache, query.AllTodos, s.loadAll)
}

// Refresh drops the cached list and loads it again; the manual retry.
func (s *Service) Refresh(ctx context.Context) ([]model.Todo, error) {
	return query.Refetch(ctx, s.cache, query.AllTodos, s.loadAll)
}

// ListState reports loading/error/data for the list query.
func (s *Service) ListState() query.State {
	return s.cache.State(query.AllTodos)
}

// Get returns one todo by its textual id.
func (s *Service) Get(ctx context.Context, idText string) (model.Todo, error) {
	id, err := model.ParseID(idText)
	if err != nil {
		return model.Todo{}, err
	}
	return query.Fetch(ctx, s.cache, query.TodoKey(id), func(ctx context.Context) (model.Todo, error) {
		return s.repo.Get(ctx, id)
	})
}

func (s *Service) Create(ctx context.Context, d model.Draft) (model.Todo, error) {
	t, err := s.repo.Create(ctx, d)
	if err != nil {
		return model.Todo{}, err
	}
	s.cache.Invalidate(query.AllTodos)
	return t, nil
}

func (s *Service) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	t, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return model.Todo{}, err
	}
	s.cache.Invalidate(query.AllTodos, query.TodoKey(id))
	return t, nil
}

func (s *Service) Toggle(ctx context.Context, id int64) (model.Todo, error) {
	t, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	s.cache.Invalidate(query.AllTodos, query.TodoKey(id))
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(query.AllTodos, query.TodoKey(id))
	return nil
}

func (s *Service) loadAll(ctx context.Context) ([]model.Todo, error) {
	todos, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.snapshot != nil {
		if err := s.snapshot.Save(todos); err != nil {
			s.logger.Warn("snapshot not saved", "err", err)
		}
	}
	return todos, nil
}
