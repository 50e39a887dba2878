// Package query deduplicates and caches reads by an explicit key.
//
// Each key moves through Idle -> Loading -> Success | Error and stays in
// Success or Error until it is invalidated. At most one load per key runs
// at a time; callers arriving meanwhile share its result. A load that was
// started before an invalidation never writes its result into the cache.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/idilsaglam/todolocal/internal/logging"
)

// Key names a logical query. Build keys with the helpers below rather
// than by hand so equal queries always share one entry.
type Key string

// ErrTypeMismatch means a key was read with a different type than it was
// loaded with.
var ErrTypeMismatch = errors.New("query type mismatch")

const AllTodos Key = "all-todos"

// TodoKey is the detail query for one todo.
func TodoKey(id int64) Key { return Key("todo:" + strconv.FormatInt(id, 10)) }

// family groups keys for metric labels: "all-todos", "todo".
func (k Key) family() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k[:i])
	}
	return string(k)
}

type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// State is what presentation code renders for a key.
type State struct {
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
}

type entry struct {
	gen   uint64
	state State
}

// Cache holds query results. The zero value is not usable; use New.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	metrics *Metrics
	logger  *log.Logger
	now     func() time.Time
}

type Option func(*Cache)

func WithMetrics(m *Metrics) Option { return func(c *Cache) { c.metrics = m } }

func WithLogger(l *log.Logger) Option { return func(c *Cache) { c.logger = l } }

func New(opts ...Option) *Cache {
	c := &Cache{entries: make(map[Key]*entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger).WithPrefix("query")
	return c
}

// State returns a copy of the current state of key.
func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return State{}
}

// Invalidate drops the cached state of each key. Loads in flight for
// those keys keep running for their current waiters but their results
// are discarded.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		e.gen++
		e.state = State{}
		c.group.Forget(string(key))
		c.metrics.invalidated(key)
		c.logger.Debug("invalidated", "key", key)
	}
}

// Fetch returns the cached value for key, or loads it with fn.
//
// A cached error is returned as is until the key is invalidated. If ctx
// ends first the caller gets ctx.Err(); the load itself continues and its
// result still lands in the cache.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	switch e.state.Status {
	case Success:
		data := e.state.Data
		c.mu.Unlock()
		c.metrics.hit(key)
		return as[T](key, data)
	case Error:
		err := e.state.Err
		c.mu.Unlock()
		c.metrics.hit(key)
		return zero, err
	}
	gen := e.gen
	e.state.Status = Loading
	// DoChan returns immediately, so holding mu here makes "check state,
	// then join or start the load" atomic with respect to store.
	ch := c.group.DoChan(string(key), func() (any, error) {
		c.metrics.load(key)
		v, err := fn(context.WithoutCancel(ctx))
		c.store(key, gen, v, err)
		return v, err
	})
	c.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return as[T](key, res.Val)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// as converts a cached value back to the caller's type.
func as[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, not %T", ErrTypeMismatch, key, v, zero)
	}
	return t, nil
}

// Refetch invalidates key and loads it again.
func Refetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	c.Invalidate(key)
	return Fetch(ctx, c, key, fn)
}

func (c *Cache) store(key Key, gen uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		c.metrics.stale(key)
		c.logger.Debug("discarded stale result", "key", key)
		return
	}
	if err != nil {
		e.state = State{Status: Error, Err: err, UpdatedAt: c.now()}
		c.metrics.failed(key)
		c.logger.Debug("load failed", "key", key, "err", err)
		return
	}
	e.state = State{Status: Success, Data: v, UpdatedAt: c.now()}
}
