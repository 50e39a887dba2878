package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/store/memstore"
)

// fakeAPI serves /todos and /todos/{id} like the demo API.
type fakeAPI struct {
	total  int
	fail   bool
	hits   atomic.Int32
	pages  atomic.Int32
	broken bool
}

func (f *fakeAPI) handle(rc *fasthttp.RequestCtx) {
	f.hits.Add(1)
	if f.fail {
		rc.SetStatusCode(fasthttp.StatusServiceUnavailable)
		return
	}
	path := string(rc.Path())
	rc.SetContentType("application/json")
	switch {
	case path == "/todos":
		f.pages.Add(1)
		if f.broken {
			rc.SetBodyString(`[{"id": 1, "completed": "nope"}]`)
			return
		}
		limit, _ := strconv.Atoi(string(rc.QueryArgs().Peek("_limit")))
		if limit <= 0 || limit > f.total {
			limit = f.total
		}
		out := make([]map[string]any, 0, limit)
		for i := 1; i <= limit; i++ {
			out = append(out, map[string]any{
				"userId": 1 + i/10, "id": i, "title": fmt.Sprintf("remote %d", i), "completed": i%3 == 0,
			})
		}
		b, _ := json.Marshal(out)
		rc.SetBody(b)
	case strings.HasPrefix(path, "/todos/"):
		id, err := strconv.Atoi(strings.TrimPrefix(path, "/todos/"))
		if err != nil || id < 1 || id > f.total {
			rc.SetStatusCode(fasthttp.StatusNotFound)
			rc.SetBodyString("{}")
			return
		}
		fmt.Fprintf(rc, `{"userId": 4, "id": %d, "title": "remote %d", "completed": false}`, id, id)
	default:
		rc.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newFakeAPI(t *testing.T, api *fakeAPI) *HTTPSource {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: api.handle}

	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ln)
		close(done)
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		_ = srv.Shutdown()
		<-done
	})

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
	return NewHTTPSource("http://demo.test", client)
}

type staticFallback struct {
	todos []model.Todo
	err   error
}

func (s staticFallback) Load() ([]model.Todo, bool, error) {
	return s.todos, s.todos != nil, s.err
}

func TestFetchPage(t *testing.T) {
	src := newFakeAPI(t, &fakeAPI{total: 200})
	todos, err := src.FetchPage(context.Background(), 30)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(todos) != 30 {
		t.Fatalf("got %d todos, want 30", len(todos))
	}
	if todos[0].ID != 1 || todos[29].ID != 30 || todos[0].Title != "remote 1" {
		t.Errorf("unexpected page: first %+v last %+v", todos[0], todos[29])
	}
}

func TestFetchPageRejectsInvalidPayload(t *testing.T) {
	src := newFakeAPI(t, &fakeAPI{total: 5, broken: true})
	if _, err := src.FetchPage(context.Background(), 5); err == nil {
		t.Fatal("FetchPage accepted a payload with missing title and bad completed")
	}
}

func TestFetchOne(t *testing.T) {
	src := newFakeAPI(t, &fakeAPI{total: 10})
	ctx := context.Background()

	got, err := src.FetchOne(ctx, 7)
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if got.ID != 7 || got.UserID != 4 {
		t.Errorf("FetchOne = %+v", got)
	}

	_, err = src.FetchOne(ctx, 99)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("FetchOne missing = %v, want ErrNotFound", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != fasthttp.StatusNotFound {
		t.Errorf("FetchOne missing error = %#v, want StatusError 404", err)
	}
}

func TestEnsureSeeded(t *testing.T) {
	api := &fakeAPI{total: 200}
	src := newFakeAPI(t, api)
	st := memstore.New()
	l := NewLoader(st, src)
	ctx := context.Background()

	n, err := l.EnsureSeeded(ctx)
	if err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}
	if n != DefaultLimit {
		t.Errorf("seeded %d, want %d", n, DefaultLimit)
	}
	for id := int64(1); id <= 30; id++ {
		got, ok, _ := st.Get(ctx, id)
		if !ok {
			t.Fatalf("id %d missing after seed", id)
		}
		if got.UserID != model.DefaultUserID {
			t.Errorf("id %d UserID = %d, want default", id, got.UserID)
		}
	}

	// Second call is a no-op and does not hit the network.
	n, err = l.EnsureSeeded(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second EnsureSeeded = %d, %v", n, err)
	}
	if p := api.pages.Load(); p != 1 {
		t.Errorf("remote page fetched %d times, want 1", p)
	}
}

func TestEnsureSeededSkipsNonEmptyStore(t *testing.T) {
	api := &fakeAPI{total: 200}
	st := memstore.New(model.Todo{ID: 1700000000000, Title: "local", UserID: 1})
	l := NewLoader(st, newFakeAPI(t, api), WithLimit(5))

	n, err := l.EnsureSeeded(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("EnsureSeeded = %d, %v", n, err)
	}
	if api.hits.Load() != 0 {
		t.Errorf("remote contacted %d times for a non-empty store", api.hits.Load())
	}
}

func TestEnsureSeededFailure(t *testing.T) {
	st := memstore.New()
	l := NewLoader(st, newFakeAPI(t, &fakeAPI{fail: true}))

	_, err := l.EnsureSeeded(context.Background())
	if !errors.Is(err, ErrSeedFetchFailed) {
		t.Fatalf("EnsureSeeded = %v, want ErrSeedFetchFailed", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != fasthttp.StatusServiceUnavailable {
		t.Errorf("cause = %v, want 503 StatusError", err)
	}
	if n, _ := st.Count(context.Background()); n != 0 {
		t.Errorf("failed seed left %d records", n)
	}
}

func TestEnsureSeededUsesFallback(t *testing.T) {
	st := memstore.New()
	fb := staticFallback{todos: []model.Todo{
		{ID: 3, Title: "cached three", UserID: 9},
		{ID: 1700000000000, Title: "cached local", Completed: true, UserID: 1},
	}}
	l := NewLoader(st, newFakeAPI(t, &fakeAPI{fail: true}), WithFallback(fb))

	n, err := l.EnsureSeeded(context.Background())
	if err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded %d from fallback, want 2", n)
	}
	if got, ok, _ := st.Get(context.Background(), 1700000000000); !ok || !got.Completed {
		t.Errorf("fallback record = %+v, %v", got, ok)
	}
}

func TestEnsureSeededEmptyFallbackStillFails(t *testing.T) {
	l := NewLoader(memstore.New(), newFakeAPI(t, &fakeAPI{fail: true}),
		WithFallback(staticFallback{}))
	if _, err := l.EnsureSeeded(context.Background()); !errors.Is(err, ErrSeedFetchFailed) {
		t.Fatalf("EnsureSeeded = %v, want ErrSeedFetchFailed", err)
	}
}
