package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/seed"
	"github.com/idilsaglam/todolocal/internal/store/memstore"
)

// pageSource hands out ids 1..n and counts calls.
type pageSource struct {
	calls int
	err   error
}

func (p *pageSource) FetchPage(_ context.Context, limit int) ([]model.Todo, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]model.Todo, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, model.Todo{ID: int64(i), Title: fmt.Sprintf("remote %d", i), Completed: i%2 == 0, UserID: 7})
	}
	return out, nil
}

type itemSource map[int64]model.Todo

func (s itemSource) FetchOne(_ context.Context, id int64) (model.Todo, error) {
	t, ok := s[id]
	if !ok {
		return model.Todo{}, &seed.StatusError{URL: "/todos", Code: 404}
	}
	return t, nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newRepo(t *testing.T, src *pageSource, opts ...Option) (*Repository, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return New(st, seed.NewLoader(st, src), opts...), st
}

func TestSeedThenCreateScenario(t *testing.T) {
	src := &pageSource{}
	r, _ := newRepo(t, src)
	ctx := context.Background()

	todos, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(todos) != 30 {
		t.Fatalf("seeded %d todos, want 30", len(todos))
	}
	if todos[0].ID != 30 || todos[29].ID != 1 {
		t.Errorf("not sorted by id desc: first %d last %d", todos[0].ID, todos[29].ID)
	}

	created, err := r.Create(ctx, model.Draft{Title: "X"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID >= 1 && created.ID <= 30 {
		t.Errorf("created id %d collides with seed range", created.ID)
	}
	if created.Title != "X" || created.Completed {
		t.Errorf("created = %+v", created)
	}

	todos, err = r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(todos) != 31 {
		t.Fatalf("ListAll after create = %d, want 31", len(todos))
	}
	if todos[0] != created {
		t.Errorf("newest first = %+v, want %+v", todos[0], created)
	}
	if src.calls != 1 {
		t.Errorf("remote page fetched %d times, want 1", src.calls)
	}
}

func TestUpdateScenario(t *testing.T) {
	r, _ := newRepo(t, &pageSource{})
	ctx := context.Background()
	if _, err := r.ListAll(ctx); err != nil {
		t.Fatal(err)
	}

	before, err := r.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := r.Update(ctx, 5, model.SetCompleted(true))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.Completed || got.Title != before.Title {
		t.Errorf("Update = %+v, before %+v", got, before)
	}
	after, err := r.Get(ctx, 5)
	if err != nil || after != got {
		t.Errorf("Get after update = %+v, %v", after, err)
	}
}

func TestUpdateMissingLeavesStateAlone(t *testing.T) {
	r, st := newRepo(t, &pageSource{})
	ctx := context.Background()
	if _, err := r.ListAll(ctx); err != nil {
		t.Fatal(err)
	}
	snapshot, _ := st.List(ctx)

	_, err := r.Update(ctx, 999, model.SetTitle("ghost"))
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
	now, _ := st.List(ctx)
	if len(now) != len(snapshot) {
		t.Errorf("store size changed from %d to %d", len(snapshot), len(now))
	}
}

func TestDeleteScenario(t *testing.T) {
	r, _ := newRepo(t, &pageSource{})
	ctx := context.Background()
	if _, err := r.ListAll(ctx); err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, 5); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := r.Delete(ctx, 5); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}

func TestCreateValidation(t *testing.T) {
	r, st := newRepo(t, &pageSource{})
	ctx := context.Background()
	if _, err := r.Create(ctx, model.Draft{Title: "  "}); !errors.Is(err, model.ErrEmptyTitle) {
		t.Errorf("Create blank = %v, want ErrEmptyTitle", err)
	}
	if _, err := r.Update(ctx, 1, model.SetTitle("")); !errors.Is(err, model.ErrEmptyTitle) {
		t.Errorf("Update blank = %v, want ErrEmptyTitle", err)
	}
	if n, _ := st.Count(ctx); n != 0 {
		t.Errorf("invalid writes stored %d records", n)
	}
}

func TestMintIDNeverCollides(t *testing.T) {
	r, st := newRepo(t, &pageSource{}, WithClock(fixedClock(1000)))
	ctx := context.Background()
	// Occupy the ids the clock would hand out.
	_ = st.Put(ctx, model.Todo{ID: 1000, Title: "taken"})
	_ = st.Put(ctx, model.Todo{ID: 1001, Title: "taken too"})

	seen := map[int64]bool{1000: true, 1001: true}
	for i := 0; i < 5; i++ {
		created, err := r.Create(ctx, model.Draft{Title: "same millisecond"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[created.ID] {
			t.Fatalf("id %d minted twice", created.ID)
		}
		seen[created.ID] = true
	}
	if n, _ := st.Count(ctx); n != 7 {
		t.Errorf("Count = %d, want 7", n)
	}
}

func TestNetEffectOfMutations(t *testing.T) {
	clock := int64(5000)
	r, _ := newRepo(t, &pageSource{}, WithClock(func() time.Time {
		clock++
		return time.UnixMilli(clock)
	}))
	ctx := context.Background()
	if _, err := r.ListAll(ctx); err != nil {
		t.Fatal(err)
	}

	want := map[int64]model.Todo{}
	all, _ := r.ListAll(ctx)
	for _, td := range all {
		want[td.ID] = td
	}

	a, _ := r.Create(ctx, model.Draft{Title: "a"})
	want[a.ID] = a
	b, _ := r.Create(ctx, model.Draft{Title: "b", Completed: true})
	want[b.ID] = b
	upd, _ := r.Update(ctx, a.ID, model.SetTitle("a2"))
	want[a.ID] = upd
	tog, _ := r.Toggle(ctx, 3)
	want[3] = tog
	_ = r.Delete(ctx, b.ID)
	delete(want, b.ID)
	_ = r.Delete(ctx, 10)
	delete(want, 10)

	got, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ListAll = %d todos, want %d", len(got), len(want))
	}
	for _, td := range got {
		if want[td.ID] != td {
			t.Errorf("todo %d = %+v, want %+v", td.ID, td, want[td.ID])
		}
	}
}

func TestListAllSeedFailure(t *testing.T) {
	r, _ := newRepo(t, &pageSource{err: errors.New("offline")})
	_, err := r.ListAll(context.Background())
	if !errors.Is(err, seed.ErrSeedFetchFailed) {
		t.Fatalf("ListAll = %v, want ErrSeedFetchFailed", err)
	}
}

func TestGetFallsThroughToRemote(t *testing.T) {
	remote := itemSource{42: {ID: 42, Title: "from api", UserID: 3}}
	r, st := newRepo(t, &pageSource{}, WithRemote(remote))
	ctx := context.Background()

	got, err := r.Lookup(ctx, "42")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Title != "from api" {
		t.Errorf("Lookup = %+v", got)
	}
	if _, ok, _ := st.Get(ctx, 42); ok {
		t.Error("remote result was persisted")
	}

	_, err = r.Lookup(ctx, "43")
	if !errors.Is(err, seed.ErrRemoteItemFetchFailed) {
		t.Errorf("Lookup missing = %v, want ErrRemoteItemFetchFailed", err)
	}
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Lookup missing = %v, want it to match ErrNotFound too", err)
	}

	if _, err := r.Lookup(ctx, "abc"); !errors.Is(err, model.ErrInvalidID) {
		t.Errorf("Lookup bad id = %v, want ErrInvalidID", err)
	}
}

func TestToggleMissing(t *testing.T) {
	r, _ := newRepo(t, &pageSource{})
	if _, err := r.Toggle(context.Background(), 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Toggle missing = %v, want ErrNotFound", err)
	}
}

// slowStore widens the gap between reading and writing a todo.
type slowStore struct {
	*memstore.Store
}

func (s slowStore) Get(ctx context.Context, id int64) (model.Todo, bool, error) {
	time.Sleep(20 * time.Millisecond)
	return s.Store.Get(ctx, id)
}

func TestConcurrentTogglesAllApply(t *testing.T) {
	ctx := context.Background()
	st := slowStore{memstore.New(model.Todo{ID: 5, Title: "water plants", UserID: 1})}
	r := New(st, seed.NewLoader(st, &pageSource{}))

	for _, n := range []int{2, 3} {
		t.Run(fmt.Sprintf("%d toggles", n), func(t *testing.T) {
			before, _, _ := st.Store.Get(ctx, 5)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := r.Toggle(ctx, 5); err != nil {
						t.Errorf("Toggle: %v", err)
					}
				}()
			}
			wg.Wait()

			after, _, _ := st.Store.Get(ctx, 5)
			if want := before.Completed != (n%2 == 1); after.Completed != want {
				t.Errorf("after %d toggles from %v: completed = %v, want %v", n, before.Completed, after.Completed, want)
			}
		})
	}
}
