package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/idilsaglam/todolocal/internal/model"
)

func TestLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "todos.json"))
	todos, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok || todos != nil {
		t.Errorf("Load on missing file = %v, %v", todos, ok)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "todos.json")
	s := New(path)

	in := []model.Todo{
		{ID: 2, Title: "second", UserID: 1},
		{ID: 1, Title: "first", Completed: true, UserID: 1},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if len(out) != len(in) {
		t.Fatalf("Load returned %d todos, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("todo %d = %+v, want %+v", i, out[i], in[i])
		}
	}

	// No temp files left next to the snapshot.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the snapshot", len(entries))
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := New(path).Load(); err == nil {
		t.Error("Load on corrupt file returned nil error")
	}
}
