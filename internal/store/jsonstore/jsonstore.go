package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/idilsaglam/todolocal/internal/model"
)

// JSON snapshot of the whole todo collection. Single file, human-readable.
// It mirrors the last good list read and is never the source of truth.

const DefaultFileName = "todos.json"

// Snapshot reads and writes one snapshot file.
type Snapshot struct {
	Path string
}

func New(path string) *Snapshot {
	if path == "" {
		path = DefaultFileName
	}
	return &Snapshot{Path: path}
}

// Load returns ok=false when no snapshot has been written yet.
func (s *Snapshot) Load() ([]model.Todo, bool, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, false, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, true, nil
}

// Save replaces the snapshot. The write goes through a temp file so a
// crash never leaves half a snapshot behind.
func (s *Snapshot) Save(todos []model.Todo) error {
	if todos == nil {
		todos = []model.Todo{}
	}
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".todos-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
