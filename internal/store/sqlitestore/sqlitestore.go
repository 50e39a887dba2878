package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/store"
)

// SQLite-backed storage. One file, one table, keyed by todo id.
// The file is created on first use; there is no teardown beyond Close.

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id        INTEGER PRIMARY KEY,
	title     TEXT    NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT 0,
	user_id   INTEGER NOT NULL DEFAULT 0
);
`

const upsert = `
INSERT INTO todos (id, title, completed, user_id) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	completed = excluded.completed,
	user_id = excluded.user_id
`

// Store is a store.Store on top of a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, id int64) (model.Todo, bool, error) {
	t, err := scanOne(s.db.QueryRowContext(ctx,
		"SELECT id, title, completed, user_id FROM todos WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, false, nil
	}
	if err != nil {
		return model.Todo{}, false, fmt.Errorf("get %d: %w", id, err)
	}
	return t, true, nil
}

func (s *Store) Put(ctx context.Context, t model.Todo) error {
	if _, err := s.db.ExecContext(ctx, upsert, t.ID, t.Title, t.Completed, t.UserID); err != nil {
		return fmt.Errorf("put %d: %w", t.ID, err)
	}
	return nil
}

func (s *Store) BulkInsert(ctx context.Context, todos []model.Todo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range todos {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Title, t.Completed, t.UserID); err != nil {
			return fmt.Errorf("insert %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Todo{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanOne(tx.QueryRowContext(ctx,
		"SELECT id, title, completed, user_id FROM todos WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, fmt.Errorf("update %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("update %d: %w", id, err)
	}

	next := p.Apply(cur)
	if _, err := tx.ExecContext(ctx,
		"UPDATE todos SET title = ?, completed = ?, user_id = ? WHERE id = ?",
		next.Title, next.Completed, next.UserID, id); err != nil {
		return model.Todo{}, fmt.Errorf("update %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Todo{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM todos").Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, completed, user_id FROM todos")
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var out []model.Todo
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.UserID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error { return s.db.Close() }

func scanOne(row *sql.Row) (model.Todo, error) {
	var t model.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.UserID)
	return t, err
}
