package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultUserID is assigned when a todo is created without an owner.
// The field only exists to match the seed source's shape.
const DefaultUserID int64 = 1

var (
	ErrNotFound   = errors.New("todo not found")
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrInvalidID  = errors.New("invalid todo id")
)

// Todo is the domain model for a todo entry.
// Field names follow the remote demo API so records round-trip unchanged.
type Todo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	UserID    int64  `json:"userId,omitempty"`
}

// Draft is a todo that has not been given an id yet.
type Draft struct {
	Title     string
	Completed bool
	UserID    int64
}

// Validate trims the title and fills defaults.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if d.UserID == 0 {
		d.UserID = DefaultUserID
	}
	return nil
}

// Todo materializes the draft under the given id.
func (d Draft) Todo(id int64) Todo {
	return Todo{ID: id, Title: d.Title, Completed: d.Completed, UserID: d.UserID}
}

// Patch holds the fields an update changes; nil means "leave as is".
type Patch struct {
	Title     *string
	Completed *bool
	UserID    *int64
}

// SetTitle and SetCompleted build single-field patches.
func SetTitle(title string) Patch  { return Patch{Title: &title} }
func SetCompleted(done bool) Patch { return Patch{Completed: &done} }

// Validate rejects a title that is set but blank.
func (p *Patch) Validate() error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return ErrEmptyTitle
		}
		p.Title = &t
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil && p.UserID == nil
}

// Apply merges the patch onto t. The id never changes.
func (p Patch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	return t
}

// ParseID converts an id that arrived as text (route params, CLI args)
// into the numeric key.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}
