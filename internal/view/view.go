// Package view holds the list screen's search, filter and paging rules,
// shared by the CLI listing and the TUI.
package view

import (
	"fmt"
	"strings"

	"github.com/idilsaglam/todolocal/internal/model"
)

// DefaultPerPage matches the list screen's page size.
const DefaultPerPage = 10

type StatusFilter int

const (
	All StatusFilter = iota
	Completed
	Incomplete
)

func (s StatusFilter) String() string {
	switch s {
	case Completed:
		return "completed"
	case Incomplete:
		return "incomplete"
	default:
		return "all"
	}
}

// Next cycles all -> completed -> incomplete -> all.
func (s StatusFilter) Next() StatusFilter {
	return (s + 1) % 3
}

func ParseStatus(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "completed", "done":
		return Completed, nil
	case "incomplete", "pending", "open":
		return Incomplete, nil
	}
	return All, fmt.Errorf("unknown status %q (want all, completed or incomplete)", s)
}

func (s StatusFilter) match(t model.Todo) bool {
	switch s {
	case Completed:
		return t.Completed
	case Incomplete:
		return !t.Completed
	default:
		return true
	}
}

// Filter keeps todos whose title contains search (case-insensitive) and
// whose status matches. Order is preserved.
func Filter(todos []model.Todo, search string, status StatusFilter) []model.Todo {
	needle := strings.ToLower(search)
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if !status.match(t) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Page is one page of a filtered list.
type Page struct {
	Items      []model.Todo
	Number     int // 1-based, after clamping
	TotalPages int
	Total      int // items across all pages
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Paginate cuts page number n out of todos. n is clamped into range and
// an empty list still has one (empty) page.
func Paginate(todos []model.Todo, n, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(todos)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	start := (n - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return Page{
		Items:      todos[start:end],
		Number:     n,
		TotalPages: pages,
		Total:      total,
	}
}

// Ellipsis marks a gap in a PageWindow.
const Ellipsis = 0

// PageWindow lists the page links to draw: every page when there are at
// most five, otherwise the first, the last and current±2, with Ellipsis
// inserted wherever pages were skipped.
func PageWindow(current, total int) []int {
	var out []int
	prev := 0
	for p := 1; p <= total; p++ {
		d := p - current
		if d < 0 {
			d = -d
		}
		if total > 5 && d > 2 && p != 1 && p != total {
			continue
		}
		if prev != 0 && p > prev+1 {
			out = append(out, Ellipsis)
		}
		out = append(out, p)
		prev = p
	}
	return out
}

// Stats counts done and pending todos.
func Stats(todos []model.Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
