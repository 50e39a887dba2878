package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/ui"
	"github.com/idilsaglam/todolocal/internal/view"
)

// Options tune output behavior from root flags.
type Options struct {
	Group   bool // list grouped by pending/done
	PerPage int
	Logger  *log.Logger // handed to the TUI, which cannot log to the terminal
	Stdout  io.Writer
	Stderr  io.Writer
}

// Runner dispatches subcommands against the todo service.
type Runner struct {
	svc ui.Service
	opt Options
	out io.Writer
	err io.Writer
}

func New(svc ui.Service, opt Options) *Runner {
	if opt.PerPage <= 0 {
		opt.PerPage = view.DefaultPerPage
	}
	r := &Runner{svc: svc, opt: opt, out: opt.Stdout, err: opt.Stderr}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.err == nil {
		r.err = os.Stderr
	}
	return r
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		PrintHelp(r.err)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.out)
		return 0

	case "ls":
		return r.doList(ctx, a)

	case "add":
		if len(a) == 0 {
			ui.Fail(r.err, "usage: todo add <title...>")
			return 2
		}
		return r.doAdd(ctx, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			ui.Fail(r.err, "usage: todo done <id>")
			return 2
		}
		return r.withID("done", a[0], func(id int64) int { return r.doToggle(ctx, id) })

	case "edit":
		if len(a) < 2 {
			ui.Fail(r.err, "usage: todo edit <id> <title...>")
			return 2
		}
		title := strings.Join(a[1:], " ")
		return r.withID("edit", a[0], func(id int64) int { return r.doEdit(ctx, id, title) })

	case "rm":
		if len(a) != 1 {
			ui.Fail(r.err, "usage: todo rm <id>")
			return 2
		}
		return r.withID("rm", a[0], func(id int64) int { return r.doRemove(ctx, id) })

	case "show":
		if len(a) != 1 {
			ui.Fail(r.err, "usage: todo show <id>")
			return 2
		}
		return r.doShow(ctx, a[0])

	case "tui":
		err := ui.Run(ctx, r.svc, ui.Options{PerPage: r.opt.PerPage, Logger: r.opt.Logger})
		if err != nil {
			ui.Fail(r.err, "tui: "+err.Error())
			return 1
		}
		return 0
	}

	ui.Fail(r.err, "unknown subcommand: "+cmd)
	fmt.Fprintln(r.err)
	PrintHelp(r.err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a local-first todo list

Usage:
  todo [-group] [-config path] [-theme name] [-metrics-addr addr] <subcommand> [args]

Subcommands:
  ls [-search s] [-status all|completed|incomplete] [-page n]
                       List items, newest first
  add <title...>       Add a new item (title can be multiple words)
  done <id>            Toggle done for the item with this id
  edit <id> <title...> Rename an item
  rm <id>              Remove an item
  show <id>            Show one item
  tui                  Open the interactive list
  help                 Show this help

Examples:
  todo add "Buy milk"
  todo ls -status incomplete -page 2
  todo done 1712345678901
  todo rm 3
`)
}

// -------------- subcommand impls ----------------

func (r *Runner) doList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(r.err)
	search := fs.String("search", "", "only items whose title contains this text")
	status := fs.String("status", "all", "all, completed or incomplete")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	st, err := view.ParseStatus(*status)
	if err != nil {
		ui.Fail(r.err, "ls: "+err.Error())
		return 2
	}

	items, err := r.svc.List(ctx)
	if err != nil {
		return r.fail("load", err)
	}
	p := view.Paginate(view.Filter(items, *search, st), *page, r.opt.PerPage)

	// Header + progress
	t := ui.Current()
	d, pend := view.Stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), d,
		ui.C(t.Pending, t.SymUnchecked), pend,
		ui.C(t.Accent, "Total"), len(items),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(d, d+pend, 28)))
	if *search != "" || st != view.All {
		lines = append(lines, ui.Dim(fmt.Sprintf("filter: %s  search: %q  matches: %d", st, *search, p.Total)))
	}
	lines = append(lines, "")

	if r.opt.Group {
		lines = append(lines, groupLines(p.Items)...)
	} else {
		lines = append(lines, flatLines(p.Items)...)
	}
	lines = append(lines, "")
	if p.TotalPages > 1 {
		lines = append(lines, pagerLine(p))
	}
	lines = append(lines, ui.C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(r.out, lines)
	return 0
}

func (r *Runner) doAdd(ctx context.Context, title string) int {
	t, err := r.svc.Create(ctx, model.Draft{Title: title})
	if err != nil {
		return r.fail("add", err)
	}
	ui.OK(r.out, fmt.Sprintf("added #%d", t.ID))
	return 0
}

func (r *Runner) doToggle(ctx context.Context, id int64) int {
	t, err := r.svc.Toggle(ctx, id)
	if err != nil {
		return r.fail("done", err)
	}
	if t.Completed {
		ui.OK(r.out, fmt.Sprintf("#%d done", t.ID))
	} else {
		ui.OK(r.out, fmt.Sprintf("#%d reopened", t.ID))
	}
	return 0
}

func (r *Runner) doEdit(ctx context.Context, id int64, title string) int {
	if _, err := r.svc.Update(ctx, id, model.SetTitle(title)); err != nil {
		return r.fail("edit", err)
	}
	ui.OK(r.out, fmt.Sprintf("updated #%d", id))
	return 0
}

func (r *Runner) doRemove(ctx context.Context, id int64) int {
	if err := r.svc.Delete(ctx, id); err != nil {
		return r.fail("rm", err)
	}
	ui.OK(r.out, fmt.Sprintf("removed #%d", id))
	return 0
}

func (r *Runner) doShow(ctx context.Context, idText string) int {
	it, err := r.svc.Get(ctx, idText)
	if err != nil {
		return r.fail("show", err)
	}
	t := ui.Current()
	status := ui.C(t.Pending, "incomplete")
	if it.Completed {
		status = ui.C(t.Success, "completed")
	}
	ui.Panel(r.out, []string{
		ui.C(t.Title, "Todo Details"),
		"",
		fmt.Sprintf("ID:     %d", it.ID),
		fmt.Sprintf("Title:  %s", it.Title),
		fmt.Sprintf("Status: %s %s", t.Box(it.Completed), status),
		fmt.Sprintf("User:   %d", it.UserID),
	})
	return 0
}

func (r *Runner) withID(op, text string, fn func(id int64) int) int {
	id, err := model.ParseID(text)
	if err != nil {
		ui.Fail(r.err, op+": "+err.Error())
		return 2
	}
	return fn(id)
}

// fail reports err and maps it to an exit code.
func (r *Runner) fail(op string, err error) int {
	switch {
	case errors.Is(err, model.ErrEmptyTitle), errors.Is(err, model.ErrInvalidID):
		ui.Fail(r.err, op+": "+err.Error())
		return 2
	case errors.Is(err, model.ErrNotFound):
		ui.Fail(r.err, op+": not found")
		fmt.Fprintln(r.err, ui.Dim("Hint: run `todo ls` to see valid ids"))
		return 1
	}
	ui.Fail(r.err, op+": "+err.Error())
	return 1
}

// -------------- rendering helpers --------------

func flatLines(items []model.Todo) []string {
	if len(items) == 0 {
		return []string{ui.C(ui.Current().Muted, "no items")}
	}
	width := 0
	for _, it := range items {
		width = max(width, len(strconv.FormatInt(it.ID, 10)))
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		idx := fmt.Sprintf("%*d", width, it.ID)
		color := ui.Current().Muted
		if it.Completed {
			color = ui.Current().Success
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			ui.Dim(idx), ui.C(color, ui.Current().Box(it.Completed)), ui.Truncate(it.Title, 80)))
	}
	return out
}

func groupLines(items []model.Todo) []string {
	var pend, done []model.Todo
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, ui.C(ui.Current().Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}

func pagerLine(p view.Page) string {
	parts := []string{ui.Dim(fmt.Sprintf("page %d/%d:", p.Number, p.TotalPages))}
	for _, n := range view.PageWindow(p.Number, p.TotalPages) {
		switch n {
		case view.Ellipsis:
			parts = append(parts, ui.Dim("..."))
		case p.Number:
			parts = append(parts, ui.C(ui.Current().Accent, "["+strconv.Itoa(n)+"]"))
		default:
			parts = append(parts, strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}
