package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/model"
	"github.com/idilsaglam/todolocal/internal/view"
)

// Service is what the TUI needs from the data layer.
type Service interface {
	List(ctx context.Context) ([]model.Todo, error)
	Refresh(ctx context.Context) ([]model.Todo, error)
	Get(ctx context.Context, idText string) (model.Todo, error)
	Create(ctx context.Context, d model.Draft) (model.Todo, error)
	Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error)
	Toggle(ctx context.Context, id int64) (model.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Options tune the interactive list.
type Options struct {
	PerPage int
	Logger  *log.Logger
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeAdd
	modeEdit
	modeConfirmDelete
)

// messages produced by commands
type (
	listLoadedMsg struct {
		todos []model.Todo
		err   error
	}
	detailLoadedMsg struct {
		id   string
		todo model.Todo
		err  error
	}
	mutatedMsg struct {
		op   string
		todo model.Todo
		err  error
	}
)

// detailState is the per-item screen, addressed by the stringified id.
type detailState struct {
	id      string
	loading bool
	todo    model.Todo
	err     error
}

// listModel is the list screen plus the detail screen it navigates to.
type listModel struct {
	ctx     context.Context
	svc     Service
	logger  *log.Logger
	perPage int
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	todos   []model.Todo
	loading bool
	loadErr error

	search textinput.Model
	status view.StatusFilter
	page   int
	cursor int // index within the visible page

	mode      mode
	ti        textinput.Model // shared text input for add & edit
	draftDone bool
	editID    int64
	formErr   string
	flash     string

	detail *detailState

	width, height int
}

func newListModel(ctx context.Context, svc Service, opt Options) listModel {
	if opt.PerPage <= 0 {
		opt.PerPage = view.DefaultPerPage
	}
	m := listModel{
		ctx:     ctx,
		svc:     svc,
		logger:  logging.OrDiscard(opt.Logger).WithPrefix("tui"),
		perPage: opt.PerPage,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		page:    1,
		loading: true,
		width:   80,
		height:  24,
	}
	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "Search todos..."
	m.search.CharLimit = 200

	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "New item title..."
	m.ti.CharLimit = 200
	return m
}

func (m listModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadList(false))
}

// -------------- commands ----------------

func (m listModel) loadList(refresh bool) tea.Cmd {
	return func() tea.Msg {
		var (
			todos []model.Todo
			err   error
		)
		if refresh {
			todos, err = m.svc.Refresh(m.ctx)
		} else {
			todos, err = m.svc.List(m.ctx)
		}
		return listLoadedMsg{todos: todos, err: err}
	}
}

func (m listModel) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.svc.Get(m.ctx, id)
		return detailLoadedMsg{id: id, todo: t, err: err}
	}
}

func (m listModel) mutate(op string, fn func(context.Context) (model.Todo, error)) tea.Cmd {
	return func() tea.Msg {
		t, err := fn(m.ctx)
		return mutatedMsg{op: op, todo: t, err: err}
	}
}

// -------------- derived state ----------------

func (m listModel) visible() view.Page {
	filtered := view.Filter(m.todos, m.search.Value(), m.status)
	return view.Paginate(filtered, m.page, m.perPage)
}

func (m listModel) selected() (model.Todo, bool) {
	p := m.visible()
	if m.cursor < 0 || m.cursor >= len(p.Items) {
		return model.Todo{}, false
	}
	return p.Items[m.cursor], true
}

// clamp keeps page and cursor inside the current filtered result.
func (m *listModel) clamp() {
	p := m.visible()
	m.page = p.Number
	if m.cursor >= len(p.Items) {
		m.cursor = len(p.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// -------------- update ----------------

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ti.Width = max(msg.Width-12, 10)
		m.search.Width = max(msg.Width-12, 10)
		return m, nil

	case spinner.TickMsg:
		if !m.loading && (m.detail == nil || !m.detail.loading) {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listLoadedMsg:
		m.loading = false
		m.loadErr = msg.err
		if msg.err != nil {
			m.logger.Error("list load failed", "err", msg.err)
			return m, nil
		}
		m.todos = msg.todos
		m.clamp()
		return m, nil

	case detailLoadedMsg:
		// The user may have left the detail screen already; drop the result.
		if m.detail == nil || m.detail.id != msg.id {
			return m, nil
		}
		m.detail.loading = false
		m.detail.todo = msg.todo
		m.detail.err = msg.err
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			m.flash = errorStyle.Render(msg.op + " failed: " + msg.err.Error())
			m.logger.Error("mutation failed", "op", msg.op, "err", msg.err)
			return m, nil
		}
		m.flash = successStyle.Render("✔ " + msg.op)
		if msg.op == "added" {
			m.page, m.cursor = 1, 0
		}
		return m, m.loadList(false)

	case tea.KeyMsg:
		if m.detail != nil {
			return m.updateDetail(msg)
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m listModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	if key.Matches(msg, k.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, k.Refresh) {
		m.loading, m.loadErr = true, nil
		return m, tea.Batch(m.spinner.Tick, m.loadList(true))
	}
	if m.loading || m.loadErr != nil {
		return m, nil
	}

	m.flash = ""
	switch {
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.visible().Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.PrevPage):
		if m.visible().HasPrev() {
			m.page--
			m.cursor = 0
		}
	case key.Matches(msg, k.NextPage):
		if m.visible().HasNext() {
			m.page++
			m.cursor = 0
		}
	case key.Matches(msg, k.Search):
		m.mode = modeSearch
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, k.Filter):
		m.status = m.status.Next()
		m.page, m.cursor = 1, 0
	case key.Matches(msg, k.Add):
		m.mode = modeAdd
		m.draftDone = false
		m.formErr = ""
		m.ti.SetValue("")
		m.ti.Placeholder = "New item title..."
		cmd := m.ti.Focus()
		return m, cmd
	case key.Matches(msg, k.Edit):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = t.ID
		m.draftDone = t.Completed
		m.formErr = ""
		m.ti.SetValue(t.Title)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit item title..."
		cmd := m.ti.Focus()
		return m, cmd
	case key.Matches(msg, k.Toggle):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.mutate("updated", func(ctx context.Context) (model.Todo, error) {
			return m.svc.Toggle(ctx, t.ID)
		})
	case key.Matches(msg, k.Delete):
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}
	case key.Matches(msg, k.Open):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		id := strconv.FormatInt(t.ID, 10)
		m.detail = &detailState{id: id, loading: true}
		return m, tea.Batch(m.spinner.Tick, m.loadDetail(id))
	}
	return m, nil
}

func (m listModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.search.SetValue("")
		m.search.Blur()
		m.page, m.cursor = 1, 0
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.page, m.cursor = 1, 0
	}
	return m, cmd
}

func (m listModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := strings.TrimSpace(m.ti.Value())
		if title == "" {
			m.formErr = model.ErrEmptyTitle.Error()
			return m, nil
		}
		done := m.draftDone
		var cmd tea.Cmd
		if m.mode == modeAdd {
			cmd = m.mutate("added", func(ctx context.Context) (model.Todo, error) {
				return m.svc.Create(ctx, model.Draft{Title: title, Completed: done})
			})
		} else {
			id := m.editID
			cmd = m.mutate("updated", func(ctx context.Context) (model.Todo, error) {
				return m.svc.Update(ctx, id, model.Patch{Title: &title, Completed: &done})
			})
		}
		m.closeForm()
		return m, cmd
	case tea.KeyEsc:
		m.closeForm()
		return m, nil
	case tea.KeyTab:
		m.draftDone = !m.draftDone
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *listModel) closeForm() {
	m.mode = modeBrowse
	m.formErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m listModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeBrowse
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.mutate("deleted", func(ctx context.Context) (model.Todo, error) {
			return t, m.svc.Delete(ctx, t.ID)
		})
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
	}
	return m, nil
}

func (m listModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.detail = nil
	}
	return m, nil
}

// -------------- view ----------------

func (m listModel) View() string {
	if m.detail != nil {
		return panelString(m.detailView())
	}
	if m.loading {
		return panelString(m.spinner.View() + " Loading todos...")
	}
	if m.loadErr != nil {
		return panelString(errorStyle.Render("Error loading todos. Please try again.") + "\n" +
			mutedStyle.Render(m.loadErr.Error()) + "\n\n" +
			m.help.ShortHelpView(m.keys.errorHelp()))
	}

	var b strings.Builder
	done, pending := view.Stats(m.todos)
	fmt.Fprintf(&b, "%s   %s %d  %s %d  %s %d\n",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(m.todos),
	)

	searchLine := m.search.View()
	if m.mode != modeSearch && m.search.Value() == "" {
		searchLine = mutedStyle.Render("/ search")
	}
	fmt.Fprintf(&b, "%s   %s %s\n\n", searchLine, mutedStyle.Render("filter:"), accentStyle.Render(m.status.String()))

	if m.mode == modeAdd {
		b.WriteString(m.formView("Add new item") + "\n")
	}

	p := m.visible()
	if len(p.Items) == 0 {
		b.WriteString(mutedStyle.Render("no items") + "\n")
	}
	for i, t := range p.Items {
		b.WriteString(m.itemLine(t, i == m.cursor) + "\n")
		if i != m.cursor {
			continue
		}
		switch m.mode {
		case modeEdit:
			b.WriteString(m.formView("Edit item") + "\n")
		case modeConfirmDelete:
			b.WriteString(confirmString(errorStyle.Render("Are you sure you want to delete this todo?")+"\n"+
				m.help.ShortHelpView(m.keys.confirmHelp())) + "\n")
		}
	}

	b.WriteString("\n" + m.pagerView(p) + "\n")
	if m.flash != "" {
		b.WriteString(m.flash + "\n")
	}
	b.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.browseHelp())))
	return panelString(b.String())
}

func (m listModel) itemLine(t model.Todo, selected bool) string {
	th := Current()
	box := mutedStyle.Render(th.Box(false))
	title := Truncate(t.Title, max(m.width-30, 20))
	if t.Completed {
		box = successStyle.Render(th.Box(true))
		title = doneStyle.Render(title)
	}
	prefix := "  "
	if selected {
		prefix = selectedStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s  %s", prefix, box, title, statusBadge(t.Completed))
}

func (m listModel) formView(title string) string {
	if m.formErr != "" {
		title += ": " + errorStyle.Render(m.formErr)
	}
	check := Current().Box(m.draftDone) + " Completed"
	return formString(title, m.ti.View()+"\n"+mutedStyle.Render(check)+"\n"+
		helpStyle.Render(m.help.ShortHelpView(m.keys.formHelp())))
}

func (m listModel) pagerView(p view.Page) string {
	var parts []string
	prev := "‹ Prev"
	if !p.HasPrev() {
		prev = mutedStyle.Render(prev)
	}
	parts = append(parts, prev)
	for _, n := range view.PageWindow(p.Number, p.TotalPages) {
		switch {
		case n == view.Ellipsis:
			parts = append(parts, mutedStyle.Render("..."))
		case n == p.Number:
			parts = append(parts, curPageStyle.Render(strconv.Itoa(n)))
		default:
			parts = append(parts, pageStyle.Render(strconv.Itoa(n)))
		}
	}
	next := "Next ›"
	if !p.HasNext() {
		next = mutedStyle.Render(next)
	}
	parts = append(parts, next)
	return strings.Join(parts, " ")
}

func (m listModel) detailView() string {
	d := m.detail
	switch {
	case d.loading:
		return m.spinner.View() + " Loading..."
	case d.err != nil:
		msg := "Error loading todo."
		if errors.Is(d.err, model.ErrNotFound) {
			msg = "Todo " + d.id + " not found."
		}
		return errorStyle.Render(msg) + "\n" + mutedStyle.Render(d.err.Error()) + "\n\n" +
			helpStyle.Render(m.help.ShortHelpView(m.keys.detailHelp()))
	}
	t := d.todo
	return titleStyle.Render("Todo Details") + "\n\n" +
		fmt.Sprintf("ID:     %d\n", t.ID) +
		fmt.Sprintf("Title:  %s\n", t.Title) +
		fmt.Sprintf("Status: %s\n\n", statusBadge(t.Completed)) +
		helpStyle.Render(m.help.ShortHelpView(m.keys.detailHelp()))
}

// Run starts the interactive list inside an error boundary.
func Run(ctx context.Context, svc Service, opt Options) error {
	build := func() tea.Model { return newListModel(ctx, svc, opt) }
	p := tea.NewProgram(NewBoundary(build, opt.Logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
