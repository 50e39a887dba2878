package ui

import (
	"fmt"
	"runtime/debug"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolocal/internal/logging"
)

// Boundary wraps a screen and turns panics into a fallback screen with a
// reload action. Reload throws the broken screen away and builds a new one.
type Boundary struct {
	build  func() tea.Model
	inner  tea.Model
	fault  *fault
	size   *tea.WindowSizeMsg
	keys   keyMap
	help   help.Model
	logger *log.Logger
}

// fault is shared between copies so a panic caught in View is seen by the
// next Update.
type fault struct{ err error }

func NewBoundary(build func() tea.Model, logger *log.Logger) Boundary {
	return Boundary{
		build:  build,
		inner:  build(),
		fault:  &fault{},
		keys:   newKeyMap(),
		help:   help.New(),
		logger: logging.OrDiscard(logger).WithPrefix("tui"),
	}
}

func (b Boundary) Init() tea.Cmd { return b.inner.Init() }

func (b Boundary) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		b.size = &ws
	}

	if b.fault.err != nil {
		km, ok := msg.(tea.KeyMsg)
		if !ok {
			return b, nil
		}
		switch {
		case key.Matches(km, b.keys.Quit):
			return b, tea.Quit
		case key.Matches(km, b.keys.Refresh):
			return b.reload()
		}
		return b, nil
	}

	defer func() {
		if r := recover(); r != nil {
			b.fault.err = fmt.Errorf("%v", r)
			b.logger.Error("recovered from panic", "err", b.fault.err, "stack", string(debug.Stack()))
			model, cmd = b, nil
		}
	}()
	b.inner, cmd = b.inner.Update(msg)
	return b, cmd
}

func (b Boundary) reload() (tea.Model, tea.Cmd) {
	b.fault = &fault{}
	b.inner = b.build()
	cmds := []tea.Cmd{b.inner.Init()}
	if b.size != nil {
		size := *b.size
		cmds = append(cmds, func() tea.Msg { return size })
	}
	b.logger.Info("reloaded after failure")
	return b, tea.Batch(cmds...)
}

func (b Boundary) View() (out string) {
	if b.fault.err != nil {
		return b.fallback(b.fault.err)
	}
	defer func() {
		if r := recover(); r != nil {
			b.fault.err = fmt.Errorf("%v", r)
			b.logger.Error("recovered from panic in view", "err", b.fault.err)
			out = b.fallback(b.fault.err)
		}
	}()
	return b.inner.View()
}

func (b Boundary) fallback(err error) string {
	return panelString(errorStyle.Render("Something went wrong") + "\n" +
		err.Error() + "\n\n" +
		helpStyle.Render(b.help.ShortHelpView(b.keys.errorHelp())))
}
