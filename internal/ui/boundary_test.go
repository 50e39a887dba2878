package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type flakyModel struct {
	gen        int
	brokenView bool
	lastWidth  int
}

func (f flakyModel) Init() tea.Cmd { return nil }

func (f flakyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.lastWidth = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "x":
			panic("boom")
		case "v":
			f.brokenView = true
		}
	}
	return f, nil
}

func (f flakyModel) View() string {
	if f.brokenView {
		panic("view exploded")
	}
	return "healthy"
}

func newFlaky() (func() tea.Model, *int) {
	builds := 0
	return func() tea.Model {
		builds++
		return flakyModel{gen: builds}
	}, &builds
}

func TestBoundaryRecoversUpdatePanic(t *testing.T) {
	build, builds := newFlaky()
	var m tea.Model = NewBoundary(build, nil)

	m, _ = m.Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	m = press(t, m, "x")

	out := m.View()
	if !strings.Contains(out, "Something went wrong") || !strings.Contains(out, "boom") {
		t.Fatalf("fallback view:\n%s", out)
	}

	m = press(t, m, "r")
	if *builds != 2 {
		t.Fatalf("builds = %d, want 2", *builds)
	}
	if out := m.View(); out != "healthy" {
		t.Fatalf("view after reload = %q", out)
	}
	inner := m.(Boundary).inner.(flakyModel)
	if inner.gen != 2 || inner.lastWidth != 90 {
		t.Fatalf("reloaded inner = %+v", inner)
	}
}

func TestBoundaryRecoversViewPanic(t *testing.T) {
	build, _ := newFlaky()
	var m tea.Model = NewBoundary(build, nil)

	m = press(t, m, "v")
	if out := m.View(); !strings.Contains(out, "view exploded") {
		t.Fatalf("fallback view:\n%s", out)
	}

	m = press(t, m, "r")
	if out := m.View(); out != "healthy" {
		t.Fatalf("view after reload = %q", out)
	}
}

func TestBoundaryQuitFromFallback(t *testing.T) {
	build, _ := newFlaky()
	var m tea.Model = NewBoundary(build, nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("no command from q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}
