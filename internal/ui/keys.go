package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, PrevPage, NextPage key.Binding
	Search, Filter, Refresh      key.Binding
	Add, Edit, Toggle, Delete    key.Binding
	Open, Back, Quit             key.Binding
	Confirm, Cancel, Submit, Tab key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→", "next page")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:     key.NewBinding(key.WithKeys("esc", "backspace", "b"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Confirm:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "delete")),
		Cancel:   key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "completed")),
	}
}

func (k keyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.Add, k.Edit, k.Toggle, k.Delete, k.Open, k.NextPage, k.Quit}
}

func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Tab, k.Back}
}

func (k keyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k keyMap) detailHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

func (k keyMap) errorHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}
