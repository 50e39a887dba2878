package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// ------- TUI styling (Lip Gloss) -------
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	pageStyle     = lipgloss.NewStyle().Padding(0, 1)
	curPageStyle  = lipgloss.NewStyle().Padding(0, 1).Reverse(true).Bold(true)

	completedBadge  = successStyle.Render("✔ Completed")
	incompleteBadge = errorStyle.UnsetBold().Render("✖ Incomplete")
)

func panelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(inner)
}

func formString(title, body string) string {
	bar := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return bar.Render(title + "\n" + body)
}

func confirmString(body string) string {
	bar := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("9")).
		Padding(0, 1)
	return bar.Render(body)
}

func statusBadge(done bool) string {
	if done {
		return completedBadge
	}
	return incompleteBadge
}
