package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	userMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	aiMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	activeInputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	connectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	statusStyles = map[string]lipgloss.Style{
		"listening": lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true),
		"thinking":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		"speaking":  lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true),
		"idle":      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

func statusBadge(status string, active bool) string {
	if !active {
		return statusStyles["idle"].Render("no call")
	}
	if status == "" {
		status = "idle"
	}
	style, ok := statusStyles[status]
	if !ok {
		style = statusStyles["idle"]
	}
	return style.Render(status)
}

func centerText(text string, width int) string {
	if width <= 0 {
		return text
	}
	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}
	pad := (width - textWidth) / 2
	return strings.Repeat(" ", pad) + text
}

func separator(width int) string {
	w := width - 4
	if w < 1 {
		w = 1
	}
	return separatorStyle.Render("  " + strings.Repeat("─", w))
}
