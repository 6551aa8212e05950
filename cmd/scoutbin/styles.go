package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0FD976"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Width(11)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D9FF"))
)

func printSuccess(msg string) {
	fmt.Println(successStyle.Render("✓ " + msg))
}

func printError(msg string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+msg))
}

func renderStatus(rows [][2]string, available bool) string {
	header := headerStyle.Render("scout binary status")
	if !available {
		header += " " + errorStyle.Render("(unavailable)")
	}
	out := header + "\n"
	for _, row := range rows {
		out += fmt.Sprintf("  %s %s\n", labelStyle.Render(row[0]), valueStyle.Render(row[1]))
	}
	return out
}
