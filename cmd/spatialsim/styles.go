package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	subtle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))

	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "completed":
		return okStyle
	case "partial", "timeout":
		return warnStyle
	default:
		return errorStyle
	}
}

// progressBar renders fraction in [0, 1] as a bar of the given width.
func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction >= 1:
		return okStyle.Render(bar)
	case fraction > 0.5:
		return valueStyle.Render(bar)
	default:
		return warnStyle.Render(bar)
	}
}

func keyValue(key string, value any) string {
	return keyStyle.Render(key+": ") + valueStyle.Render(fmt.Sprint(value))
}
