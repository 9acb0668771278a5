package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is built from CurrentTheme at render time.
type styles struct {
	header, label, value, active, graph, help lipgloss.Style
	panel, stats                              lipgloss.Style
	running, paused, warn, bad                lipgloss.Style
	sparkHigh, sparkMid, sparkLow             lipgloss.Style
}

func currentStyles() styles {
	t := CurrentTheme
	return styles{
		header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		panel:  lipgloss.NewStyle().Padding(1, 2),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(42),
		running:   lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:    lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		warn:      lipgloss.NewStyle().Foreground(t.Warning),
		bad:       lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		sparkHigh: lipgloss.NewStyle().Foreground(t.Error),
		sparkMid:  lipgloss.NewStyle().Foreground(t.Warning),
		sparkLow:  lipgloss.NewStyle().Foreground(t.Success),
	}
}

// ProgressBar renders a filled bar for percent in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// SparklineChart renders |values| against a fixed full scale, so a torque
// trace reads the same regardless of what the window holds. The most recent
// width values are shown.
func SparklineChart(values []float64, width int, fullScale float64) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if fullScale <= 0 {
		fullScale = 1
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	st := currentStyles()

	var result strings.Builder
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		norm := v / fullScale
		if norm > 1 {
			norm = 1
		}
		c := string(chars[int(norm*float64(len(chars)-1))])
		switch {
		case norm > 0.9:
			result.WriteString(st.sparkHigh.Render(c))
		case norm > 0.5:
			result.WriteString(st.sparkMid.Render(c))
		default:
			result.WriteString(st.sparkLow.Render(c))
		}
	}
	return result.String()
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return left + " ◆ " + right
}
