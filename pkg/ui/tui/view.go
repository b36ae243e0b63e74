package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"imgharvest/pkg/progress"
)

// View renders the entire TUI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(m.width).Render("IMGHARVEST · "+m.target))

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(half), m.renderSavePanel(half))
	right := m.renderLogsPanel(half)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q: stop · ?: help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" HARVEST ")
	t := m.tracker

	status := m.spinner.View() + " " + m.phase.String()
	switch {
	case m.phase == PhaseDone:
		status = successStyle.Render("✓ done")
	case m.stopping:
		status = warningStyle.Render("■ stopping…")
	}

	stats := []string{
		status,
		stat("Elapsed:", formatDuration(t.GetElapsedTime())),
		stat("Iterations:", fmt.Sprintf("%d", t.Iterations)),
		stat("Assets found:", fmt.Sprintf("%d", t.Assets)),
		stat("Warnings:", fmt.Sprintf("%d", t.Warnings)),
	}
	if t.Errors > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("Errors: %d", t.Errors)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m Model) renderSavePanel(width int) string {
	title := titleStyle.Render(" FILES ")
	t := m.tracker

	content := []string{
		m.bar.ViewAs(m.SaveRatio()),
		stat("Downloaded:", fmt.Sprintf("%d", t.Saved)),
		stat("Captured:", fmt.Sprintf("%d", t.Captured)),
		stat("Normalized 4:3:", fmt.Sprintf("%d", t.Normalized)),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

func (m Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	rows := m.height - 16
	if rows < 5 {
		rows = 5
	}
	start := len(m.logMessages) - rows
	if start < 0 {
		start = 0
	}

	maxMsg := width - 24
	if maxMsg < 10 {
		maxMsg = 10
	}

	var logs []string
	for _, l := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(l.Time.Format("15:04:05"))
		tag := lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("[%-6s]", l.Tag))
		msg := runewidth.Truncate(l.Message, maxMsg, "…")
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, tag, logMessageStyle.Render(msg)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the browser...")
	}

	return panelStyle.Width(width).Height(rows + 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m Model) renderHelp() string {
	help := `
  Keys:
    q / ctrl+c  - Stop after the current step (press again to quit)
    ctrl+l      - Clear the log
    ?           - Toggle this help

  Tags:
    ` + successStyle.Render("["+string(progress.TagSave)+"]") + `  file downloaded
    ` + successStyle.Render("["+string(progress.TagCapture)+"]") + `  element captured
    ` + warningStyle.Render("["+string(progress.TagWarn)+"]") + `  degraded, continuing
    ` + errorStyle.Render("["+string(progress.TagError)+"]") + `  action failed, skipped
`
	return panelStyle.Width(m.width).Render(help)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
