package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/progress"
)

// PollInterval is how often the queue is drained
const PollInterval = progress.DefaultPollInterval

// TickMsg is sent on every queue poll
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width/2 - 10
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.queue == nil {
			return m, tickCmd()
		}
		m.ingest(m.queue.Drain())
		if m.queue.Closed() {
			// Pick up anything put between Drain and Closed
			m.ingest(m.queue.Drain())
			m.phase = PhaseDone
			return m, tea.Quit
		}
		return m, tickCmd()
	}

	return m, nil
}

// handleKeyPress handles keyboard input. The first q or ctrl+c asks the
// worker to stop; a second one leaves immediately.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.stopping {
			return m, tea.Quit
		}
		m.requestStop()
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
