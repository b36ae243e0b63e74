// Package tui is the interactive front end of a harvesting run: a
// bubbletea program that polls the progress queue, shows counters and a
// log tail, and turns q / ctrl+c into a stop request.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/progress"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// New creates a TUI watching q. onStop is called on the first stop key.
func New(q *progress.Queue, target string, actionsPerAsset int, onStop func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(q, target, actionsPerAsset, onStop)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run blocks until the queue is closed and drained or the user quits
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// Model returns the model the program is driving
func (t *TUI) Model() *Model {
	return t.model
}
