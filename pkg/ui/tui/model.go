package tui

import (
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgharvest/pkg/progress"
	"imgharvest/pkg/ui"
)

// Phase is the stage of the run as seen from its status lines
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseScrolling
	PhaseSaving
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseScrolling:
		return "scrolling"
	case PhaseSaving:
		return "saving"
	case PhaseDone:
		return "done"
	default:
		return "starting"
	}
}

// LogMessage is one rendered status line
type LogMessage struct {
	Time    time.Time
	Tag     progress.Tag
	Message string
	Color   lipgloss.Color
}

// Model polls the progress queue and renders the run
type Model struct {
	spinner spinner.Model
	bar     bprogress.Model

	queue   *progress.Queue
	tracker *ui.Tracker
	target  string
	// actions is the number of files each asset produces in the chosen mode
	actions int
	onStop  func()

	phase          Phase
	stopping       bool
	logMessages    []LogMessage
	maxLogMessages int

	width    int
	height   int
	showHelp bool
}

// NewModel creates a model for a run against target. onStop is called
// once when the user asks the run to stop.
func NewModel(q *progress.Queue, target string, actionsPerAsset int, onStop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	if actionsPerAsset < 1 {
		actionsPerAsset = 1
	}
	if onStop == nil {
		onStop = func() {}
	}

	return Model{
		spinner:        s,
		bar:            bprogress.New(bprogress.WithDefaultGradient()),
		queue:          q,
		tracker:        ui.NewTracker(),
		target:         target,
		actions:        actionsPerAsset,
		onStop:         onStop,
		maxLogMessages: 200,
	}
}

// Init starts the spinner and the queue poll
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ingest applies a batch of drained lines
func (m *Model) ingest(lines []progress.Line) {
	for _, l := range lines {
		m.tracker.Observe(l)
		m.advancePhase(l.Tag)
		m.AddLogMessage(l)
	}
}

func (m *Model) advancePhase(tag progress.Tag) {
	switch tag {
	case progress.TagScroll:
		if m.phase < PhaseScrolling {
			m.phase = PhaseScrolling
		}
	case progress.TagSave, progress.TagCapture, progress.TagNormalize:
		if m.phase < PhaseSaving {
			m.phase = PhaseSaving
		}
	case progress.TagDone:
		m.phase = PhaseDone
	}
}

// AddLogMessage appends a line to the log tail
func (m *Model) AddLogMessage(l progress.Line) {
	if l.Time.IsZero() {
		l.Time = time.Now()
	}
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    l.Time,
		Tag:     l.Tag,
		Message: l.Message,
		Color:   tagColor(l.Tag),
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// requestStop asks the worker to stop at its next boundary
func (m *Model) requestStop() {
	if m.stopping {
		return
	}
	m.stopping = true
	m.onStop()
	m.AddLogMessage(progress.Line{Tag: progress.TagInfo, Message: "stop requested, finishing current step"})
}

// Tracker returns the counters collected so far
func (m Model) Tracker() ui.Tracker {
	return *m.tracker
}

// Phase returns the current stage
func (m Model) Phase() Phase {
	return m.phase
}

// Stopping reports whether a stop was requested
func (m Model) Stopping() bool {
	return m.stopping
}

// SaveRatio returns written files over expected files, in [0, 1]. Failed
// actions never count, so a run with failures ends below 1.
func (m Model) SaveRatio() float64 {
	expected := m.tracker.Assets * m.actions
	if expected == 0 {
		return 0
	}
	r := float64(m.tracker.Persisted()) / float64(expected)
	if r > 1 {
		r = 1
	}
	return r
}
