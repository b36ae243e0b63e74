package ui

import (
	"fmt"
	"io"
	"sync"

	"imgharvest/pkg/progress"
)

// Printer writes status lines to a terminal, one per line, colored by tag
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	tracker *Tracker
	verbose bool
}

// NewPrinter creates a printer. SCROLL lines are only shown when verbose.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, tracker: NewTracker(), verbose: verbose}
}

// Print renders a batch of lines drained from the progress queue
func (p *Printer) Print(lines []progress.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, l := range lines {
		p.tracker.Observe(l)
		if IsQuietMode() && l.Tag != progress.TagError && l.Tag != progress.TagDone {
			continue
		}
		if l.Tag == progress.TagScroll && !p.verbose {
			fmt.Fprintf(p.out, "\r%s %s", Magenta("[SCROLL]"), Dim(l.Message))
			continue
		}
		fmt.Fprintf(p.out, "\r%s %s\n", TagColor(l.Tag)("["+string(l.Tag)+"]"), l.Message)
	}
}

// Tracker returns the counters seen so far
func (p *Printer) Tracker() Tracker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.tracker
}

// TagColor picks the color function for a tag
func TagColor(tag progress.Tag) func(string) string {
	switch tag {
	case progress.TagError:
		return Red
	case progress.TagWarn:
		return Yellow
	case progress.TagSave, progress.TagCapture, progress.TagDone:
		return Green
	case progress.TagNormalize:
		return Blue
	case progress.TagScroll:
		return Magenta
	default:
		return Cyan
	}
}
