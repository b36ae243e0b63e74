package ui

import (
	"fmt"
	"strings"
	"time"

	"imgharvest/pkg/progress"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// Tracker derives run counters from the stream of status lines
type Tracker struct {
	Iterations int
	Assets     int
	Saved      int
	Captured   int
	Normalized int
	Warnings   int
	Errors     int
	Done       bool
	StartTime  time.Time
}

// NewTracker creates a new tracker
func NewTracker() *Tracker {
	return &Tracker{StartTime: time.Now()}
}

// Observe updates the counters from one line
func (t *Tracker) Observe(l progress.Line) {
	switch l.Tag {
	case progress.TagScroll:
		var it, total int
		if _, err := fmt.Sscanf(l.Message, progress.ScrollFormat, &it, &total); err == nil {
			t.Iterations, t.Assets = it, total
		}
	case progress.TagSave:
		t.Saved++
	case progress.TagCapture:
		t.Captured++
	case progress.TagNormalize:
		t.Normalized++
	case progress.TagWarn:
		t.Warnings++
	case progress.TagError:
		t.Errors++
	case progress.TagDone:
		t.Done = true
	}
}

// Persisted returns the number of files written so far
func (t *Tracker) Persisted() int {
	return t.Saved + t.Captured
}

// GetElapsedTime returns the elapsed time since tracking started
func (t *Tracker) GetElapsedTime() time.Duration {
	return time.Since(t.StartTime)
}

// Bar renders done out of total as a fixed-width bar
func Bar(done, total, width int) string {
	if total <= 0 {
		return strings.Repeat(ProgressEmpty, width)
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// Status renders the counters on one line
func (t *Tracker) Status() string {
	return fmt.Sprintf("iter %d | assets %d | saved %d | captured %d | 4:3 %d | warn %d | err %d",
		t.Iterations, t.Assets, t.Saved, t.Captured, t.Normalized, t.Warnings, t.Errors)
}
