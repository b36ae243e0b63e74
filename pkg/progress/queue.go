// Package progress carries line-oriented status messages from the single
// harvesting worker to whatever front end is watching it.
package progress

import (
	"sync"
	"time"
)

// Tag prefixes every status line with the action that produced it
type Tag string

const (
	TagInfo      Tag = "INFO"
	TagWarn      Tag = "WARN"
	TagScroll    Tag = "SCROLL"
	TagSave      Tag = "SAVE"
	TagCapture   Tag = "CAP "
	TagNormalize Tag = "4:3"
	TagError     Tag = "ERR "
	TagDone      Tag = "DONE"
)

// ScrollFormat is the message layout of TagScroll lines: iteration
// number, then total distinct assets.
const ScrollFormat = "iteration %d, total %d"

// Line is one status message
type Line struct {
	Time    time.Time
	Tag     Tag
	Message string
}

// String renders the line the way it is shown to users
func (l Line) String() string {
	return "[" + string(l.Tag) + "] " + l.Message
}

// Queue is an unbounded, append-only FIFO of status lines. Put never
// blocks; readers poll with Drain.
type Queue struct {
	mu      sync.Mutex
	pending []Line
	closed  bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends a line. Lines put after Close are dropped.
func (q *Queue) Put(l Line) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, l)
}

// Drain removes and returns every pending line in insertion order
func (q *Queue) Drain() []Line {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Close marks the end of the stream. Pending lines remain drainable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close has been called
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
