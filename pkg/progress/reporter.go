package progress

import (
	"fmt"
	"time"

	"imgharvest/pkg/logger"
)

// Sink accepts status lines from the harvesting core
type Sink interface {
	Emit(tag Tag, format string, args ...interface{})
}

// Reporter publishes status lines to a queue and mirrors them into the
// structured log.
type Reporter struct {
	queue *Queue
	log   logger.Logger
	now   func() time.Time
}

// NewReporter creates a reporter. A nil queue only logs.
func NewReporter(q *Queue, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Reporter{queue: q, log: log, now: time.Now}
}

// Emit formats and publishes one line
func (r *Reporter) Emit(tag Tag, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.queue != nil {
		r.queue.Put(Line{Time: r.now(), Tag: tag, Message: msg})
	}

	fields := map[string]interface{}{"tag": string(tag)}
	switch tag {
	case TagWarn:
		r.log.WarnWithFields(msg, fields)
	case TagError:
		r.log.ErrorWithFields(msg, fields)
	case TagScroll, TagSave, TagCapture, TagNormalize:
		r.log.DebugWithFields(msg, fields)
	default:
		r.log.InfoWithFields(msg, fields)
	}
}

// Discard is a sink that drops everything
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Tag, string, ...interface{}) {}

// Recorder keeps emitted lines in memory; tests use it to assert on
// progress output.
type Recorder struct {
	Lines []Line
}

// Emit records the line
func (r *Recorder) Emit(tag Tag, format string, args ...interface{}) {
	r.Lines = append(r.Lines, Line{Tag: tag, Message: fmt.Sprintf(format, args...)})
}

// Tagged returns the messages recorded under tag
func (r *Recorder) Tagged(tag Tag) []string {
	var out []string
	for _, l := range r.Lines {
		if l.Tag == tag {
			out = append(out, l.Message)
		}
	}
	return out
}
