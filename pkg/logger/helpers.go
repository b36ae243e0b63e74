package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogIteration records one pass of the scroll/probe loop
func LogIteration(l Logger, iteration, found, total, stall int) {
	l.DebugWithFields("Harvest iteration finished", map[string]interface{}{
		"iteration": iteration,
		"found":     found,
		"total":     total,
		"stall":     stall,
	})
}

// LogSave records the outcome of one persistence action
func LogSave(l Logger, action, path string, err error) {
	fields := map[string]interface{}{
		"action": action,
		"path":   path,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Save action failed", fields)
		return
	}
	l.DebugWithFields("Save action completed", fields)
}

// LogPhase records the start or end of a run phase with its duration
func LogPhase(l Logger, phase string, started time.Time, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"phase":    phase,
		"duration": time.Since(started).Round(time.Millisecond),
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.InfoWithFields("Phase completed", merged)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
