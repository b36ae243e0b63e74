// Package logger wraps zerolog behind a small interface used by every
// harvesting component.
//
// Console output is pretty-printed to stderr (colored only on a terminal);
// when a log file is configured, JSON lines are appended to it as well.
// The interactive TUI passes io.Discard as the console so log lines do not
// tear the screen.
//
//	err := logger.Initialize(&cfg.Logging, logger.Options{})
//	log := logger.GetLogger().WithField("component", "harvest")
//	log.InfoWithFields("Loop finished", map[string]interface{}{"assets": 12})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to drop them.
package logger
