// Package scraper runs one complete harvesting job against a single page.
//
// A run opens the page, waits for it to load, drives the convergence
// loop until no new assets appear, writes the manifest and then persists
// every asset according to the configured save mode. All of it happens on
// one worker goroutine; progress goes to a progress.Sink.
//
// Usage:
//
//	queue := progress.NewQueue()
//	s := scraper.New(cfg, progress.NewReporter(queue, log), log)
//	result, err := s.Run(ctx)
//
// Cancelling ctx asks the run to stop at the next iteration or asset
// boundary. The manifest is still written and the browser is always
// released.
package scraper
