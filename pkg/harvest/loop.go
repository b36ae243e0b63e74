// Package harvest implements the convergence loop: repeated
// interact/scroll/probe cycles that accumulate a deduplicated set of
// assets until the page stops yielding new ones.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/config"
	harvesterrors "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/progress"
)

// DefaultStallLimit is the number of consecutive non-growing iterations
// after which the loop considers the page exhausted.
const DefaultStallLimit = 2

// StopReason tells why the loop ended
type StopReason string

const (
	StopConverged StopReason = "converged"
	StopLimit     StopReason = "max-iterations"
	StopCancelled StopReason = "cancelled"
	StopFatal     StopReason = "session-lost"
)

// Options configures the convergence loop
type Options struct {
	MaxIterations int
	Interact      bool
	SettleDelay   time.Duration
	StallLimit    int
	EvalTimeout   time.Duration
	Interaction   InteractOptions
}

// OptionsFromConfig maps the harvest configuration section onto loop options
func OptionsFromConfig(cfg config.HarvestConfig) Options {
	return Options{
		MaxIterations: cfg.MaxScrolls,
		Interact:      cfg.Interact,
		SettleDelay:   cfg.SettleDelay,
		StallLimit:    DefaultStallLimit,
		EvalTimeout:   30 * time.Second,
		Interaction: InteractOptions{
			MaxCandidates: cfg.MaxCandidates,
			TextTimeout:   cfg.TextTimeout,
			ScrollTimeout: cfg.ScrollTimeout,
			ClickTimeout:  cfg.ClickTimeout,
		},
	}
}

// Stats describes a finished loop
type Stats struct {
	Iterations int
	Assets     int
	Clicks     int
	Reason     StopReason
}

// Collector runs the loop against one page
type Collector struct {
	page  browser.Page
	opts  Options
	sink  progress.Sink
	log   logger.Logger
	sleep func(time.Duration)
}

// NewCollector creates a collector. A nil sink or logger discards output.
func NewCollector(page browser.Page, opts Options, sink progress.Sink, log logger.Logger) *Collector {
	if sink == nil {
		sink = progress.Discard
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.StallLimit <= 0 {
		opts.StallLimit = DefaultStallLimit
	}
	return &Collector{page: page, opts: opts, sink: sink, log: log, sleep: time.Sleep}
}

// Collect runs the loop and returns the frozen session. ctx is the stop
// request: it is only consulted before each iteration, and work already
// started runs to completion under its own timeouts. The error is non-nil
// only when the page session was lost; the snapshot then holds everything
// found up to that point.
func (c *Collector) Collect(ctx context.Context) (models.Snapshot, Stats, error) {
	session := models.NewSession()
	work := context.WithoutCancel(ctx)

	var (
		stats Stats
		stall int
		prev  int
	)
	stats.Reason = StopLimit

	for i := 1; i <= c.opts.MaxIterations; i++ {
		if ctx.Err() != nil {
			stats.Reason = StopCancelled
			c.sink.Emit(progress.TagInfo, "stop requested, ending scroll loop after %d iterations", stats.Iterations)
			break
		}

		added, err := c.iterate(work, session, &stats)
		if err != nil {
			stats.Reason = StopFatal
			stats.Assets = session.Len()
			return session.Snapshot(), stats, harvesterrors.New(harvesterrors.ErrorTypeSession,
				fmt.Sprintf("page lost during iteration %d", i), err)
		}
		stats.Iterations = i

		if n := session.Len(); n > prev {
			stall = 0
			prev = n
		} else {
			stall++
		}
		c.sink.Emit(progress.TagScroll, progress.ScrollFormat, i, session.Len())
		logger.LogIteration(c.log, i, added, session.Len(), stall)

		if stall >= c.opts.StallLimit {
			stats.Reason = StopConverged
			break
		}
	}

	stats.Assets = session.Len()
	return session.Snapshot(), stats, nil
}

// iterate performs one interact/scroll/settle/probe/merge cycle and
// returns how many new URLs it merged. Only a lost page is returned as an
// error.
func (c *Collector) iterate(ctx context.Context, session *models.Session, stats *Stats) (int, error) {
	if c.opts.Interact {
		res, err := ClickMore(ctx, c.page, c.opts.Interaction)
		if errors.Is(err, browser.ErrClosed) {
			return 0, err
		}
		if err != nil {
			c.sink.Emit(progress.TagWarn, "interaction skipped: %v", err)
		}
		if res.Unreadable > 0 || res.Failed > 0 {
			c.log.DebugWithFields("Interaction had per-element failures", map[string]interface{}{
				"scanned":    res.Scanned,
				"unreadable": res.Unreadable,
				"failed":     res.Failed,
			})
		}
		stats.Clicks += res.Clicked
		if res.Any() {
			c.sleep(c.opts.SettleDelay)
		}
	}

	if _, err := c.eval(ctx, browser.ScrollBottomScript); err != nil {
		if errors.Is(err, browser.ErrClosed) {
			return 0, err
		}
		c.sink.Emit(progress.TagWarn, "scroll failed: %v", err)
	}
	c.sleep(c.opts.SettleDelay)

	candidates, err := c.probe(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrClosed) {
			return 0, err
		}
		c.sink.Emit(progress.TagWarn, "extraction failed, treating as empty: %v", err)
		return 0, nil
	}
	return session.Merge(candidates), nil
}

func (c *Collector) probe(ctx context.Context) ([]models.Asset, error) {
	raw, err := c.eval(ctx, browser.ProbeScript)
	if err != nil {
		return nil, err
	}
	assets, skipped, err := browser.DecodeAssets(raw)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.log.WithField("skipped", skipped).Debug("Dropped malformed probe entries")
	}
	return assets, nil
}

func (c *Collector) eval(ctx context.Context, script browser.Script) ([]byte, error) {
	return browser.WithTimeout(ctx, c.opts.EvalTimeout, func(ctx context.Context) ([]byte, error) {
		return c.page.Eval(ctx, script)
	})
}
