package harvest

import (
	"context"
	"errors"
	"strings"
	"time"

	"imgharvest/pkg/browser"
)

// MorePhrases are the affordance labels that trigger a click. Matching is
// a case-insensitive substring test.
var MorePhrases = []string{
	"加载更多", "更多", "下一页", "更多内容", "查看更多", "展开",
	"load more", "more", "next", "show more", "see more", "view more", "continue",
}

// InteractOptions bounds the interaction heuristic
type InteractOptions struct {
	MaxCandidates int
	TextTimeout   time.Duration
	ScrollTimeout time.Duration
	ClickTimeout  time.Duration
}

// DefaultInteractOptions returns the standard limits
func DefaultInteractOptions() InteractOptions {
	return InteractOptions{
		MaxCandidates: 200,
		TextTimeout:   400 * time.Millisecond,
		ScrollTimeout: time.Second,
		ClickTimeout:  1500 * time.Millisecond,
	}
}

// InteractResult summarizes one pass of the heuristic
type InteractResult struct {
	Scanned    int
	Unreadable int
	Matched    int
	Clicked    int
	// Failed counts matched elements whose scroll or click failed
	Failed int
}

// Any reports whether at least one click succeeded
func (r InteractResult) Any() bool {
	return r.Clicked > 0
}

// ClickMore scans interactive elements in document order and clicks those
// whose text looks like a "load more" or "next" affordance. Per-element
// failures are counted and skipped. The returned error is only set when
// the candidates could not be listed or the page went away.
func ClickMore(ctx context.Context, page browser.Page, opts InteractOptions) (InteractResult, error) {
	var res InteractResult

	els, err := page.Elements(ctx, browser.InteractiveSelector)
	if err != nil {
		return res, err
	}
	if opts.MaxCandidates > 0 && len(els) > opts.MaxCandidates {
		els = els[:opts.MaxCandidates]
	}

	for _, el := range els {
		res.Scanned++

		text, err := browser.WithTimeout(ctx, opts.TextTimeout, el.Text)
		if errors.Is(err, browser.ErrClosed) {
			return res, err
		}
		if err != nil {
			res.Unreadable++
			continue
		}
		if !matchesMore(text) {
			continue
		}
		res.Matched++

		// A failed scroll does not prevent the click attempt.
		_, _ = browser.WithTimeout(ctx, opts.ScrollTimeout, func(c context.Context) (struct{}, error) {
			return struct{}{}, el.ScrollIntoView(c)
		})
		if _, err := browser.WithTimeout(ctx, opts.ClickTimeout, func(c context.Context) (struct{}, error) {
			return struct{}{}, el.Click(c)
		}); err != nil {
			if errors.Is(err, browser.ErrClosed) {
				return res, err
			}
			res.Failed++
			continue
		}
		res.Clicked++
	}
	return res, nil
}

func matchesMore(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, phrase := range MorePhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
