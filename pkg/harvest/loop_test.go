package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/browser"
	"imgharvest/pkg/browser/browsertest"
	"imgharvest/pkg/config"
	harvesterrors "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/progress"
)

func asset(n int, alt string) models.Asset {
	return models.Asset{Kind: models.KindImage, URL: fmt.Sprintf("https://example.com/%d.jpg", n), AltText: alt}
}

// growingProbe yields two more assets per call until call stopAfter, then
// keeps returning the same set.
func growingProbe(stopAfter int) func(int) ([]byte, error) {
	return func(call int) ([]byte, error) {
		n := call
		if n > stopAfter {
			n = stopAfter
		}
		var out []models.Asset
		for i := 1; i <= n*2; i++ {
			out = append(out, asset(i, ""))
		}
		return browsertest.AssetsJSON(out...), nil
	}
}

func testOptions(max int) Options {
	return Options{
		MaxIterations: max,
		Interact:      true,
		StallLimit:    DefaultStallLimit,
		EvalTimeout:   time.Second,
		Interaction:   DefaultInteractOptions(),
	}
}

func collect(t *testing.T, ctx context.Context, page browser.Page, opts Options, sink progress.Sink) (models.Snapshot, Stats, error) {
	t.Helper()
	c := NewCollector(page, opts, sink, logger.NewNopLogger())
	c.sleep = func(time.Duration) {}
	return c.Collect(ctx)
}

func TestCollectStopsAfterTwoStalls(t *testing.T) {
	page := &browsertest.Page{Probe: growingProbe(3)}
	var rec progress.Recorder

	snap, stats, err := collect(t, context.Background(), page, testOptions(30), &rec)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Iterations)
	assert.Equal(t, StopConverged, stats.Reason)
	assert.Equal(t, 5, page.ProbeCalls)
	assert.Equal(t, 5, page.ScrollCalls)
	assert.Equal(t, 6, snap.Len())
	assert.Equal(t, 6, stats.Assets)
	assert.Equal(t, "iteration 5, total 6", rec.Tagged(progress.TagScroll)[4])
}

func TestCollectHonorsMaxIterations(t *testing.T) {
	page := &browsertest.Page{Probe: growingProbe(100)}

	snap, stats, err := collect(t, context.Background(), page, testOptions(4), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Iterations)
	assert.Equal(t, StopLimit, stats.Reason)
	assert.Equal(t, 8, snap.Len())
}

func TestCollectMergeIsLastWriteWins(t *testing.T) {
	page := &browsertest.Page{Probe: func(call int) ([]byte, error) {
		if call == 1 {
			return browsertest.AssetsJSON(asset(1, "first"), asset(2, "first")), nil
		}
		return browsertest.AssetsJSON(asset(2, "richer"), asset(1, "richer"), asset(3, "new")), nil
	}}

	snap, _, err := collect(t, context.Background(), page, testOptions(30), nil)
	require.NoError(t, err)

	require.Equal(t, 3, snap.Len())
	assert.Equal(t, "https://example.com/1.jpg", snap.At(0).URL)
	assert.Equal(t, "richer", snap.At(0).AltText)
	assert.Equal(t, "richer", snap.At(1).AltText)
	assert.Equal(t, "new", snap.At(2).AltText)
}

func TestCollectDeduplicatesFragments(t *testing.T) {
	page := &browsertest.Page{Probe: func(call int) ([]byte, error) {
		if call%2 == 1 {
			return []byte(`[{"kind":"img","url":"https://example.com/a.jpg#a","alt":"a"}]`), nil
		}
		return []byte(`[{"kind":"img","url":"https://example.com/a.jpg#b","alt":"b"}]`), nil
	}}

	snap, _, err := collect(t, context.Background(), page, testOptions(30), nil)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "https://example.com/a.jpg", snap.At(0).URL)
}

func TestCollectTreatsExtractionFailureAsEmpty(t *testing.T) {
	page := &browsertest.Page{Probe: func(call int) ([]byte, error) {
		switch call {
		case 1:
			return browsertest.AssetsJSON(asset(1, "")), nil
		case 2:
			return nil, errors.New("Execution context was destroyed")
		case 3:
			return []byte(`not json`), nil
		default:
			return browsertest.AssetsJSON(asset(1, ""), asset(2, "")), nil
		}
	}}
	var rec progress.Recorder

	snap, stats, err := collect(t, context.Background(), page, testOptions(30), &rec)
	require.NoError(t, err)

	// Two failed probes count as stalls, so the loop converges at iteration 3.
	assert.Equal(t, 3, stats.Iterations)
	assert.Equal(t, 1, snap.Len())
	assert.Len(t, rec.Tagged(progress.TagWarn), 2)
}

func TestCollectScrollFailureIsNotFatal(t *testing.T) {
	page := &browsertest.Page{Probe: growingProbe(2), ScrollErr: errors.New("window gone weird")}
	var rec progress.Recorder

	snap, stats, err := collect(t, context.Background(), page, testOptions(30), &rec)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Iterations)
	assert.Equal(t, 4, snap.Len())
	assert.Len(t, rec.Tagged(progress.TagWarn), 4)
}

func TestCollectClicksWhenInteractionEnabled(t *testing.T) {
	more := &browsertest.Element{Label: "Load more"}
	page := &browsertest.Page{Probe: growingProbe(2), Buttons: []*browsertest.Element{more}}

	_, stats, err := collect(t, context.Background(), page, testOptions(30), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, more.Clicked)
	assert.Equal(t, 4, stats.Clicks)

	more.Clicked = 0
	opts := testOptions(30)
	opts.Interact = false
	page.ProbeCalls = 0
	_, _, err = collect(t, context.Background(), page, opts, nil)
	require.NoError(t, err)
	assert.Zero(t, more.Clicked)
}

func TestCollectSettlesAfterClickAndScroll(t *testing.T) {
	page := &browsertest.Page{
		Probe:   growingProbe(1),
		Buttons: []*browsertest.Element{{Label: "More"}},
	}
	opts := testOptions(30)
	opts.SettleDelay = 800 * time.Millisecond

	c := NewCollector(page, opts, nil, nil)
	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	_, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Iterations)
	assert.Len(t, sleeps, 6, "one settle after the click and one after the scroll per iteration")
	for _, d := range sleeps {
		assert.Equal(t, 800*time.Millisecond, d)
	}
}

func TestCollectObservesCancellationBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &browsertest.Page{Probe: func(call int) ([]byte, error) {
		if call == 2 {
			cancel()
		}
		return growingProbe(100)(call)
	}}
	var rec progress.Recorder

	snap, stats, err := collect(t, ctx, page, testOptions(30), &rec)
	require.NoError(t, err)

	assert.Equal(t, StopCancelled, stats.Reason)
	assert.Equal(t, 2, stats.Iterations, "the iteration in flight completes")
	assert.Equal(t, 4, snap.Len())
	assert.NotEmpty(t, rec.Tagged(progress.TagInfo))
}

func TestCollectAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &browsertest.Page{Probe: growingProbe(100)}

	snap, stats, err := collect(t, ctx, page, testOptions(30), nil)
	require.NoError(t, err)
	assert.Zero(t, page.ProbeCalls)
	assert.Zero(t, snap.Len())
	assert.Equal(t, StopCancelled, stats.Reason)
}

func TestCollectLostPageIsFatal(t *testing.T) {
	page := &browsertest.Page{Probe: growingProbe(100), CloseAfterProbes: 2}

	snap, stats, err := collect(t, context.Background(), page, testOptions(30), nil)
	require.Error(t, err)

	var herr *harvesterrors.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, harvesterrors.ErrorTypeSession, herr.Type)
	assert.ErrorIs(t, err, browser.ErrClosed)

	assert.Equal(t, StopFatal, stats.Reason)
	assert.Equal(t, 2, stats.Iterations)
	assert.Equal(t, 4, snap.Len(), "assets found before the loss are kept")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.DefaultConfig().Harvest)
	assert.Equal(t, 30, opts.MaxIterations)
	assert.Equal(t, DefaultStallLimit, opts.StallLimit)
	assert.Equal(t, 200, opts.Interaction.MaxCandidates)
	assert.Equal(t, 400*time.Millisecond, opts.Interaction.TextTimeout)
}
