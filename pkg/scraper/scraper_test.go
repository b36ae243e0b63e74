package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/browser/browsertest"
	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/progress"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Bytes(ctx context.Context, url string) ([]byte, error) {
	if b, ok := m[url]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("status 404 for %s", url)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Target.URL = "https://gallery.example.com/"
	cfg.Output.Directory = t.TempDir()
	cfg.Harvest.SettleDelay = time.Millisecond
	cfg.Harvest.Interact = true
	return cfg
}

// tenAssetPage grows 4 → 8 → 10 assets over three probes and then stops
// producing anything new.
func tenAssetPage() (*browsertest.Page, mapFetcher) {
	var all []models.Asset
	fetcher := mapFetcher{}
	targets := map[string]*browsertest.Element{}

	for i := 1; i <= 10; i++ {
		ext := []string{".jpg", ".png", ".webp"}[i%3]
		a := models.Asset{
			Kind: models.KindImage,
			URL:  fmt.Sprintf("https://cdn.example.com/p/%02d%s", i, ext),
		}
		switch {
		case i%4 == 0:
			a.Kind = models.KindBackground
		case i%2 == 0:
			// Labels collide once sanitized and lowercased
			a.AltText = "Photo"
			if i%3 == 0 {
				a.AltText = "PHOTO"
			}
		default:
			a.NearestHeading = "Summer: Trip"
		}
		if i%2 == 1 {
			css := fmt.Sprintf("main > figure:nth-of-type(%d) > img", i)
			a.Locator = models.WithLocator(css)
			targets[css] = &browsertest.Element{PNG: browsertest.PNG(30+i, 20)}
		}
		all = append(all, a)
		fetcher[a.URL] = browsertest.PNG(40, 10*i)
	}

	page := &browsertest.Page{
		Targets:  targets,
		Viewport: browsertest.PNG(64, 36),
		Buttons:  []*browsertest.Element{{Label: "Load more"}},
		Probe: func(call int) ([]byte, error) {
			n := 4 * call
			if n > len(all) {
				n = len(all)
			}
			return browsertest.AssetsJSON(all[:n]...), nil
		},
	}
	return page, fetcher
}

func newTestScraper(cfg *config.Config, page *browsertest.Page, f Fetcher, sink progress.Sink) *Scraper {
	s := New(cfg, sink, logger.NewNopLogger())
	s.SetPageOpener(func(ctx context.Context, opts browser.Options) (browser.Page, error) {
		return page, nil
	})
	s.SetFetcher(f)
	return s
}

func TestRunEndToEndBothModeNormalized(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Mode = config.ModeBoth
	cfg.Output.AspectNormalize = true

	page, fetcher := tenAssetPage()
	rec := &progress.Recorder{}

	result, err := newTestScraper(cfg, page, fetcher, rec).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, result.Assets)
	assert.Equal(t, 5, result.Loop.Iterations, "three growing probes then two stalls")
	assert.Equal(t, 1, page.ClosedCount, "page is released")

	data, err := os.ReadFile(cfg.ManifestPath())
	require.NoError(t, err)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 10)

	dirEntries, err := os.ReadDir(cfg.Output.Directory)
	require.NoError(t, err)
	var files []string
	for _, e := range dirEntries {
		if e.Name() != cfg.Output.ManifestName {
			files = append(files, e.Name())
		}
	}
	assert.LessOrEqual(t, len(files), 20)
	assert.Len(t, files, 20, "every download and capture succeeds here")
	assert.ElementsMatch(t, files, result.Files)

	seen := map[string]bool{}
	for _, name := range files {
		key := strings.ToLower(name)
		assert.False(t, seen[key], "duplicate file name %s", name)
		seen[key] = true
		assert.Equal(t, ".png", filepath.Ext(name), "normalization leaves only png files")
	}

	assert.Contains(t, files, "001-Summer Trip-orig.png")
	assert.Contains(t, files, "001-Summer Trip-cap.png")
	assert.Contains(t, files, "002-Photo-orig.png")
	assert.Contains(t, files, "006-PHOTO-cap.png")

	assert.Equal(t, 20, result.Persist.Saved)
	assert.Equal(t, 20, result.Persist.Normalized)
	assert.Len(t, rec.Tagged(progress.TagDone), 1)
	assert.Len(t, rec.Tagged(progress.TagScroll), 5)
	assert.Empty(t, rec.Tagged(progress.TagError))
}

func TestRunDegradesOnNavigationTimeout(t *testing.T) {
	cfg := testConfig(t)
	page, fetcher := tenAssetPage()
	page.NavigateErr = context.DeadlineExceeded
	rec := &progress.Recorder{}

	result, err := newTestScraper(cfg, page, fetcher, rec).Run(context.Background())
	require.NoError(t, err)

	warns := rec.Tagged(progress.TagWarn)
	require.NotEmpty(t, warns)
	assert.Contains(t, warns[0], "page load timed out")
	assert.Equal(t, 10, result.Assets)
	assert.Equal(t, 10, result.Persist.Saved)
}

func TestRunWritesPartialManifestWhenPageIsLost(t *testing.T) {
	cfg := testConfig(t)
	page, fetcher := tenAssetPage()
	page.CloseAfterProbes = 2
	rec := &progress.Recorder{}

	result, err := newTestScraper(cfg, page, fetcher, rec).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, browser.ErrClosed))

	mgrData, readErr := os.ReadFile(cfg.ManifestPath())
	require.NoError(t, readErr)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(mgrData, &entries))
	assert.Len(t, entries, result.Assets)
	assert.Equal(t, 8, result.Assets)

	assert.Empty(t, result.Files, "nothing is persisted after a fatal loss")
	assert.Equal(t, 1, page.ClosedCount)
	assert.NotEmpty(t, rec.Tagged(progress.TagError))
}

func TestRunBrowserStartFailure(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, nil, logger.NewNopLogger())
	s.SetPageOpener(func(ctx context.Context, opts browser.Options) (browser.Page, error) {
		return nil, errors.New("chrome not found")
	})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session error")
	assert.NoFileExists(t, cfg.ManifestPath())
}

func TestRunStopRequested(t *testing.T) {
	cfg := testConfig(t)
	page, fetcher := tenAssetPage()
	rec := &progress.Recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestScraper(cfg, page, fetcher, rec).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Assets)
	assert.FileExists(t, cfg.ManifestPath(), "a stopped run still leaves a manifest")
	assert.Empty(t, result.Files)
	assert.Equal(t, 1, page.ClosedCount)
}

func TestResultSummary(t *testing.T) {
	r := &Result{Assets: 3}
	r.Loop.Iterations = 4
	r.Loop.Reason = "converged"
	r.Persist.Saved = 5
	r.Persist.Failed = 1

	assert.Equal(t, "3 assets discovered in 4 iterations (converged), 5 files saved, 1 actions failed, 0 normalized", r.Summary())
}
