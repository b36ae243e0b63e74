package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/browser"
	"imgharvest/pkg/config"
	harvesterrors "imgharvest/pkg/errors"
	"imgharvest/pkg/fetch"
	"imgharvest/pkg/harvest"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/manifest"
	"imgharvest/pkg/models"
	"imgharvest/pkg/progress"
	"imgharvest/pkg/storage"
)

// Scraper orchestrates a harvesting run
type Scraper struct {
	config *config.Config
	logger logger.Logger
	sink   progress.Sink
	open   PageOpener
	fetch  Fetcher
}

// Result describes a finished run
type Result struct {
	URL      string
	Manifest string
	Assets   int
	Loop     harvest.Stats
	Persist  downloader.Summary
	Files    []string
	Duration time.Duration
}

// New creates a scraper for cfg. A nil sink discards progress lines.
func New(cfg *config.Config, sink progress.Sink, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if sink == nil {
		sink = progress.Discard
	}

	client := fetch.NewClient(cfg.Download.Timeout, cfg.Download.UserAgent, log)
	client.SetMaxBodySize(cfg.Download.MaxSize)

	return &Scraper{
		config: cfg,
		logger: log,
		sink:   sink,
		open:   browser.Open,
		fetch:  client,
	}
}

// SetPageOpener replaces the browser launcher
func (s *Scraper) SetPageOpener(open PageOpener) {
	s.open = open
}

// SetFetcher replaces the byte fetcher used for downloads
func (s *Scraper) SetFetcher(f Fetcher) {
	s.fetch = f
}

// Run executes the whole job. The returned error is non-nil only for
// failures that end the run: the output directory or manifest cannot be
// written, the browser cannot start, or the page is lost while
// scrolling. Everything else is reported through the sink.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	cfg := s.config
	work := context.WithoutCancel(ctx)
	result := &Result{URL: cfg.Target.URL, Manifest: cfg.ManifestPath()}

	s.logger.InfoWithFields("Starting harvest", map[string]interface{}{
		"url":    cfg.Target.URL,
		"engine": string(cfg.Browser.Engine),
		"mode":   string(cfg.Output.Mode),
		"output": cfg.Output.Directory,
	})

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		s.sink.Emit(progress.TagError, "%v", err)
		return result, err
	}

	s.sink.Emit(progress.TagInfo, "starting browser (%s)", cfg.Browser.Engine)
	page, err := s.open(work, browser.OptionsFromConfig(cfg, s.logger))
	if err != nil {
		serr := harvesterrors.New(harvesterrors.ErrorTypeSession, "failed to start browser", err)
		s.sink.Emit(progress.TagError, "%v", serr)
		return result, serr
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			s.logger.WithError(cerr).Warn("Failed to close browser")
		}
	}()

	if err := s.load(work, page); err != nil {
		s.sink.Emit(progress.TagError, "%v", err)
		return result, err
	}

	phase := time.Now()
	collector := harvest.NewCollector(page, harvest.OptionsFromConfig(cfg.Harvest), s.sink, s.logger)
	snap, stats, loopErr := collector.Collect(ctx)
	result.Loop = stats
	result.Assets = snap.Len()
	logger.LogPhase(s.logger, "collect", phase, map[string]interface{}{
		"iterations": stats.Iterations,
		"assets":     stats.Assets,
		"clicks":     stats.Clicks,
		"reason":     string(stats.Reason),
	})

	if err := s.writeManifest(snap); err != nil {
		return result, err
	}

	if loopErr != nil {
		s.sink.Emit(progress.TagError, "%v", loopErr)
		return result, loopErr
	}

	phase = time.Now()
	saver := downloader.NewSaver(page, s.fetch, store, downloader.OptionsFromConfig(cfg), s.sink, s.logger)
	result.Persist = saver.SaveAll(ctx, snap)
	result.Files = store.Files()
	logger.LogPhase(s.logger, "persist", phase, map[string]interface{}{
		"saved":      result.Persist.Saved,
		"failed":     result.Persist.Failed,
		"normalized": result.Persist.Normalized,
	})

	result.Duration = time.Since(started)
	s.sink.Emit(progress.TagDone, "finished: %d assets, %d saved, %d failed in %s",
		result.Assets, result.Persist.Saved, result.Persist.Failed, result.Duration.Round(time.Second))
	return result, nil
}

// load navigates and waits for the network to settle. A slow page is not
// an error: the loop runs against whatever has loaded.
func (s *Scraper) load(ctx context.Context, page browser.Page) error {
	cfg := s.config.Browser

	nctx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	err := page.Navigate(nctx, s.config.Target.URL)
	cancel()

	if err == nil {
		ictx, cancel := context.WithTimeout(ctx, cfg.NetworkIdleTimeout)
		err = page.WaitIdle(ictx)
		cancel()
	}

	switch {
	case err == nil:
		s.sink.Emit(progress.TagInfo, "page loaded, scrolling and loading more")
		return nil
	case errors.Is(err, browser.ErrClosed):
		return harvesterrors.New(harvesterrors.ErrorTypeSession, "page closed while loading", err)
	default:
		nerr := harvesterrors.New(harvesterrors.ErrorTypeNavigation, s.config.Target.URL, err)
		s.sink.Emit(progress.TagWarn, "page load timed out, harvesting anyway: %v", nerr)
		return nil
	}
}

func (s *Scraper) writeManifest(snap models.Snapshot) error {
	mgr := manifest.NewManager(s.config.ManifestPath(), s.logger)
	if err := mgr.Write(snap); err != nil {
		s.sink.Emit(progress.TagError, "%v", err)
		return err
	}
	s.sink.Emit(progress.TagInfo, "collected %d assets, manifest written to %s", snap.Len(), mgr.Path())
	return nil
}

// Summary renders a one-line report of a finished run
func (r *Result) Summary() string {
	return fmt.Sprintf("%d assets discovered in %d iterations (%s), %d files saved, %d actions failed, %d normalized",
		r.Assets, r.Loop.Iterations, r.Loop.Reason, r.Persist.Saved, r.Persist.Failed, r.Persist.Normalized)
}
