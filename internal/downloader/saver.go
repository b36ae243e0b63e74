// Package downloader persists harvested assets as original downloads,
// element captures or both.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/config"
	harvesterrors "imgharvest/pkg/errors"
	"imgharvest/pkg/imaging"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/naming"
	"imgharvest/pkg/progress"
	"imgharvest/pkg/storage"
)

// Action is one persistence step applied to an asset
type Action string

const (
	ActionDownload Action = "download"
	ActionCapture  Action = "capture"
)

// Job is one asset queued for persistence
type Job struct {
	Seq   int
	Name  string
	Asset models.Asset
}

// Result is the outcome of one action on one job
type Result struct {
	Job        Job
	Action     Action
	Path       string
	Success    bool
	Normalized bool
	Error      error
	Duration   time.Duration
	Size       int
}

// Fetcher downloads the bytes behind an asset URL
type Fetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// FileStorage writes into the output directory
type FileStorage interface {
	Write(name string, r io.Reader) (string, error)
	Path(name string) string
	Remove(fullPath string) error
	Track(fullPath string)
}

// Normalizer rewrites the image at src as a 4:3 PNG at dst
type Normalizer func(src, dst string) error

// Options configures a Saver
type Options struct {
	Mode      config.SaveMode
	Normalize bool
	// ElementTimeout bounds locating and scrolling an element into view
	ElementTimeout time.Duration
	// CaptureTimeout bounds a single screenshot
	CaptureTimeout time.Duration
	// FetchTimeout bounds a single download on top of the client timeout
	FetchTimeout time.Duration
}

// OptionsFromConfig builds saver options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:           cfg.Output.Mode,
		Normalize:      cfg.Output.AspectNormalize,
		ElementTimeout: cfg.Browser.CaptureTimeout,
		CaptureTimeout: 30 * time.Second,
		FetchTimeout:   cfg.Download.Timeout,
	}
}

// Summary describes a finished persistence pass
type Summary struct {
	Assets     int
	Processed  int
	Saved      int
	Failed     int
	Normalized int
	Cancelled  bool
	Results    []Result
}

// Saver persists a frozen snapshot one asset at a time. Browser work and
// network fetches share the single page, so nothing runs concurrently.
type Saver struct {
	page      browser.Page
	fetch     Fetcher
	store     FileStorage
	normalize Normalizer
	resolver  *naming.Resolver
	opts      Options
	sink      progress.Sink
	logger    logger.Logger
}

// NewSaver creates a saver. page may be nil for download-only runs.
func NewSaver(page browser.Page, fetch Fetcher, store FileStorage, opts Options, sink progress.Sink, log logger.Logger) *Saver {
	if sink == nil {
		sink = progress.Discard
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Saver{
		page:      page,
		fetch:     fetch,
		store:     store,
		normalize: imaging.NormalizeAspect,
		resolver:  naming.NewResolver(),
		opts:      opts,
		sink:      sink,
		logger:    log,
	}
}

// SaveAll runs every action the mode selects for each asset, in
// discovery order. ctx is checked before each asset only; an asset that
// has started is finished. Action failures are reported and never stop
// the queue.
func (s *Saver) SaveAll(ctx context.Context, snap models.Snapshot) Summary {
	work := context.WithoutCancel(ctx)
	summary := Summary{Assets: snap.Len()}

	s.logger.InfoWithFields("Starting persistence", map[string]interface{}{
		"assets":    snap.Len(),
		"mode":      string(s.opts.Mode),
		"normalize": s.opts.Normalize,
	})

	for i, asset := range snap.Assets() {
		if ctx.Err() != nil {
			summary.Cancelled = true
			s.sink.Emit(progress.TagInfo, "stop requested, %d of %d assets processed", summary.Processed, summary.Assets)
			break
		}

		seq := i + 1
		job := Job{Seq: seq, Name: s.resolver.Resolve(seq, asset), Asset: asset}

		if s.opts.Mode.Downloads() {
			summary.add(s.download(work, job))
		}
		if s.opts.Mode.Captures() {
			summary.add(s.capture(work, job))
		}
		summary.Processed++
	}

	return summary
}

func (sum *Summary) add(r Result) {
	sum.Results = append(sum.Results, r)
	if r.Success {
		sum.Saved++
	} else {
		sum.Failed++
	}
	if r.Normalized {
		sum.Normalized++
	}
}

// download fetches the original bytes and writes them verbatim
func (s *Saver) download(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{Job: job, Action: ActionDownload}

	name := job.Name
	if s.opts.Mode == config.ModeBoth {
		name += "-orig"
	}
	name += storage.ExtFromURL(job.Asset.URL)

	data, err := s.fetchBytes(ctx, job.Asset.URL)
	if err != nil {
		return s.fail(result, start, harvesterrors.New(harvesterrors.ErrorTypeDownload, job.Asset.URL, err))
	}
	result.Size = len(data)

	path, err := s.store.Write(name, bytes.NewReader(data))
	if err != nil {
		return s.fail(result, start, harvesterrors.New(harvesterrors.ErrorTypeDownload, "write "+name, err))
	}
	result.Path = path
	result.Success = true
	s.sink.Emit(progress.TagSave, "%s", path)

	s.finish(&result, start)
	return result
}

// capture screenshots the asset's element, or the viewport when the asset
// has no locator
func (s *Saver) capture(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{Job: job, Action: ActionCapture}

	name := job.Name
	if s.opts.Mode == config.ModeBoth {
		name += "-cap"
	}
	name += ".png"

	if s.page == nil {
		return s.fail(result, start, harvesterrors.New(harvesterrors.ErrorTypeCapture, name, browser.ErrUnsupported))
	}

	data, err := s.shoot(ctx, job.Asset.Locator)
	if err != nil {
		return s.fail(result, start, harvesterrors.New(harvesterrors.ErrorTypeCapture, name, err))
	}
	result.Size = len(data)

	path, err := s.store.Write(name, bytes.NewReader(data))
	if err != nil {
		return s.fail(result, start, harvesterrors.New(harvesterrors.ErrorTypeCapture, "write "+name, err))
	}
	result.Path = path
	result.Success = true
	s.sink.Emit(progress.TagCapture, "%s", path)

	s.finish(&result, start)
	return result
}

func (s *Saver) shoot(ctx context.Context, loc models.Locator) ([]byte, error) {
	css, ok := loc.Selector()
	if !ok {
		return browser.WithTimeout(ctx, s.opts.CaptureTimeout, s.page.Screenshot)
	}

	el, err := browser.WithTimeout(ctx, s.opts.ElementTimeout, func(ctx context.Context) (browser.Element, error) {
		return s.page.Element(ctx, css)
	})
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", css, err)
	}

	_, err = browser.WithTimeout(ctx, s.opts.ElementTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, el.ScrollIntoView(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scroll %s into view: %w", css, err)
	}

	return browser.WithTimeout(ctx, s.opts.CaptureTimeout, el.Screenshot)
}

func (s *Saver) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	return browser.WithTimeout(ctx, s.opts.FetchTimeout, func(ctx context.Context) ([]byte, error) {
		return s.fetch.Bytes(ctx, url)
	})
}

// finish runs the optional 4:3 pass on a written file. A normalization
// failure keeps the written file and does not fail the action.
func (s *Saver) finish(result *Result, start time.Time) {
	defer func() { result.Duration = time.Since(start) }()
	logger.LogSave(s.logger, string(result.Action), result.Path, nil)

	if !s.opts.Normalize {
		return
	}

	src := result.Path
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".png"
	if err := s.normalize(src, dst); err != nil {
		nerr := harvesterrors.New(harvesterrors.ErrorTypeNormalize, filepath.Base(src), err)
		s.sink.Emit(progress.TagError, "%v (original kept)", nerr)
		logger.LogSave(s.logger, "normalize", src, nerr)
		return
	}

	if dst != src {
		if err := s.store.Remove(src); err != nil {
			s.logger.WithError(err).Warn("Failed to remove pre-normalization file")
		}
		s.store.Track(dst)
		result.Path = dst
	}
	result.Normalized = true
	s.sink.Emit(progress.TagNormalize, "%s", dst)
}

func (s *Saver) fail(result Result, start time.Time, err *harvesterrors.Error) Result {
	result.Error = err
	result.Duration = time.Since(start)
	s.sink.Emit(progress.TagError, "%s failed: %v", result.Action, err)
	logger.LogSave(s.logger, string(result.Action), result.Path, err)
	return result
}
