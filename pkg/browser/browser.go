// Package browser is the boundary between the harvesting core and a page
// automation driver. Engines (rod, chromedp, plain HTTP) implement Page;
// everything above this package only sees the interfaces and the fixed
// Asset shape produced by DecodeAssets.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
)

var (
	// ErrClosed means the page or its browser is gone. It is the only
	// error that ends a harvesting loop.
	ErrClosed = errors.New("browser: page closed")

	// ErrUnsupported is returned by engines that cannot perform an action
	ErrUnsupported = errors.New("browser: operation not supported by engine")
)

// Page is one live page owned by a single worker. Every blocking call is
// bounded by ctx; callers attach per-call timeouts with WithTimeout.
type Page interface {
	// Navigate loads url and returns once the DOM is ready
	Navigate(ctx context.Context, url string) error
	// WaitIdle waits for network quiescence after the last navigation
	WaitIdle(ctx context.Context) error
	// Eval runs script in the page and returns the JSON it produced
	Eval(ctx context.Context, script Script) ([]byte, error)
	// Elements returns elements matching selector in document order
	Elements(ctx context.Context, selector string) ([]Element, error)
	// Element returns the first element matching a CSS selector
	Element(ctx context.Context, css string) (Element, error)
	// Screenshot captures the visible viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a handle on one DOM element of a Page
type Element interface {
	Text(ctx context.Context) (string, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	// Screenshot captures just this element as PNG
	Screenshot(ctx context.Context) ([]byte, error)
}

// Options configures a page session
type Options struct {
	Engine    config.Engine
	Headless  bool
	Stealth   bool
	UserAgent string
	RemoteURL string
	// HTTPTimeout bounds page fetches of the http engine
	HTTPTimeout time.Duration
	Logger      logger.Logger
}

// OptionsFromConfig builds page options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	ua := cfg.Browser.UserAgent
	if ua == "" && cfg.Browser.Engine == config.EngineHTTP {
		ua = cfg.Download.UserAgent
	}
	return Options{
		Engine:      cfg.Browser.Engine,
		Headless:    cfg.Browser.Headless,
		Stealth:     cfg.Browser.Stealth,
		UserAgent:   ua,
		RemoteURL:   cfg.Browser.RemoteURL,
		HTTPTimeout: cfg.Browser.NavigationTimeout,
		Logger:      log,
	}
}

// Open starts the configured engine and returns a blank page. The caller
// must Close it on every exit path.
func Open(ctx context.Context, opts Options) (Page, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	switch opts.Engine {
	case config.EngineRod, "":
		return openRod(ctx, opts)
	case config.EngineChromedp:
		return openChromedp(ctx, opts)
	case config.EngineHTTP:
		return openStatic(opts), nil
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", opts.Engine)
	}
}

// WithTimeout runs one page call with a deadline of d. A non-positive d
// leaves ctx as it is.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(c)
}

var closedMarkers = []string{
	"target closed",
	"session closed",
	"no target with given id",
	"connection closed",
	"use of closed network connection",
	"websocket: close",
	"browser has disconnected",
}

// classify maps driver errors that indicate a dead session onto ErrClosed
func classify(err error) error {
	if err == nil || errors.Is(err, ErrClosed) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, m := range closedMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
	}
	return err
}
