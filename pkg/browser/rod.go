package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"imgharvest/pkg/logger"
)

// rodPage drives Chrome through the DevTools protocol with go-rod
type rodPage struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	log     logger.Logger

	// idle is closed when the last navigation reached network idle
	idle chan struct{}

	// life ends on Close and releases pending lifecycle waiters
	life       context.Context
	cancelLife context.CancelFunc
}

func openRod(ctx context.Context, opts Options) (Page, error) {
	log := opts.Logger.WithField("engine", "rod")

	var (
		wsURL string
		lnch  *launcher.Launcher
	)
	if opts.RemoteURL != "" {
		wsURL = opts.RemoteURL
		log.WithField("url", wsURL).Info("Connecting to remote browser")
	} else {
		lnch = launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if opts.UserAgent != "" {
			lnch = lnch.Set("user-agent", opts.UserAgent)
		}
		u, err := lnch.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.WithField("url", wsURL).Debug("Launched local browser")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Kill()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	var (
		page *rod.Page
		err  error
	)
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = b.Close()
		if lnch != nil {
			lnch.Kill()
		}
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	life, cancelLife := context.WithCancel(context.Background())
	return &rodPage{
		browser:    b,
		lnch:       lnch,
		page:       page,
		log:        log,
		life:       life,
		cancelLife: cancelLife,
	}, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	// Lifecycle listeners have to exist before navigation starts or the
	// events can be missed.
	domReady := p.page.Context(ctx).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	networkIdle := p.page.Context(p.life).WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	idle := make(chan struct{})
	p.idle = idle
	go func() {
		networkIdle()
		close(idle)
	}()

	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return classify(err)
	}
	domReady()
	return ctx.Err()
}

func (p *rodPage) WaitIdle(ctx context.Context) error {
	if p.idle == nil {
		return nil
	}
	select {
	case <-p.idle:
		if p.life.Err() != nil {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *rodPage) Eval(ctx context.Context, script Script) ([]byte, error) {
	res, err := p.page.Context(ctx).Eval(script.Source)
	if err != nil {
		return nil, classify(fmt.Errorf("eval %s: %w", script.Name, err))
	}
	return []byte(res.Value.Str()), nil
}

func (p *rodPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = rodElement{el: el}
	}
	return out, nil
}

func (p *rodPage) Element(ctx context.Context, css string) (Element, error) {
	el, err := p.page.Context(ctx).Element(css)
	if err != nil {
		return nil, classify(err)
	}
	return rodElement{el: el}, nil
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	return data, classify(err)
}

func (p *rodPage) Close() error {
	p.cancelLife()
	var firstErr error
	if err := p.page.Close(); err != nil {
		firstErr = err
	}
	if err := p.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if p.lnch != nil {
		p.lnch.Kill()
		p.lnch.Cleanup()
	}
	p.log.Debug("Browser closed")
	return firstErr
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).Text()
	return s, classify(err)
}

func (e rodElement) ScrollIntoView(ctx context.Context) error {
	return classify(e.el.Context(ctx).ScrollIntoView())
}

func (e rodElement) Click(ctx context.Context) error {
	return classify(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e rodElement) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	return data, classify(err)
}
