package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"imgharvest/pkg/logger"
)

// chromedpPage implements Page on top of chromedp. Calls run on a context
// derived from the tab so that caller deadlines never tear the tab down.
type chromedpPage struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         logger.Logger
}

func openChromedp(ctx context.Context, opts Options) (Page, error) {
	log := opts.Logger.WithField("engine", "chromedp")
	root := context.WithoutCancel(ctx)

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(root, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(root, allocOpts...)
	}

	tab, cancelTab := chromedp.NewContext(allocCtx)
	// The first Run starts the browser.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start chromedp: %w", err)
	}
	log.Debug("Started browser")

	return &chromedpPage{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc, log: log}, nil
}

// run executes actions on the tab bounded by the caller's deadline and
// cancellation.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.tab.Err() != nil {
		return ErrClosed
	}
	var (
		rctx   context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		rctx, cancel = context.WithDeadline(p.tab, deadline)
	} else {
		rctx, cancel = context.WithCancel(p.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && p.tab.Err() != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return classify(err)
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

// WaitIdle approximates network quiescence by waiting for a ready body
func (p *chromedpPage) WaitIdle(ctx context.Context) error {
	return p.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *chromedpPage) Eval(ctx context.Context, script Script) ([]byte, error) {
	var out string
	if err := p.run(ctx, chromedp.Evaluate("("+script.Source+")()", &out)); err != nil {
		return nil, fmt.Errorf("eval %s: %w", script.Name, err)
	}
	return []byte(out), nil
}

func (p *chromedpPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = chromedpElement{page: p, id: n.NodeID}
	}
	return out, nil
}

func (p *chromedpPage) Element(ctx context.Context, css string) (Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(css, &nodes, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element matches %q", css)
	}
	return chromedpElement{page: p, id: nodes[0].NodeID}, nil
}

func (p *chromedpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromedpPage) Close() error {
	p.cancelTab()
	p.cancelAlloc()
	p.log.Debug("Browser closed")
	return nil
}

type chromedpElement struct {
	page *chromedpPage
	id   cdp.NodeID
}

func (e chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.id}
}

func (e chromedpElement) Text(ctx context.Context) (string, error) {
	var s string
	err := e.page.run(ctx, chromedp.Text(e.ids(), &s, chromedp.ByNodeID))
	return s, err
}

func (e chromedpElement) ScrollIntoView(ctx context.Context) error {
	return e.page.run(ctx, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}

func (e chromedpElement) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e chromedpElement) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := e.page.run(ctx, chromedp.Screenshot(e.ids(), &buf, chromedp.ByNodeID))
	return buf, err
}
