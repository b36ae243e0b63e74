// Package browsertest provides an in-memory browser.Page for tests of the
// harvesting loop and the persistence strategy.
package browsertest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/models"
)

// Page is a scripted browser.Page. Zero values behave like an empty page.
type Page struct {
	mu sync.Mutex

	// Probe returns the probe result for the n-th probe call (1-based)
	Probe func(call int) ([]byte, error)
	// ScrollErr is returned by the scroll script
	ScrollErr error
	// Buttons are returned for the interactive selector
	Buttons []*Element
	// ListErr is returned when listing elements
	ListErr error
	// Targets maps CSS locators to elements for captures
	Targets map[string]*Element
	// Viewport is the viewport screenshot; ViewportErr fails it
	Viewport    []byte
	ViewportErr error

	NavigateErr error
	IdleErr     error

	// CloseAfterProbes makes every call fail with browser.ErrClosed once
	// this many probes have run. Zero disables it.
	CloseAfterProbes int

	NavigateCalls int
	ProbeCalls    int
	ScrollCalls   int
	ClosedCount   int
}

// Element is a scripted browser.Element
type Element struct {
	Label     string
	TextErr   error
	ScrollErr error
	ClickErr  error
	PNG       []byte
	ShotErr   error

	// OnClick runs after a successful click
	OnClick func()

	mu      sync.Mutex
	Clicked int
}

var _ browser.Page = (*Page)(nil)
var _ browser.Element = (*Element)(nil)

func (p *Page) dead() bool {
	return p.ClosedCount > 0 || (p.CloseAfterProbes > 0 && p.ProbeCalls >= p.CloseAfterProbes)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NavigateCalls++
	return p.NavigateErr
}

func (p *Page) WaitIdle(ctx context.Context) error {
	return p.IdleErr
}

func (p *Page) Eval(ctx context.Context, script browser.Script) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead() {
		return nil, browser.ErrClosed
	}

	switch script.Name {
	case browser.ScrollBottomScript.Name:
		p.ScrollCalls++
		if p.ScrollErr != nil {
			return nil, p.ScrollErr
		}
		return []byte("true"), nil
	case browser.ProbeScript.Name:
		p.ProbeCalls++
		if p.Probe == nil {
			return []byte("[]"), nil
		}
		return p.Probe(p.ProbeCalls)
	default:
		return nil, fmt.Errorf("unknown script %q", script.Name)
	}
}

func (p *Page) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead() {
		return nil, browser.ErrClosed
	}
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	out := make([]browser.Element, len(p.Buttons))
	for i, b := range p.Buttons {
		out[i] = b
	}
	return out, nil
}

func (p *Page) Element(ctx context.Context, css string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead() {
		return nil, browser.ErrClosed
	}
	el, ok := p.Targets[css]
	if !ok {
		return nil, fmt.Errorf("no element matches %q", css)
	}
	return el, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead() {
		return nil, browser.ErrClosed
	}
	if p.ViewportErr != nil {
		return nil, p.ViewportErr
	}
	if p.Viewport == nil {
		return PNG(1280, 720), nil
	}
	return p.Viewport, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClosedCount++
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Label, nil
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.ScrollErr
}

func (e *Element) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.Clicked++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Screenshot(ctx context.Context) ([]byte, error) {
	if e.ShotErr != nil {
		return nil, e.ShotErr
	}
	if e.PNG == nil {
		return PNG(200, 100), nil
	}
	return e.PNG, nil
}

// AssetsJSON encodes assets the way a probe would return them
func AssetsJSON(assets ...models.Asset) []byte {
	if assets == nil {
		return []byte("[]")
	}
	data, err := json.Marshal(assets)
	if err != nil {
		panic(err)
	}
	return data
}

// PNG renders an opaque w×h image
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
