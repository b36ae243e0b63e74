package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"imgharvest/pkg/fetch"
	"imgharvest/pkg/logger"
)

// staticPage is the http engine: it fetches the page once and answers the
// probe from the static HTML. It cannot click or render, so interaction
// finds nothing to do and captures report ErrUnsupported.
type staticPage struct {
	client *fetch.Client
	log    logger.Logger

	doc  *goquery.Document
	base *url.URL
}

func openStatic(opts Options) Page {
	log := opts.Logger.WithField("engine", "http")
	return &staticPage{
		client: fetch.NewClient(opts.HTTPTimeout, opts.UserAgent, log),
		log:    log,
	}
}

// NewStaticPage returns an http engine page using an existing fetcher
func NewStaticPage(client *fetch.Client, log logger.Logger) Page {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &staticPage{client: client, log: log}
}

func (p *staticPage) Navigate(ctx context.Context, rawURL string) error {
	resp, err := p.client.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}

	base := resp.FinalURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = ref
		}
	}

	p.doc, p.base = doc, base
	p.log.WithField("url", base.String()).Debug("Fetched static page")
	return nil
}

func (p *staticPage) WaitIdle(ctx context.Context) error {
	return nil
}

func (p *staticPage) Eval(ctx context.Context, script Script) ([]byte, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("eval %s: no document loaded", script.Name)
	}
	switch script.Name {
	case ProbeScript.Name:
		return json.Marshal(probeDocument(p.doc, p.base))
	case ScrollBottomScript.Name:
		return []byte("true"), nil
	default:
		return nil, fmt.Errorf("eval %s: %w", script.Name, ErrUnsupported)
	}
}

func (p *staticPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	var out []Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, staticElement{sel: s})
	})
	return out, nil
}

func (p *staticPage) Element(ctx context.Context, css string) (Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	s := p.doc.Find(css).First()
	if s.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", css)
	}
	return staticElement{sel: s}, nil
}

func (p *staticPage) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, ErrUnsupported
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e staticElement) Text(ctx context.Context) (string, error) {
	return collapse(e.sel.Text()), nil
}

// ScrollIntoView is a no-op: a static document has no viewport
func (e staticElement) ScrollIntoView(ctx context.Context) error {
	return nil
}

func (e staticElement) Click(ctx context.Context) error {
	return ErrUnsupported
}

func (e staticElement) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, ErrUnsupported
}
