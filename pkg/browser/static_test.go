package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
)

const galleryHTML = `<!doctype html>
<html><body>
<main id="main">
  <h2>Autumn   collection</h2>
  <figure>
    <img src="/img/leaf.jpg#zoom" alt="A red leaf">
    <figcaption>Maple, October</figcaption>
  </figure>
  <div class="card">
    <img srcset="/img/small.png 1x, /img/large.png 2x" aria-label="Tiny preview">
  </div>
  <p id="desc-1">Described elsewhere</p>
  <section>
    <img src="https://cdn.example.org/x.webp" aria-describedby="desc-1">
  </section>
  <div class="tile"><span>Short caption</span><img src="/img/tile.gif"></div>
  <div class="hero" style="background-image: url('/img/hero.jpg')"></div>
  <img src="/img/leaf.jpg#again" alt="duplicate">
  <button>Load more</button>
  <a href="/next">Next page</a>
</main>
</body></html>`

func newGalleryServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(galleryHTML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openGallery(t *testing.T) (Page, string) {
	t.Helper()
	srv := newGalleryServer(t)
	page, err := Open(context.Background(), Options{
		Engine:      config.EngineHTTP,
		HTTPTimeout: 5 * time.Second,
		Logger:      logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close() })

	require.NoError(t, page.Navigate(context.Background(), srv.URL+"/gallery"))
	return page, srv.URL
}

func probe(t *testing.T, page Page) []models.Asset {
	t.Helper()
	raw, err := page.Eval(context.Background(), ProbeScript)
	require.NoError(t, err)
	assets, skipped, err := DecodeAssets(raw)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	return assets
}

func TestStaticProbeContract(t *testing.T) {
	page, base := openGallery(t)
	assets := probe(t, page)

	require.Len(t, assets, 5, "the second leaf.jpg differs only by fragment")

	leaf := assets[0]
	assert.Equal(t, models.KindImage, leaf.Kind)
	assert.Equal(t, base+"/img/leaf.jpg", leaf.URL, "resolved and fragment stripped")
	assert.Equal(t, "A red leaf", leaf.AltText)
	assert.Equal(t, "Maple, October", leaf.Caption)
	assert.Equal(t, "Autumn collection", leaf.NearestHeading)
	css, ok := leaf.Locator.Selector()
	require.True(t, ok)
	assert.Equal(t, "main#main > figure:nth-of-type(1) > img:nth-of-type(1)", css)

	assert.Equal(t, base+"/img/small.png", assets[1].URL)
	assert.Equal(t, "Tiny preview", assets[1].Caption)

	assert.Equal(t, "https://cdn.example.org/x.webp", assets[2].URL)
	assert.Equal(t, "Described elsewhere", assets[2].Caption)

	assert.Equal(t, base+"/img/tile.gif", assets[3].URL)
	assert.Equal(t, "Short caption", assets[3].Caption)

	hero := assets[4]
	assert.Equal(t, models.KindBackground, hero.Kind)
	assert.Equal(t, base+"/img/hero.jpg", hero.URL)
	assert.Equal(t, "Autumn collection", hero.NearestHeading)
	assert.Empty(t, hero.Caption, "the hero container has no text")
}

func TestStaticProbeBackgroundCaptionFromOwnText(t *testing.T) {
	filler := strings.Repeat("lorem ipsum ", 10)
	html := `<div class="grid">` + filler +
		`<div class="hero" style="background-image:url('/h.jpg')">Spring sale</div></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, _ := url.Parse("https://example.com/page")

	records := probeDocument(doc, base)
	require.Len(t, records, 1)
	assert.Equal(t, "bg", records[0].Kind)
	assert.Equal(t, "https://example.com/h.jpg", records[0].URL)
	assert.Equal(t, "Spring sale", records[0].Caption)
}

func TestStaticProbeIsIdempotent(t *testing.T) {
	page, _ := openGallery(t)
	assert.Equal(t, probe(t, page), probe(t, page))
}

func TestStaticElements(t *testing.T) {
	page, _ := openGallery(t)
	ctx := context.Background()

	els, err := page.Elements(ctx, InteractiveSelector)
	require.NoError(t, err)
	require.Len(t, els, 2)

	text, err := els[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Load more", text)

	assert.NoError(t, els[0].ScrollIntoView(ctx))
	assert.True(t, errors.Is(els[0].Click(ctx), ErrUnsupported))

	_, err = page.Screenshot(ctx)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = page.Element(ctx, "section > img")
	assert.NoError(t, err)
	_, err = page.Element(ctx, "video")
	assert.Error(t, err)

	raw, err := page.Eval(ctx, ScrollBottomScript)
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(raw))
}

func TestStaticEvalBeforeNavigate(t *testing.T) {
	page, err := Open(context.Background(), Options{Engine: config.EngineHTTP, HTTPTimeout: time.Second})
	require.NoError(t, err)
	_, err = page.Eval(context.Background(), ProbeScript)
	assert.Error(t, err)
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(context.Background(), Options{Engine: "webkit"})
	assert.Error(t, err)
}
