package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies where on the page an asset reference came from
type Kind string

const (
	KindImage      Kind = "img"
	KindBackground Kind = "bg"
)

// Valid reports whether k is a known asset kind
func (k Kind) Valid() bool {
	return k == KindImage || k == KindBackground
}

// Locator is a best-effort structural selector for re-finding the element
// an asset was discovered on. The zero value is WithoutLocator.
type Locator struct {
	css string
	set bool
}

// WithLocator returns a locator carrying the given CSS selector.
// An empty selector yields WithoutLocator.
func WithLocator(css string) Locator {
	css = strings.TrimSpace(css)
	if css == "" {
		return WithoutLocator()
	}
	return Locator{css: css, set: true}
}

// WithoutLocator returns the locator used when no selector is known
func WithoutLocator() Locator {
	return Locator{}
}

// Selector returns the CSS selector and whether one is present
func (l Locator) Selector() (string, bool) {
	return l.css, l.set
}

func (l Locator) String() string {
	if !l.set {
		return "<viewport>"
	}
	return l.css
}

// Asset is one discovered media reference. URL is the identity key.
type Asset struct {
	Kind           Kind
	URL            string
	AltText        string
	Caption        string
	NearestHeading string
	Locator        Locator
}

// assetJSON is the manifest representation of an Asset
type assetJSON struct {
	Kind           Kind   `json:"kind"`
	URL            string `json:"url"`
	Alt            string `json:"alt"`
	Caption        string `json:"caption"`
	NearestHeading string `json:"nearestHeading"`
	CSS            string `json:"css,omitempty"`
}

// MarshalJSON writes the asset in manifest form
func (a Asset) MarshalJSON() ([]byte, error) {
	css, _ := a.Locator.Selector()
	return marshalRaw(assetJSON{
		Kind:           a.Kind,
		URL:            a.URL,
		Alt:            a.AltText,
		Caption:        a.Caption,
		NearestHeading: a.NearestHeading,
		CSS:            css,
	})
}

// UnmarshalJSON reads the manifest form and rejects entries that do not
// describe a usable asset.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var raw assetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Kind.Valid() {
		return fmt.Errorf("unknown asset kind %q", raw.Kind)
	}
	normalized, err := NormalizeURL(raw.URL)
	if err != nil {
		return err
	}
	*a = Asset{
		Kind:           raw.Kind,
		URL:            normalized,
		AltText:        raw.Alt,
		Caption:        raw.Caption,
		NearestHeading: raw.NearestHeading,
		Locator:        WithLocator(raw.CSS),
	}
	return nil
}

// NormalizeURL validates an absolute URL and strips its fragment
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// marshalRaw encodes v without HTML escaping so captions keep <, > and &
// readable in the manifest.
func marshalRaw(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
