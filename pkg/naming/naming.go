// Package naming turns asset metadata into safe, unique file base names.
package naming

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"imgharvest/pkg/models"
)

// MaxLabelLength is the longest label kept after sanitization, in runes
const MaxLabelLength = 30

// Fallback is used when no metadata yields a usable label
const Fallback = "image"

var (
	illegal    = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Sanitize makes text safe for use in a file name: illegal characters
// become spaces, whitespace runs collapse, and the result is trimmed and
// cut to max runes.
func Sanitize(text string, max int) string {
	text = illegal.ReplaceAllString(text, " ")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if r := []rune(text); max > 0 && len(r) > max {
		text = strings.TrimSpace(string(r[:max]))
	}
	return text
}

// Label picks the first non-empty sanitized candidate among the nearest
// heading, caption, alt text and URL file stem.
func Label(a models.Asset) string {
	for _, candidate := range []string{a.NearestHeading, a.Caption, a.AltText, urlStem(a.URL)} {
		if s := Sanitize(candidate, MaxLabelLength); s != "" {
			return s
		}
	}
	return Fallback
}

func urlStem(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "data" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Resolver hands out session-unique base names. Uniqueness is case
// insensitive. A Resolver is used by a single worker.
type Resolver struct {
	used map[string]struct{}
}

// NewResolver creates an empty resolver
func NewResolver() *Resolver {
	return &Resolver{used: make(map[string]struct{})}
}

// Resolve returns the base name for the asset with the given 1-based
// sequence number, e.g. "007-Sunset". Repeated names get -2, -3, ...
func (r *Resolver) Resolve(seq int, a models.Asset) string {
	base := fmt.Sprintf("%03d-%s", seq, Label(a))
	name := base
	for k := 2; ; k++ {
		key := strings.ToLower(name)
		if _, taken := r.used[key]; !taken {
			r.used[key] = struct{}{}
			return name
		}
		name = base + "-" + strconv.Itoa(k)
	}
}
