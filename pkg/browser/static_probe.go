package browser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	containerSelector = "[class], [role], section, article, div"
	maxContainerText  = 80
	maxLocatorParts   = 8
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	cssURL     = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^)'"]*?))\s*\)`)
	plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
)

// probeRecord mirrors what the in-browser probe returns
type probeRecord struct {
	Kind           string `json:"kind"`
	URL            string `json:"url"`
	Alt            string `json:"alt"`
	Caption        string `json:"caption"`
	NearestHeading string `json:"nearestHeading"`
	CSS            string `json:"css"`
}

// probeDocument applies the extraction contract to static HTML. Sources
// come from src (or the first srcset/data-src candidate) and from inline
// background styles, since computed styles are unavailable.
func probeDocument(doc *goquery.Document, base *url.URL) []probeRecord {
	var found []probeRecord

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}
		alt, _ := img.Attr("alt")
		found = append(found, newRecord(doc, "img", img, resolve(base, src), alt))
	})

	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		if !strings.Contains(strings.ToLower(style), "background") {
			return
		}
		m := cssURL.FindStringSubmatch(style)
		if m == nil {
			return
		}
		raw := m[1] + m[2] + m[3]
		if raw == "" {
			return
		}
		found = append(found, newRecord(doc, "bg", el, resolve(base, raw), ""))
	})

	seen := make(map[string]struct{}, len(found))
	out := make([]probeRecord, 0, len(found))
	for _, r := range found {
		if r.URL == "" {
			continue
		}
		key, _, _ := strings.Cut(r.URL, "#")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func newRecord(doc *goquery.Document, kind string, el *goquery.Selection, u, alt string) probeRecord {
	return probeRecord{
		Kind:           kind,
		URL:            u,
		Alt:            alt,
		Caption:        captionOf(doc, el),
		NearestHeading: nearestHeading(el),
		CSS:            locatorOf(el),
	}
}

func imageSource(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
		return src
	}
	if srcset := strings.TrimSpace(img.AttrOr("srcset", "")); srcset != "" {
		first, _, _ := strings.Cut(srcset, ",")
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return strings.TrimSpace(img.AttrOr("data-src", ""))
}

func resolve(base *url.URL, raw string) string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func isElement(s *goquery.Selection) bool {
	return s.Length() > 0 && !strings.HasPrefix(goquery.NodeName(s), "#")
}

func nearestHeading(el *goquery.Selection) string {
	for n := el; isElement(n); n = n.Parent() {
		var text string
		n.PrevAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			switch goquery.NodeName(sib) {
			case "h1", "h2", "h3", "h4":
				text = collapse(sib.Text())
			}
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

func captionOf(doc *goquery.Document, el *goquery.Selection) string {
	if fig := el.Closest("figure"); fig.Length() > 0 {
		if fc := fig.Find("figcaption").First(); fc.Length() > 0 {
			return collapse(fc.Text())
		}
	}
	if label := strings.TrimSpace(el.AttrOr("aria-label", "")); label != "" {
		return label
	}
	if id := el.AttrOr("aria-describedby", ""); id != "" {
		if d := byID(doc, id); d.Length() > 0 {
			return collapse(d.Text())
		}
	}
	if box := el.Closest(containerSelector); box.Length() > 0 {
		if t := collapse(box.Text()); t != "" && utf8.RuneCountInString(t) <= maxContainerText {
			return t
		}
	}
	return ""
}

func byID(doc *goquery.Document, id string) *goquery.Selection {
	return doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
}

// locatorOf builds a tag:nth-of-type path of at most eight parts,
// stopping early at the first ancestor with an id.
func locatorOf(el *goquery.Selection) string {
	var parts []string
	for n := el; isElement(n) && len(parts) < maxLocatorParts; n = n.Parent() {
		tag := goquery.NodeName(n)
		if id := n.AttrOr("id", ""); id != "" {
			if plainIdent.MatchString(id) {
				parts = append(parts, tag+"#"+id)
			} else {
				parts = append(parts, tag+`[id="`+strings.ReplaceAll(id, `"`, `\"`)+`"]`)
			}
			break
		}
		idx := 1
		n.PrevAll().Each(func(_ int, sib *goquery.Selection) {
			if goquery.NodeName(sib) == tag {
				idx++
			}
		})
		parts = append(parts, tag+":nth-of-type("+strconv.Itoa(idx)+")")
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
