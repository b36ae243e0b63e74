package browser

import _ "embed"

// Script is a named piece of page JavaScript. Source is a function
// expression whose return value is a JSON string.
type Script struct {
	Name   string
	Source string
}

var (
	//go:embed scripts/probe.js
	probeJS string

	//go:embed scripts/scroll.js
	scrollJS string
)

// ProbeScript collects image-like assets from the rendered DOM
var ProbeScript = Script{Name: "probe", Source: probeJS}

// ScrollBottomScript scrolls the window to the end of the document
var ScrollBottomScript = Script{Name: "scroll-bottom", Source: scrollJS}

// InteractiveSelector matches the elements the interaction heuristic scans
const InteractiveSelector = "button, a, div[role=button]"
