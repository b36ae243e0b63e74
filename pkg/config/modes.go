package config

import (
	"fmt"
	"strings"
)

// SaveMode selects what is persisted for each discovered asset
type SaveMode string

const (
	ModeDownload SaveMode = "download"
	ModeCapture  SaveMode = "capture"
	ModeBoth     SaveMode = "both"
)

// ParseSaveMode parses a save mode name. "screenshot" is accepted as an
// alias of "capture".
func ParseSaveMode(s string) (SaveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "download":
		return ModeDownload, nil
	case "capture", "screenshot":
		return ModeCapture, nil
	case "both":
		return ModeBoth, nil
	default:
		return "", fmt.Errorf("invalid save mode %q (want download, capture or both)", s)
	}
}

// Downloads reports whether the mode fetches original bytes
func (m SaveMode) Downloads() bool {
	return m == ModeDownload || m == ModeBoth
}

// Captures reports whether the mode takes element screenshots
func (m SaveMode) Captures() bool {
	return m == ModeCapture || m == ModeBoth
}

// UnmarshalText normalizes mode names read from YAML
func (m *SaveMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSaveMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Engine selects the page-automation backend
type Engine string

const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
	EngineHTTP     Engine = "http"
)

// ParseEngine parses an engine name
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case EngineRod:
		return EngineRod, nil
	case EngineChromedp:
		return EngineChromedp, nil
	case EngineHTTP:
		return EngineHTTP, nil
	default:
		return "", fmt.Errorf("invalid browser engine %q (want rod, chromedp or http)", s)
	}
}

// normalizeMode maps aliases to canonical names and leaves unknown values
// untouched so Validate can report them.
func normalizeMode(s string) SaveMode {
	if m, err := ParseSaveMode(s); err == nil {
		return m
	}
	return SaveMode(s)
}

func normalizeEngine(s string) Engine {
	if e, err := ParseEngine(s); err == nil {
		return e
	}
	return Engine(s)
}
