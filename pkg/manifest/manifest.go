// Package manifest reads and writes the JSON manifest that records every
// asset discovered by a harvesting run.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"time"

	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/storage"
)

// Manager handles one manifest file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the manifest at path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{path: path, logger: log}
}

// Path returns the manifest location
func (m *Manager) Path() string {
	return m.path
}

// Write stores the snapshot as an indented JSON array, replacing any
// previous manifest atomically. Non-ASCII text and HTML characters are
// written as-is.
func (m *Manager) Write(snap models.Snapshot) error {
	err := storage.WriteFileAtomic(m.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	})
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	m.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"path":   m.path,
		"assets": snap.Len(),
	})
	return nil
}

// Load reads a manifest back into a snapshot
func (m *Manager) Load() (models.Snapshot, error) {
	file, err := os.Open(m.path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var assets []models.Asset
	if err := json.NewDecoder(file).Decode(&assets); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return models.NewSnapshot(assets), nil
}

// Exists checks if the manifest file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Info summarizes a manifest
type Info struct {
	Path        string
	UpdatedAt   time.Time
	Total       int
	Images      int
	Backgrounds int
	WithLocator int
	WithHeading int
	WithCaption int
	WithAlt     int
	Hosts       []HostCount
}

// HostCount is the number of assets served from one host
type HostCount struct {
	Host  string
	Count int
}

// GetInfo loads the manifest and returns its summary
func (m *Manager) GetInfo() (*Info, error) {
	stat, err := os.Stat(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	snap, err := m.Load()
	if err != nil {
		return nil, err
	}

	info := Summarize(snap)
	info.Path = m.path
	info.UpdatedAt = stat.ModTime()
	return info, nil
}

// Summarize counts assets by kind, metadata presence and host. Hosts are
// ordered by count, then name; inline data URLs count under "data:".
func Summarize(snap models.Snapshot) *Info {
	info := &Info{Total: snap.Len()}
	hosts := make(map[string]int)

	for _, a := range snap.Assets() {
		switch a.Kind {
		case models.KindImage:
			info.Images++
		case models.KindBackground:
			info.Backgrounds++
		}
		if _, ok := a.Locator.Selector(); ok {
			info.WithLocator++
		}
		if a.NearestHeading != "" {
			info.WithHeading++
		}
		if a.Caption != "" {
			info.WithCaption++
		}
		if a.AltText != "" {
			info.WithAlt++
		}

		if u, err := url.Parse(a.URL); err == nil {
			if u.Scheme == "data" {
				hosts["data:"]++
			} else {
				hosts[u.Host]++
			}
		}
	}

	for host, n := range hosts {
		info.Hosts = append(info.Hosts, HostCount{Host: host, Count: n})
	}
	sort.Slice(info.Hosts, func(i, j int) bool {
		if info.Hosts[i].Count != info.Hosts[j].Count {
			return info.Hosts[i].Count > info.Hosts[j].Count
		}
		return info.Hosts[i].Host < info.Hosts[j].Host
	})
	return info
}
