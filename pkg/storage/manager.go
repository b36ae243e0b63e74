package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Manager handles file storage in a single output directory and tracks
// which files the current run produced.
type Manager struct {
	outputDir string
	written   map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		written:   make(map[string]bool),
	}, nil
}

// Path returns the absolute location of name inside the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Write stores the reader's content as name and returns the full path
func (m *Manager) Write(name string, r io.Reader) (string, error) {
	target := m.Path(name)
	err := WriteFileAtomic(target, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return "", err
	}

	m.Track(target)
	return target, nil
}

// Track records a file produced outside Write, e.g. by the normalizer
func (m *Manager) Track(fullPath string) {
	m.mu.Lock()
	m.written[filepath.Base(fullPath)] = true
	m.mu.Unlock()
}

// Remove deletes a file previously written in the output directory
func (m *Manager) Remove(fullPath string) error {
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(fullPath), err)
	}

	m.mu.Lock()
	delete(m.written, filepath.Base(fullPath))
	m.mu.Unlock()
	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Files returns the names written during this run, sorted
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.written))
	for name := range m.written {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetWrittenCount returns the number of files written during this run
func (m *Manager) GetWrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}

// WriteFileAtomic creates target through a temporary sibling file and a
// rename. fill writes the content. target may already exist.
func WriteFileAtomic(target string, fill func(w io.Writer) error) error {
	tempFile := target + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = fill(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write file data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

var knownExts = map[string]string{
	".png":  ".png",
	".jpg":  ".jpg",
	".jpeg": ".jpeg",
	".webp": ".webp",
	".gif":  ".gif",
	".bmp":  ".bmp",
	".svg":  ".png",
}

// ExtFromURL picks the file extension for a downloaded asset from its URL
// path. Unknown or missing extensions map to .jpg; .svg maps to .png.
func ExtFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}

	if u.Scheme == "data" {
		return extFromDataURL(u.Opaque)
	}

	if ext, ok := knownExts[strings.ToLower(path.Ext(u.Path))]; ok {
		return ext
	}
	return ".jpg"
}

func extFromDataURL(opaque string) string {
	mediaType, _, _ := strings.Cut(opaque, ";")
	mediaType, _, _ = strings.Cut(mediaType, ",")
	sub, ok := strings.CutPrefix(strings.ToLower(mediaType), "image/")
	if !ok {
		return ".jpg"
	}
	sub, _, _ = strings.Cut(sub, "+")
	if ext, ok := knownExts["."+sub]; ok {
		return ext
	}
	return ".jpg"
}
