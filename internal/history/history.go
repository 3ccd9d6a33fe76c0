// Package history keeps a local log of update outcomes: which releases were
// found, staged, installed or failed.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// Kind is the outcome an entry records.
type Kind string

const (
	KindAvailable    Kind = "available"
	KindNotAvailable Kind = "not-available"
	KindDownloaded   Kind = "downloaded"
	KindInstalled    Kind = "installed"
	KindError        Kind = "error"
)

// Entry is one recorded outcome.
type Entry struct {
	ID             string    `json:"id" yaml:"id"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	Kind           Kind      `json:"kind" yaml:"kind"`
	CurrentVersion string    `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	LatestVersion  string    `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}

func (e Entry) String() string {
	line := fmt.Sprintf("%s  %-13s", e.CreatedAt.Local().Format(time.DateTime), e.Kind)
	switch {
	case e.Error != "":
		line += "  " + e.Error
	case e.LatestVersion != "":
		line += fmt.Sprintf("  %s -> %s", e.CurrentVersion, e.LatestVersion)
	case e.CurrentVersion != "":
		line += "  " + e.CurrentVersion
	}
	return line
}

// Entries is a listing, newest first.
type Entries []Entry

func (es Entries) String() string {
	if len(es) == 0 {
		return "no update history"
	}
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Manager stores entries as one JSON file each.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates a manager under the user cache directory for app.
func NewManager(app string) (*Manager, error) {
	dir, err := defaultDir(app)
	if err != nil {
		return nil, err
	}
	return NewManagerWithDir(dir), nil
}

// NewManagerWithDir creates a manager with a custom directory (for testing).
func NewManagerWithDir(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// defaultDir returns $XDG_CACHE_HOME/<app>/history, or ~/.cache/<app>/history.
func defaultDir(app string) (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, app, "history"), nil
}

// Dir returns the history directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// Add stamps e with an ID and time and writes it.
func (m *Manager) Add(e Entry) (*Entry, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	now := m.now()
	e.CreatedAt = now
	e.ID = now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}
	if err := os.WriteFile(m.path(e.ID), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}
	return &e, nil
}

// List returns all entries sorted newest first. Unreadable files are skipped.
func (m *Manager) List() (Entries, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Entries{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := Entries{}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		e, err := m.load(filepath.Join(m.dir, f.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Get retrieves an entry by ID. Use "latest" to get the most recent entry.
func (m *Manager) Get(id string) (*Entry, error) {
	if id == "latest" {
		entries, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, ErrNotFound
		}
		return &entries[0], nil
	}
	return m.load(m.path(id))
}

// Delete removes an entry by ID.
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

func (m *Manager) load(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse history entry: %w", err)
	}
	return &e, nil
}
