package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("manifest entry not found")

// Manifest stores run entries in a directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// DefaultDir returns $XDG_DATA_HOME/dirindex/manifests.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "dirindex", "manifests")
}

// New returns a Manifest rooted at dir. The directory is created on the
// first write.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// LogRun stamps entry with an ID and timestamp, totals its summary from
// the folder records and writes it.
func (m *Manifest) LogRun(op OperationType, entry Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	entry.ID = generateID(op, now)
	entry.Timestamp = now
	entry.Operation = op

	entry.Summary = Summary{}
	for _, f := range entry.Folders {
		entry.Summary.Added += len(f.Added)
		entry.Summary.Removed += len(f.Removed)
		entry.Summary.Replaced += len(f.Replaced)
		entry.Summary.Touched += f.Touched
		entry.Summary.Size += f.Size
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := m.writeEntry(&entry); err != nil {
		return nil, fmt.Errorf("writing manifest entry: %w", err)
	}
	return &entry, nil
}

func (m *Manifest) writeEntry(entry *Entry) error {
	path := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. limit <= 0 returns all of them.
// Unreadable files are skipped.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID. A unique ID prefix is accepted.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		switch {
		case entries[i].ID == id:
			return &entries[i], nil
		case strings.HasPrefix(entries[i].ID, id):
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID prefix %q", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading manifest directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(m.dir, f.Name())) == nil {
			removed++
		}
	}
	return removed, nil
}

// generateID returns e.g. "update-2024-06-15T10-30-00-1b4e28ba".
func generateID(op OperationType, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", op, now.Format("2006-01-02T15-04-05"), uuid.New().String()[:8])
}
