// Package workspace holds the application state of an analysis session: the
// photos analysed so far and which one is selected.
//
// A Workspace is owned by one front end (the MCP server, the HTTP API) and
// passed by reference to whatever renders it. It is safe for concurrent use.
package workspace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/photo-forensics-mcp/internal/forensics"
)

var (
	// ErrNotFound reports an unknown entry ID.
	ErrNotFound = errors.New("entry not found")

	// ErrOutOfRange reports a selection index outside the entry list.
	ErrOutOfRange = errors.New("index out of range")

	// ErrEmpty reports that nothing has been analysed yet.
	ErrEmpty = errors.New("workspace is empty")
)

// Entry is one analysed photo.
type Entry struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	AddedAt time.Time         `json:"added_at"`
	Report  *forensics.Report `json:"report"`
}

// Summary is the list view of an Entry.
type Summary struct {
	Index              int    `json:"index"`
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Selected           bool   `json:"selected"`
	Digest             string `json:"digest,omitempty"`
	FileSize           string `json:"file_size,omitempty"`
	HasDeviceSignature bool   `json:"has_device_signature"`
	HasGPS             bool   `json:"has_gps"`
}

// Workspace is an ordered list of entries with at most one selected.
type Workspace struct {
	mu       sync.RWMutex
	entries  []*Entry
	selected int
	now      func() time.Time
}

// New returns an empty workspace with nothing selected.
func New() *Workspace {
	return &Workspace{selected: -1, now: time.Now}
}

// Add appends a compacted copy of report and returns its entry. The first
// entry added to an empty workspace becomes the selection.
func (w *Workspace) Add(name string, report *forensics.Report) *Entry {
	e := &Entry{
		ID:      uuid.NewString(),
		Name:    name,
		AddedAt: w.now(),
		Report:  report.Compact(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
	if w.selected < 0 {
		w.selected = len(w.entries) - 1
	}
	return e
}

// Select makes the entry at index the selection.
func (w *Workspace) Select(index int) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.entries) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(w.entries))
	}
	w.selected = index
	return w.entries[index], nil
}

// SelectID makes the entry with the given ID the selection.
func (w *Workspace) SelectID(id string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.selected = i
	return w.entries[i], nil
}

// Current returns the selected entry.
func (w *Workspace) Current() (*Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.selected < 0 {
		return nil, ErrEmpty
	}
	return w.entries[w.selected], nil
}

// Get returns the entry with the given ID.
func (w *Workspace) Get(id string) (*Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w.entries[i], nil
}

// SelectedIndex returns the selected index, or -1 when empty.
func (w *Workspace) SelectedIndex() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// List summarizes every entry in insertion order.
func (w *Workspace) List() []Summary {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Summary, len(w.entries))
	for i, e := range w.entries {
		s := Summary{
			Index:    i,
			ID:       e.ID,
			Name:     e.Name,
			Selected: i == w.selected,
		}
		if r := e.Report; r != nil {
			s.Digest = r.Digest.Hex
			s.HasDeviceSignature = r.HasDeviceSignature
			s.HasGPS = r.HasGPS
			if r.File != nil {
				s.FileSize = r.File.FileSize
			}
		}
		out[i] = s
	}
	return out
}

// Remove deletes the entry with the given ID. If it was selected, the
// selection moves to the entry that took its place, or to the new last
// entry, or to nothing.
func (w *Workspace) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	switch {
	case len(w.entries) == 0:
		w.selected = -1
	case i < w.selected:
		w.selected--
	case w.selected >= len(w.entries):
		w.selected = len(w.entries) - 1
	}
	return nil
}

// Len returns the number of entries.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Clear removes every entry.
func (w *Workspace) Clear() {
	w.mu.Lock()
	w.entries = nil
	w.selected = -1
	w.mu.Unlock()
}

func (w *Workspace) indexOf(id string) int {
	for i, e := range w.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
