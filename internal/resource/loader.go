package resource

import (
	"context"
	"fmt"
	"sync"

	"framekit/internal/domain"
)

// InvalidEntry describes one item that failed to come online
type InvalidEntry struct {
	ID     uint64
	Item   *Item
	Reason string
	// Path is the file the item could not use, if the failure is about a file. Resolving
	// an entry with a different path re-points the item.
	Path string
	Err  error
}

func (e InvalidEntry) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

// Loader collects load failures so a client can list them and fix them later. Load hooks
// may report from any goroutine; a nil *Loader discards reports.
type Loader struct {
	mu      sync.Mutex
	lastID  uint64
	entries []InvalidEntry
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{}
}

// Add records a failure and returns its id. Failures of destroyed items are dropped and
// get id 0.
func (l *Loader) Add(entry InvalidEntry) uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// checked under the lock: Destroy sets the flag before the item's entries are removed
	if entry.Item != nil && entry.Item.IsDestroyed() {
		return 0
	}
	l.lastID++
	entry.ID = l.lastID
	l.entries = append(l.entries, entry)
	return entry.ID
}

// Entries returns a snapshot of the outstanding failures
func (l *Loader) Entries() []InvalidEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]InvalidEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Loader) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Remove drops the entry with the given id
func (l *Loader) Remove(id uint64) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveItem drops every entry about item, e.g. once it was deleted
func (l *Loader) RemoveItem(item *Item) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.Item == item {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = InvalidEntry{}
	}
	l.entries = kept
	return removed
}

// Resolve retries the entry at index, optionally with a new path. The entry is removed
// when its item comes online. Must run on the owner goroutine.
func (l *Loader) Resolve(ctx context.Context, index int, path string) (bool, error) {
	if l == nil {
		return false, &domain.NotFoundError{Message: "no load errors"}
	}
	l.mu.Lock()
	if index < 0 || index >= len(l.entries) {
		n := len(l.entries)
		l.mu.Unlock()
		return false, &domain.NotFoundError{Message: fmt.Sprintf("load error %d not found (%d outstanding)", index, n)}
	}
	entry := l.entries[index]
	l.mu.Unlock()

	if entry.Item == nil || entry.Item.IsDestroyed() {
		l.Remove(entry.ID)
		return false, &domain.NotFoundError{Message: fmt.Sprintf("load error %d refers to a deleted resource", index)}
	}

	if path != "" {
		entry.Path = path
	}
	if !entry.Item.TryEnableForLoaderEntry(ctx, entry) {
		return false, nil
	}
	l.Remove(entry.ID)
	return true, nil
}
