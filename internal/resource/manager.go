package resource

import (
	"fmt"
	"log/slog"
	"sort"

	"framekit/internal/domain"
)

// RootName is the display name of every manager's root folder
const RootName = "<root>"

// Manager owns a root folder and the id table of every item attached below it.
type Manager struct {
	root          *Folder
	entries       map[uint64]*Item
	currID        uint64
	currentFolder *Folder
	logger        *slog.Logger

	ResourceAdded        Event[*Item]
	ResourceRemoved      Event[*Item]
	CurrentFolderChanged Event[FolderSwitch]
	// Modified fires after any change to the tree that should be persisted
	Modified Event[*Manager]
}

// NewManager creates a manager with an empty root folder. A nil logger uses slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		entries: make(map[uint64]*Item),
		logger:  logger,
	}
	m.root = NewFolder(RootName)
	m.root.manager = m
	m.currentFolder = m.root
	return m
}

// Root returns the root folder. It is never nil and never detached.
func (m *Manager) Root() *Folder { return m.root }

// CurrID is the last id handed out by NextID
func (m *Manager) CurrID() uint64 { return m.currID }

// Len returns the number of registered items
func (m *Manager) Len() int { return len(m.entries) }

// NextID returns the next id above the last one handed out that no item uses yet
func (m *Manager) NextID() uint64 {
	id := m.currID
	for {
		id++
		if id == EmptyID {
			continue
		}
		if _, used := m.entries[id]; !used {
			break
		}
	}
	m.currID = id
	return id
}

// register puts item into the id table, keeping its preset id unless another item owns it
func (m *Manager) register(item *Item) {
	id := item.uniqueID
	if id != EmptyID {
		if other, used := m.entries[id]; used && other != item {
			fresh := m.NextID()
			m.logger.Warn("resource id collision, assigning a new id",
				"id", id,
				"new_id", fresh,
				"name", item.displayName,
				"owner", other.displayName,
			)
			id = fresh
		}
	} else {
		id = m.NextID()
	}
	m.entries[id] = item
	item.uniqueID = id
	m.ResourceAdded.emit(item)
}

// unregister removes item from the id table. An item that believes it is registered but is
// missing from the table means the tree and the table diverged; that is unrecoverable.
func (m *Manager) unregister(item *Item) {
	if item.uniqueID == EmptyID {
		return
	}
	if existing, ok := m.entries[item.uniqueID]; !ok || existing != item {
		panic(&domain.CorruptionError{
			Message:  fmt.Sprintf("item %q is not in the id table of its manager", item.displayName),
			UniqueID: item.uniqueID,
		})
	}
	delete(m.entries, item.uniqueID)
	m.ResourceRemoved.emit(item)
	item.uniqueID = EmptyID
}

func emptyIDError() error {
	return &domain.ValidationError{Message: "resource id cannot be zero"}
}

// EntryExists reports whether id is registered. The empty id is rejected.
func (m *Manager) EntryExists(id uint64) (bool, error) {
	if id == EmptyID {
		return false, emptyIDError()
	}
	_, ok := m.entries[id]
	return ok, nil
}

// TryGetEntry looks up a registered item. The empty id is rejected.
func (m *Manager) TryGetEntry(id uint64) (*Item, bool, error) {
	if id == EmptyID {
		return nil, false, emptyIDError()
	}
	item, ok := m.entries[id]
	return item, ok, nil
}

// GetEntry is TryGetEntry with a not-found error
func (m *Manager) GetEntry(id uint64) (*Item, error) {
	item, ok, err := m.TryGetEntry(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("resource %d not found", id)}
	}
	return item, nil
}

// EntryIDs returns the registered ids in ascending order
func (m *Manager) EntryIDs() []uint64 {
	ids := make([]uint64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// CurrentFolder is the navigation cursor, never nil
func (m *Manager) CurrentFolder() *Folder { return m.currentFolder }

// SetCurrentFolder moves the cursor. nil selects the root; folders of other managers
// are rejected.
func (m *Manager) SetCurrentFolder(folder *Folder) error {
	if folder == nil {
		folder = m.root
	}
	if folder.manager != m {
		return domain.InvalidState("folder %q does not belong to this manager", folder.displayName)
	}
	old := m.currentFolder
	if old == folder {
		return nil
	}
	m.currentFolder = folder
	m.CurrentFolderChanged.emit(FolderSwitch{Manager: m, Old: old, New: folder})
	return nil
}

// Clear destroys and removes everything below the root
func (m *Manager) Clear() error {
	err := ClearHierarchy(m.root, true)
	if err != nil {
		m.logger.Error("failed to destroy some resources", "error", err)
	}
	return err
}

func (m *Manager) markModified() {
	m.Modified.emit(m)
}

// resetCursor moves the cursor back to the root when its folder left the tree
func (m *Manager) resetCursor() {
	if m.currentFolder != m.root && m.currentFolder.manager != m {
		old := m.currentFolder
		m.currentFolder = m.root
		m.CurrentFolderChanged.emit(FolderSwitch{Manager: m, Old: old, New: m.root})
	}
}
