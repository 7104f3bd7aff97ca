package resource

import (
	"errors"
	"fmt"

	"framekit/internal/domain"
)

// FolderKind is the factory id of folders
const FolderKind = "r_folder"

// Folder is an ordered container that exclusively owns its children.
type Folder struct {
	node
	items []Resource

	ItemAdded   Event[FolderChange]
	ItemRemoved Event[FolderChange]
	ItemMoved   Event[ItemMove]
}

// NewFolder creates a detached folder
func NewFolder(name string) *Folder {
	f := &Folder{}
	f.self = f
	f.displayName = name
	return f
}

func (f *Folder) FactoryID() string { return FolderKind }

// IsRoot reports whether f is a manager's root folder
func (f *Folder) IsRoot() bool { return f.isRoot() }

// Items returns a copy of the child list
func (f *Folder) Items() []Resource {
	out := make([]Resource, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Folder) Len() int { return len(f.items) }

// At returns the child at index, or nil when out of range
func (f *Folder) At(index int) Resource {
	if index < 0 || index >= len(f.items) {
		return nil
	}
	return f.items[index]
}

// IndexOf returns the position of r by identity, or -1
func (f *Folder) IndexOf(r Resource) int {
	for i, item := range f.items {
		if item == r {
			return i
		}
	}
	return -1
}

// Contains reports whether r is a direct child of f
func (f *Folder) Contains(r Resource) bool {
	return r != nil && r.Parent() == f && f.IndexOf(r) >= 0
}

// IsNameFree reports whether no direct child is called name
func (f *Folder) IsNameFree(name string) bool {
	for _, item := range f.items {
		if item.DisplayName() == name {
			return false
		}
	}
	return true
}

// AddItem appends r. See InsertItem.
func (f *Folder) AddItem(r Resource) error {
	return f.InsertItem(len(f.items), r)
}

// InsertItem inserts r at index and attaches it to f's manager, if any. r must be detached
// from any folder and must not be a root folder or an ancestor of f.
func (f *Folder) InsertItem(index int, r Resource) error {
	if r == nil {
		return domain.InvalidState("cannot insert a nil resource")
	}
	b := r.base()
	if b.parent != nil {
		return domain.InvalidState("%q already belongs to folder %q", b.displayName, b.parent.displayName)
	}
	if b.isRoot() {
		return domain.InvalidState("a root folder cannot be inserted into another folder")
	}
	if index < 0 || index > len(f.items) {
		return domain.InvalidState("insert index %d out of range [0, %d]", index, len(f.items))
	}
	if sub, ok := r.(*Folder); ok && f.IsParentInHierarchy(sub, true) {
		return fmt.Errorf("insert %q into %q: %w", sub.displayName, f.displayName, domain.ErrCycle)
	}

	f.items = append(f.items, nil)
	copy(f.items[index+1:], f.items[index:])
	f.items[index] = r
	b.parent = f
	if f.manager != nil {
		attach(r, f.manager)
	}

	f.ItemAdded.emit(FolderChange{Folder: f, Item: r, Index: index})
	if f.manager != nil {
		f.manager.markModified()
	}
	return nil
}

// InsertItems inserts each resource in order starting at index. It stops at the first failure;
// resources inserted before it stay in place.
func (f *Folder) InsertItems(index int, resources []Resource) error {
	for i, r := range resources {
		if err := f.InsertItem(index+i, r); err != nil {
			return err
		}
	}
	return nil
}

// RemoveItemAt removes the child at index, clears its parent and detaches its subtree from
// the manager. The removed resource is not destroyed.
func (f *Folder) RemoveItemAt(index int) (Resource, error) {
	if index < 0 || index >= len(f.items) {
		return nil, domain.InvalidState("remove index %d out of range [0, %d)", index, len(f.items))
	}
	r := f.items[index]
	copy(f.items[index:], f.items[index+1:])
	f.items[len(f.items)-1] = nil
	f.items = f.items[:len(f.items)-1]

	manager := f.manager
	if manager != nil {
		detach(r)
	}
	r.base().parent = nil

	f.ItemRemoved.emit(FolderChange{Folder: f, Item: r, Index: index})
	if manager != nil {
		manager.resetCursor()
		manager.markModified()
	}
	return r, nil
}

// RemoveItem removes r if it is a child of f, destroying it afterwards when destroy is set.
// It reports whether r was found.
func (f *Folder) RemoveItem(r Resource, destroy bool) (bool, error) {
	index := f.IndexOf(r)
	if index < 0 {
		return false, nil
	}
	if _, err := f.RemoveItemAt(index); err != nil {
		return false, err
	}
	if destroy {
		return true, r.Destroy()
	}
	return true, nil
}

// MoveItemTo relocates the child at srcIndex into target so that it ends up at dstIndex.
// Both folders must share a manager (or both be detached); the move never detaches or
// re-registers the item. Within one folder a dstIndex of Len() means the end, and moving
// an item onto its own index does nothing.
func (f *Folder) MoveItemTo(target *Folder, srcIndex, dstIndex int) error {
	if target == nil {
		return domain.InvalidState("move target folder is nil")
	}
	if srcIndex < 0 || srcIndex >= len(f.items) {
		return domain.InvalidState("move source index %d out of range [0, %d)", srcIndex, len(f.items))
	}
	if target.manager != f.manager {
		return domain.InvalidState("cannot move resources between different managers")
	}
	limit := len(target.items)
	if target == f {
		limit--
		if dstIndex == len(f.items) {
			dstIndex--
		}
		if dstIndex == srcIndex {
			return nil
		}
	}
	if dstIndex < 0 || dstIndex > limit {
		return domain.InvalidState("move destination index %d out of range [0, %d]", dstIndex, limit)
	}

	r := f.items[srcIndex]
	if sub, ok := r.(*Folder); ok && target.IsParentInHierarchy(sub, true) {
		return fmt.Errorf("move %q into %q: %w", sub.displayName, target.displayName, domain.ErrCycle)
	}

	copy(f.items[srcIndex:], f.items[srcIndex+1:])
	f.items[len(f.items)-1] = nil
	f.items = f.items[:len(f.items)-1]

	target.items = append(target.items, nil)
	copy(target.items[dstIndex+1:], target.items[dstIndex:])
	target.items[dstIndex] = r
	r.base().parent = target

	move := ItemMove{From: f, To: target, Item: r, OldIndex: srcIndex, NewIndex: dstIndex}
	f.ItemMoved.emit(move)
	if target != f {
		target.ItemMoved.emit(move)
	}
	if f.manager != nil {
		f.manager.markModified()
	}
	return nil
}

// MoveListTo moves each of the given children of f to the end of target, in order.
// Resources that are not children of f are skipped.
func (f *Folder) MoveListTo(target *Folder, resources []Resource) error {
	for _, r := range resources {
		index := f.IndexOf(r)
		if index < 0 {
			continue
		}
		if err := f.MoveItemTo(target, index, len(target.items)); err != nil {
			return err
		}
	}
	return nil
}

// IsParentInHierarchy walks up the parent chain from f (or from f's parent when startAtThis
// is false) and reports whether candidate is found.
func (f *Folder) IsParentInHierarchy(candidate *Folder, startAtThis bool) bool {
	if candidate == nil {
		return false
	}
	start := f
	if !startAtThis {
		start = f.parent
	}
	for p := start; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// Destroy destroys every descendant. Children stay in the folder.
func (f *Folder) Destroy() error {
	return DestroyAll(f.items)
}

// ClearHierarchy empties folder back to front, clearing sub folders before removing them.
// With destroy set, each child is destroyed before it is removed. A failing child never
// stops the rest of the teardown; all failures are joined into the result.
func ClearHierarchy(folder *Folder, destroy bool) error {
	var errs []error
	for i := len(folder.items) - 1; i >= 0; i-- {
		r := folder.items[i]
		if sub, ok := r.(*Folder); ok {
			if err := ClearHierarchy(sub, destroy); err != nil {
				errs = append(errs, err)
			}
		}
		if destroy {
			if err := r.Destroy(); err != nil {
				errs = append(errs, fmt.Errorf("destroy %q: %w", r.DisplayName(), err))
			}
		}
		if _, err := folder.RemoveItemAt(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Census is the result of CountHierarchy
type Census struct {
	Folders    int `json:"folders"`
	Items      int `json:"items"`
	References int `json:"references"`
}

// CountHierarchy counts the folders and items below f (f itself excluded) and the
// references held on those items.
func (f *Folder) CountHierarchy() Census {
	var c Census
	f.countInto(&c)
	return c
}

func (f *Folder) countInto(c *Census) {
	for _, r := range f.items {
		switch t := r.(type) {
		case *Folder:
			c.Folders++
			t.countInto(c)
		case *Item:
			c.Items++
			c.References += len(t.references)
		}
	}
}
