package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"framekit/internal/domain"
)

// DropType selects what a drop does with the dragged resources
type DropType uint8

const (
	DropNone DropType = 0
	DropCopy DropType = 1 << (iota - 1)
	DropMove
)

func (d DropType) String() string {
	switch d {
	case DropNone:
		return "none"
	case DropCopy:
		return "copy"
	case DropMove:
		return "move"
	}
	return fmt.Sprintf("DropType(%d)", uint8(d))
}

// ParseDropType accepts "copy" and "move"
func ParseDropType(s string) (DropType, error) {
	switch strings.ToLower(s) {
	case "copy":
		return DropCopy, nil
	case "move":
		return DropMove, nil
	}
	return DropNone, &domain.ValidationError{Message: fmt.Sprintf("unknown drop type %q", s)}
}

// LoadFunc tries to bring freshly created items online. It is handed every item produced by
// a copy or a file drop; folders are expanded beforehand.
type LoadFunc func(ctx context.Context, items []*Item) error

// CanDropResourceList reports whether resources may be dropped into folder: false when any of
// them is a folder that folder already lives in (or folder itself).
func CanDropResourceList(folder *Folder, resources []Resource, dropType DropType) bool {
	if folder == nil || dropType == DropNone || len(resources) == 0 {
		return false
	}
	if folder.IsRoot() {
		return true
	}
	for _, r := range resources {
		sub, ok := r.(*Folder)
		if !ok {
			continue
		}
		if folder.IsParentInHierarchy(sub, true) {
			return false
		}
	}
	return true
}

// DropResourceList copies or moves resources into dest.
//
// A copy clones each resource, renames it away from its new siblings ("Name", "Name (1)",
// ...) and inserts it; the new items are then passed to load. A move relocates each resource
// to the end of dest, skipping anything that would create a cycle or is already in dest.
func DropResourceList(ctx context.Context, dest *Folder, resources []Resource, dropType DropType, reg *Registry, load LoadFunc) ([]Resource, error) {
	if dest == nil {
		return nil, domain.InvalidState("drop target folder is nil")
	}
	if !CanDropResourceList(dest, resources, dropType) {
		return nil, fmt.Errorf("drop into %q: %w", dest.DisplayName(), domain.ErrCycle)
	}
	switch dropType {
	case DropCopy:
		return copyInto(ctx, dest, resources, reg, load)
	case DropMove:
		return moveInto(dest, resources)
	}
	return nil, &domain.ValidationError{Message: fmt.Sprintf("unsupported drop type %s", dropType)}
}

func copyInto(ctx context.Context, dest *Folder, resources []Resource, reg *Registry, load LoadFunc) ([]Resource, error) {
	copies := make([]Resource, 0, len(resources))
	for _, r := range resources {
		clone, err := Clone(r, reg)
		if err != nil {
			return copies, err
		}
		if name, ok := IncrementName(dest.IsNameFree, r.DisplayName(), DefaultIncrementLimit); ok {
			clone.SetDisplayName(name)
		}
		if err := dest.AddItem(clone); err != nil {
			_ = clone.Destroy()
			return copies, err
		}
		copies = append(copies, clone)
	}
	if load != nil && len(copies) > 0 {
		if err := load(ctx, CollectItems(copies)); err != nil {
			return copies, err
		}
	}
	return copies, nil
}

func moveInto(dest *Folder, resources []Resource) ([]Resource, error) {
	moved := make([]Resource, 0, len(resources))
	var errs []error
	for _, r := range resources {
		if sub, ok := r.(*Folder); ok && dest.IsParentInHierarchy(sub, true) {
			continue
		}
		parent := r.Parent()
		if parent == dest {
			continue
		}
		var err error
		if parent == nil {
			err = dest.AddItem(r)
		} else {
			err = parent.MoveItemTo(dest, parent.IndexOf(r), dest.Len())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("move %q: %w", r.DisplayName(), err))
			continue
		}
		moved = append(moved, r)
	}
	return moved, errors.Join(errs...)
}

// CollectItems flattens resources into the items they contain, depth first
func CollectItems(resources []Resource) []*Item {
	var out []*Item
	var walk func(r Resource)
	walk = func(r Resource) {
		switch t := r.(type) {
		case *Item:
			out = append(out, t)
		case *Folder:
			for _, child := range t.items {
				walk(child)
			}
		}
	}
	for _, r := range resources {
		walk(r)
	}
	return out
}

// LoadSequential is the simplest LoadFunc: it auto-enables each item in turn on the
// calling goroutine.
func LoadSequential(loader *Loader) LoadFunc {
	return func(ctx context.Context, items []*Item) error {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			item.TryAutoEnable(ctx, loader)
		}
		return nil
	}
}
