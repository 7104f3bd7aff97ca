package resource

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// FileHandler turns a dropped file into a new item
type FileHandler interface {
	CanHandle(path string) bool
	NewItem(path string) (*Item, error)
}

// ExtensionHandler handles files by extension (case-insensitive, with the leading dot)
type ExtensionHandler struct {
	Extensions []string
	New        func(path string) Content
}

func (h ExtensionHandler) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range h.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (h ExtensionHandler) NewItem(path string) (*Item, error) {
	c := h.New(path)
	if c == nil {
		return nil, fmt.Errorf("no content for %q", path)
	}
	return NewItem(filepath.Base(path), c), nil
}

// NativeDropRegistry routes dropped files to handlers. Handlers are tried in registration
// order and the first one that accepts a file wins.
//
// Thread-safe for concurrent access during request handling.
type NativeDropRegistry struct {
	mu       sync.RWMutex
	handlers []FileHandler
}

// NewNativeDropRegistry creates an empty registry
func NewNativeDropRegistry() *NativeDropRegistry {
	return &NativeDropRegistry{
		handlers: make([]FileHandler, 0),
	}
}

// DefaultNativeDropRegistry handles media files and still images
func DefaultNativeDropRegistry() *NativeDropRegistry {
	r := NewNativeDropRegistry()
	r.Register(ExtensionHandler{
		Extensions: MediaExtensions,
		New:        func(path string) Content { return &AVMedia{Path: path} },
	})
	r.Register(ExtensionHandler{
		Extensions: ImageExtensions,
		New:        func(path string) Content { return &Image{Path: path} },
	})
	return r
}

// Register appends a handler
func (r *NativeDropRegistry) Register(handler FileHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// HandlerFor returns the first handler accepting path, or nil
func (r *NativeDropRegistry) HandlerFor(path string) FileHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.CanHandle(path) {
			return h
		}
	}
	return nil
}

// FileDropResult lists what a native drop produced
type FileDropResult struct {
	Created   []*Item
	Unhandled []string
}

// DropFiles creates an item for every file a handler accepts, adds them to folder and passes
// them to load. When load fails (cancelled, timed out) every new item is destroyed and removed
// again. Items that merely failed to come online stay, with their failure in the loader.
func (r *NativeDropRegistry) DropFiles(ctx context.Context, folder *Folder, paths []string, load LoadFunc) (FileDropResult, error) {
	var res FileDropResult
	for _, path := range paths {
		h := r.HandlerFor(path)
		if h == nil {
			res.Unhandled = append(res.Unhandled, path)
			continue
		}
		item, err := h.NewItem(path)
		if err != nil {
			return FileDropResult{}, errors.Join(err, rollback(res.Created))
		}
		if name, ok := FileDisplayName(folder.IsNameFree, path); ok {
			item.displayName = name
		}
		if err := folder.AddItem(item); err != nil {
			return FileDropResult{}, errors.Join(err, rollback(res.Created))
		}
		res.Created = append(res.Created, item)
	}
	if load == nil || len(res.Created) == 0 {
		return res, nil
	}
	if err := load(ctx, res.Created); err != nil {
		rbErr := rollback(res.Created)
		return FileDropResult{}, errors.Join(fmt.Errorf("load dropped files: %w", err), rbErr)
	}
	return res, nil
}

func rollback(items []*Item) error {
	var errs []error
	for _, item := range items {
		if err := item.Destroy(); err != nil {
			errs = append(errs, err)
		}
		if p := item.Parent(); p != nil {
			if _, err := p.RemoveItem(item, false); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
