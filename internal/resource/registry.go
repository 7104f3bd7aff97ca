package resource

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"framekit/internal/domain"
)

// Constructor creates empty content of one kind
type Constructor func() Content

// Registry maps factory ids to item constructors. Cloning and deserialisation go through it
// so every rebuilt item gets the runtime kind it was saved with.
//
// Populated at startup; safe for concurrent lookups afterwards.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Constructor
}

// NewRegistry creates an empty registry. Folders are always known.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry holding the built-in kinds
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ColourKind, func() Content { return &Colour{A: 255} })
	r.MustRegister(ImageKind, func() Content { return &Image{} })
	r.MustRegister(TextStyleKind, func() Content { return NewTextStyle() })
	r.MustRegister(AVMediaKind, func() Content { return &AVMedia{} })
	return r
}

// Register adds a kind. Ids must be unique and FolderKind is reserved.
func (r *Registry) Register(kind string, ctor Constructor) error {
	if kind == "" || kind == FolderKind {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid resource kind %q", kind)}
	}
	if ctor == nil {
		return &domain.ValidationError{Message: fmt.Sprintf("nil constructor for %q", kind)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("resource kind %q already registered", kind),
			ResourceType: "kind",
			ResourceID:   kind,
		}
	}
	r.kinds[kind] = ctor
	return nil
}

// MustRegister is Register for startup code
func (r *Registry) MustRegister(kind string, ctor Constructor) {
	if err := r.Register(kind, ctor); err != nil {
		panic(err)
	}
}

// IsKnown reports whether id names a folder or a registered kind
func (r *Registry) IsKnown(id string) bool {
	if id == FolderKind {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[id]
	return ok
}

// Kinds lists the registered item kinds, sorted
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewContent creates empty content of the given kind
func (r *Registry) NewContent(kind string) (Content, error) {
	r.mu.RLock()
	ctor, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("unknown resource kind %q", kind)}
	}
	c := ctor()
	if c == nil || c.Kind() != kind {
		return nil, &domain.InvalidStateError{Message: fmt.Sprintf("constructor for %q built the wrong kind", kind)}
	}
	return c, nil
}

// NewResource creates a detached, unnamed resource for a factory id
func (r *Registry) NewResource(factoryID string) (Resource, error) {
	if factoryID == FolderKind {
		return NewFolder(""), nil
	}
	c, err := r.NewContent(factoryID)
	if err != nil {
		return nil, err
	}
	return NewItem("", c), nil
}

// CloneContent copies c. The copy must have the same runtime type as a freshly constructed
// instance of its kind; anything else means the registry is out of step with the content.
func (r *Registry) CloneContent(c Content) (Content, error) {
	fresh, err := r.NewContent(c.Kind())
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	clone := c.Clone()
	if clone == nil || reflect.TypeOf(clone) != reflect.TypeOf(fresh) || reflect.TypeOf(c) != reflect.TypeOf(fresh) {
		return nil, &domain.InvalidStateError{
			Message: fmt.Sprintf("cannot clone %T: registry builds %T for %q", c, fresh, c.Kind()),
		}
	}
	return clone, nil
}
