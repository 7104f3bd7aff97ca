// Package resource is the project's shared-asset store: a tree of folders and items owned by a
// Manager, which gives every attached item a unique id and tracks the holders linking to it.
//
// The tree is not synchronised. All mutation happens on one owner goroutine; only the load
// hook of an item may run elsewhere (see Item.TryAutoEnableAsync).
package resource

import (
	"errors"
	"fmt"

	"framekit/internal/domain"
)

// Resource is a node of the tree: either a *Folder or an *Item.
type Resource interface {
	DisplayName() string
	SetDisplayName(name string)
	Parent() *Folder
	Manager() *Manager
	// FactoryID is the registry key used to reconstruct this resource
	FactoryID() string
	// Destroy releases external data. It does not change tree membership.
	Destroy() error

	base() *node
}

// node holds the state shared by folders and items. parent and manager are back-references;
// ownership only flows from a folder to its children.
type node struct {
	self        Resource
	displayName string
	parent      *Folder
	manager     *Manager

	DisplayNameChanged Event[Resource]
}

func (n *node) base() *node { return n }

func (n *node) DisplayName() string { return n.displayName }

// SetDisplayName renames the resource and notifies subscribers when the name changed
func (n *node) SetDisplayName(name string) {
	if n.displayName == name {
		return
	}
	n.displayName = name
	n.DisplayNameChanged.emit(n.self)
	if n.manager != nil {
		n.manager.markModified()
	}
}

func (n *node) Parent() *Folder { return n.parent }

func (n *node) Manager() *Manager { return n.manager }

// isRoot is true only for a manager's root folder: attached, yet without a parent
func (n *node) isRoot() bool {
	return n.manager != nil && n.parent == nil
}

// attach propagates m down the subtree rooted at r. Items register with the manager's
// id table after their own manager reference is set.
func attach(r Resource, m *Manager) {
	b := r.base()
	b.manager = m
	switch t := r.(type) {
	case *Folder:
		for _, child := range t.items {
			attach(child, m)
		}
	case *Item:
		m.register(t)
		if obs, ok := t.content.(AttachObserver); ok {
			obs.Attached(t)
		}
	}
}

// detach is the reverse of attach. Items unregister while their manager is still set.
func detach(r Resource) {
	b := r.base()
	switch t := r.(type) {
	case *Folder:
		for _, child := range t.items {
			detach(child)
		}
	case *Item:
		b.manager.unregister(t)
		if obs, ok := t.content.(AttachObserver); ok {
			obs.Detached(t)
		}
	}
	b.manager = nil
}

// Clone produces a detached, independent copy of r, including every child of a folder.
// Items are rebuilt through reg so the copy has the same runtime kind; the copy is offline
// and has no unique id or references.
func Clone(r Resource, reg *Registry) (Resource, error) {
	switch t := r.(type) {
	case *Folder:
		dst := NewFolder(t.displayName)
		for _, child := range t.items {
			c, err := Clone(child, reg)
			if err != nil {
				return nil, err
			}
			// a fresh detached folder cannot reject a detached child
			if err := dst.AddItem(c); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case *Item:
		content, err := reg.CloneContent(t.content)
		if err != nil {
			return nil, err
		}
		return NewItem(t.displayName, content), nil
	default:
		return nil, fmt.Errorf("clone %T: %w", r, domain.ErrValidation)
	}
}

// DestroyAll destroys every resource and joins the failures
func DestroyAll(resources []Resource) error {
	var errs []error
	for _, r := range resources {
		if err := r.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy %q: %w", r.DisplayName(), err))
		}
	}
	return errors.Join(errs...)
}
