package resource

import (
	"errors"
	"fmt"

	"framekit/internal/domain"
)

// LinkState describes how a Link relates to its target id
type LinkState uint8

const (
	NotLinked LinkState = iota
	Linked
	NoSuchResource
	IncompatibleResource
	LimitReached
)

func (s LinkState) String() string {
	switch s {
	case NotLinked:
		return "not_linked"
	case Linked:
		return "linked"
	case NoSuchResource:
		return "no_such_resource"
	case IncompatibleResource:
		return "incompatible_resource"
	case LimitReached:
		return "limit_reached"
	}
	return fmt.Sprintf("LinkState(%d)", uint8(s))
}

// Link is a consumer-side binding to an item by unique id. While linked it counts as
// exactly one reference on the item. It follows the manager's add/remove notifications so
// an item that comes back (e.g. after an undo re-attaches it) is picked up again.
type Link struct {
	resourceID uint64
	manager    *Manager
	item       *Item
	state      LinkState
	accept     func(*Item) bool
	disposed   bool

	addedTok, removedTok, onlineTok Token

	// ResourceChanged fires with the link after it gained or lost its item
	ResourceChanged Event[*Link]
	// OnlineStateChanged relays the linked item's notifications
	OnlineStateChanged Event[*Item]
}

// NewLink creates an unlinked binding to id. accept restricts the kinds the link may bind
// to; nil accepts every item.
func NewLink(id uint64, accept func(*Item) bool) (*Link, error) {
	if id == EmptyID {
		return nil, &domain.ValidationError{Message: "resource id cannot be zero"}
	}
	return &Link{resourceID: id, accept: accept}, nil
}

// AcceptKinds builds an accept function for NewLink
func AcceptKinds(kinds ...string) func(*Item) bool {
	return func(item *Item) bool {
		for _, k := range kinds {
			if item.FactoryID() == k {
				return true
			}
		}
		return false
	}
}

func (l *Link) ResourceID() uint64 { return l.resourceID }
func (l *Link) State() LinkState   { return l.state }
func (l *Link) Manager() *Manager  { return l.manager }

// Item is the linked item, nil unless State is Linked
func (l *Link) Item() *Item { return l.item }

// SetManager moves the link to another manager, dropping the current binding
func (l *Link) SetManager(m *Manager) error {
	if l.disposed {
		return domain.InvalidState("link is disposed")
	}
	if l.manager == m {
		return nil
	}
	if old := l.manager; old != nil {
		old.ResourceAdded.Unsubscribe(l.addedTok)
		old.ResourceRemoved.Unsubscribe(l.removedTok)
	}
	l.setItem(nil)
	l.state = NotLinked
	l.manager = m
	if m != nil {
		l.addedTok = m.ResourceAdded.Subscribe(l.onResourceAdded)
		l.removedTok = m.ResourceRemoved.Subscribe(l.onResourceRemoved)
	}
	return nil
}

// SetResourceID retargets the link, optionally linking right away
func (l *Link) SetResourceID(id uint64, autoLink bool) error {
	if l.disposed {
		return domain.InvalidState("link is disposed")
	}
	if id == EmptyID {
		return &domain.ValidationError{Message: "resource id cannot be zero"}
	}
	if id == l.resourceID {
		return nil
	}
	l.setItem(nil)
	l.state = NotLinked
	l.resourceID = id
	if autoLink {
		l.TryLink(false)
	}
	return nil
}

// TryLink resolves the target through the manager. It reports whether the link is bound
// (and, with requireOnline, whether the item is online). A failed resolution is remembered
// in State until the id or manager changes.
func (l *Link) TryLink(requireOnline bool) bool {
	if l.disposed {
		return false
	}
	switch l.state {
	case Linked:
		return l.item.online || !requireOnline
	case NotLinked:
		if l.manager == nil {
			return false
		}
		item, ok, err := l.manager.TryGetEntry(l.resourceID)
		if err != nil || !ok {
			l.state = NoSuchResource
			return false
		}
		if l.accept != nil && !l.accept(item) {
			l.state = IncompatibleResource
			return false
		}
		if err := l.setItem(item); err != nil {
			if errors.Is(err, domain.ErrLinkLimit) {
				l.state = LimitReached
			}
			return false
		}
		return item.online || !requireOnline
	default:
		return false
	}
}

// TryGet returns the linked item, linking first if needed
func (l *Link) TryGet(requireOnline bool) (*Item, bool) {
	if !l.TryLink(requireOnline) {
		return nil, false
	}
	return l.item, true
}

// Unlink drops the current binding and resets the state
func (l *Link) Unlink() {
	l.setItem(nil)
	l.state = NotLinked
}

// ForceUnlink is called by the item when it is destroyed
func (l *Link) ForceUnlink(item *Item) {
	if l.item == item {
		l.Unlink()
	}
}

// Dispose unlinks and detaches from the manager; the link cannot be used afterwards
func (l *Link) Dispose() {
	if l.disposed {
		return
	}
	_ = l.SetManager(nil)
	l.disposed = true
}

func (l *Link) setItem(item *Item) error {
	old := l.item
	if old == item {
		return nil
	}
	if old != nil {
		old.OnlineStateChanged.Unsubscribe(l.onlineTok)
		_ = old.RemoveReference(l)
		l.item = nil
		l.state = NotLinked
	}
	if item != nil {
		if err := item.AddReference(l); err != nil {
			l.ResourceChanged.emit(l)
			return err
		}
		l.item = item
		l.state = Linked
		l.onlineTok = item.OnlineStateChanged.Subscribe(l.OnlineStateChanged.emit)
	}
	l.ResourceChanged.emit(l)
	return nil
}

func (l *Link) onResourceAdded(item *Item) {
	if item.uniqueID != l.resourceID || l.state == Linked {
		return
	}
	if l.accept != nil && !l.accept(item) {
		l.state = IncompatibleResource
		return
	}
	if err := l.setItem(item); err != nil && errors.Is(err, domain.ErrLinkLimit) {
		l.state = LimitReached
	}
}

func (l *Link) onResourceRemoved(item *Item) {
	if item == l.item {
		l.setItem(nil)
		l.state = NotLinked
	}
}
