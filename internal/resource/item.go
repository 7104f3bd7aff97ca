package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
)

// EmptyID is the unique id of an item that is not registered with a manager
const EmptyID uint64 = 0

// UnlimitedLinks is the link limit of kinds that accept any number of holders
const UnlimitedLinks = -1

// Content is the kind-specific part of an item (an image, a colour, a media file).
type Content interface {
	// Kind is the factory id the content is registered under
	Kind() string
	// Clone returns an independent copy in its offline state
	Clone() Content
	Serialise(data docmodel.Dict)
	Deserialise(data docmodel.Dict) error
}

// Enabler is implemented by content that must acquire external data before the item can go
// online. TryAutoEnable may run off the owner goroutine and must not touch the tree; failures
// are reported to loader, which may be nil.
type Enabler interface {
	TryAutoEnable(ctx context.Context, item *Item, loader *Loader) bool
}

// EntryEnabler retries an enable using the information stored in a loader entry
type EntryEnabler interface {
	TryEnableForEntry(ctx context.Context, item *Item, entry InvalidEntry) bool
}

// Disabler releases external data when an item goes offline
type Disabler interface {
	Release(item *Item) error
}

// Destroyer frees whatever the content still holds once the item is destroyed
type Destroyer interface {
	Destroy() error
}

// LinkLimiter bounds the number of holders an item accepts
type LinkLimiter interface {
	LinkLimit() int
}

// AttachObserver is told when the item joins or leaves a manager
type AttachObserver interface {
	Attached(item *Item)
	Detached(item *Item)
}

// Holder is an external consumer linked to an item, such as a clip. Destroy calls
// ForceUnlink on every holder still present.
type Holder interface {
	ForceUnlink(item *Item)
}

// Item is a leaf resource with an online/offline lifecycle and a bounded set of holders.
type Item struct {
	node
	content       Content
	uniqueID      uint64
	online        bool
	offlineByUser bool
	references    []Holder
	// set by Destroy; read by load hooks off the owner goroutine
	destroyed atomic.Bool

	OnlineStateChanged Event[*Item]
	ReferencesChanged  Event[*Item]
}

// NewItem creates a detached, offline item wrapping content
func NewItem(name string, content Content) *Item {
	it := &Item{content: content}
	it.self = it
	it.displayName = name
	return it
}

func (i *Item) FactoryID() string { return i.content.Kind() }

// Content returns the kind-specific data
func (i *Item) Content() Content { return i.content }

// UniqueID is EmptyID unless the item is registered with a manager (or was just deserialised)
func (i *Item) UniqueID() uint64 { return i.uniqueID }

// SetPresetID asks for id when the item is next registered. A taken id is replaced by a
// fresh one at that point. Registered items keep their id.
func (i *Item) SetPresetID(id uint64) error {
	if i.manager != nil {
		return domain.InvalidState("%q is registered with id %d", i.displayName, i.uniqueID)
	}
	i.uniqueID = id
	return nil
}

func (i *Item) IsOnline() bool { return i.online }

func (i *Item) IsOfflineByUser() bool { return i.offlineByUser }

// IsDestroyed reports whether Destroy has run. A destroyed item never comes online.
func (i *Item) IsDestroyed() bool { return i.destroyed.Load() }

// IsRegistered reports whether the item holds an id in its manager's table
func (i *Item) IsRegistered() bool {
	return i.manager != nil && i.uniqueID != EmptyID
}

// LinkLimit is the maximum number of holders, or UnlimitedLinks
func (i *Item) LinkLimit() int {
	if l, ok := i.content.(LinkLimiter); ok {
		return l.LinkLimit()
	}
	return UnlimitedLinks
}

// References returns a copy of the current holders
func (i *Item) References() []Holder {
	out := make([]Holder, len(i.references))
	copy(out, i.references)
	return out
}

// HasReachedLinkLimit reports whether another holder would exceed the link limit
func (i *Item) HasReachedLinkLimit() bool {
	limit := i.LinkLimit()
	return limit >= 0 && len(i.references) >= limit
}

// AddReference records holder as a consumer of i. Adding a holder twice or exceeding the
// link limit fails without changing anything.
func (i *Item) AddReference(holder Holder) error {
	if holder == nil {
		return domain.InvalidState("holder is nil")
	}
	if i.indexOfHolder(holder) >= 0 {
		return domain.InvalidState("holder already references %q", i.displayName)
	}
	if i.HasReachedLinkLimit() {
		return fmt.Errorf("%q accepts %d link(s): %w", i.displayName, i.LinkLimit(), domain.ErrLinkLimit)
	}
	i.references = append(i.references, holder)
	i.ReferencesChanged.emit(i)
	return nil
}

// RemoveReference drops holder. It fails if holder was never added.
func (i *Item) RemoveReference(holder Holder) error {
	index := i.indexOfHolder(holder)
	if index < 0 {
		return domain.InvalidState("holder does not reference %q", i.displayName)
	}
	i.references = append(i.references[:index], i.references[index+1:]...)
	i.ReferencesChanged.emit(i)
	return nil
}

func (i *Item) indexOfHolder(holder Holder) int {
	for idx, h := range i.references {
		if h == holder {
			return idx
		}
	}
	return -1
}

// Disable takes the item offline, releasing its external data first. No-op when already
// offline. The item goes offline even when the release fails.
func (i *Item) Disable(byUser bool) error {
	if !i.online {
		return nil
	}
	var err error
	if d, ok := i.content.(Disabler); ok {
		err = d.Release(i)
	}
	i.online = false
	i.offlineByUser = byUser
	i.OnlineStateChanged.emit(i)
	return err
}

// TryAutoEnable brings the item online, loading its external data when the content needs
// it. Load failures end up in loader and leave the item offline. A context that is done by
// the time the load finishes discards the result.
func (i *Item) TryAutoEnable(ctx context.Context, loader *Loader) bool {
	if i.online {
		return true
	}
	return i.LoadForEnable(ctx, loader).Commit()
}

// TryEnableForLoaderEntry retries an enable using the details of a reported failure
func (i *Item) TryEnableForLoaderEntry(ctx context.Context, entry InvalidEntry) bool {
	if i.online {
		return true
	}
	if i.IsDestroyed() {
		return false
	}
	if e, ok := i.content.(EntryEnabler); ok {
		if !e.TryEnableForEntry(ctx, i, entry) {
			return false
		}
		if ctx.Err() != nil || i.IsDestroyed() {
			i.discard()
			return false
		}
	}
	i.markOnline()
	return true
}

// Enable forces the item online without loading anything. It is an error to enable an
// online item.
func (i *Item) Enable() error {
	if i.online {
		return domain.InvalidState("%q is already online", i.displayName)
	}
	if i.IsDestroyed() {
		return domain.InvalidState("%q was destroyed", i.displayName)
	}
	i.markOnline()
	return nil
}

// Executor runs fn on the goroutine that owns the tree. Post reports false once the owner
// has stopped accepting work.
type Executor interface {
	Post(fn func()) bool
}

// PendingEnable is a finished load waiting to be published on the owner goroutine
type PendingEnable struct {
	item   *Item
	ctx    context.Context
	loaded bool
}

// LoadForEnable runs the content's load hook without touching the item's state, so it
// may run off the owner goroutine. Exactly one of Commit or Abandon must follow.
func (i *Item) LoadForEnable(ctx context.Context, loader *Loader) PendingEnable {
	return PendingEnable{item: i, ctx: ctx, loaded: i.load(ctx, loader)}
}

// Item returns the item the load ran for
func (p PendingEnable) Item() *Item { return p.item }

// Commit publishes the load result. It must run on the owner goroutine. A context that
// is done by now, or an item destroyed while the load ran, discards the loaded data and
// leaves the item offline.
func (p PendingEnable) Commit() bool {
	i := p.item
	switch {
	case i.online:
		return true
	case !p.loaded:
		return false
	case p.ctx.Err() != nil, i.IsDestroyed():
		i.discard()
		return false
	default:
		i.markOnline()
		return true
	}
}

// Abandon releases whatever the load acquired
func (p PendingEnable) Abandon() {
	if p.loaded {
		p.item.discard()
	}
}

// TryAutoEnableAsync runs the load on a new goroutine and re-enters the owner goroutine
// through exec to publish the result. The channel receives exactly one value. Cancelling
// ctx before the result is published leaves the item offline.
func (i *Item) TryAutoEnableAsync(ctx context.Context, loader *Loader, exec Executor) <-chan bool {
	out := make(chan bool, 1)
	if i.online {
		out <- true
		return out
	}
	go func() {
		pending := i.LoadForEnable(ctx, loader)
		posted := exec.Post(func() {
			out <- pending.Commit()
		})
		if !posted {
			pending.Abandon()
			out <- false
		}
	}()
	return out
}

func (i *Item) load(ctx context.Context, loader *Loader) bool {
	if e, ok := i.content.(Enabler); ok {
		return e.TryAutoEnable(ctx, i, loader)
	}
	return true
}

// discard releases data loaded for a result nobody will see
func (i *Item) discard() {
	if d, ok := i.content.(Disabler); ok {
		_ = d.Release(i)
	}
}

func (i *Item) markOnline() {
	i.online = true
	i.offlineByUser = false
	i.OnlineStateChanged.emit(i)
}

// Destroy takes the item offline, force-unlinks the remaining holders and frees the
// content. Every step runs even when an earlier one fails.
func (i *Item) Destroy() error {
	i.destroyed.Store(true)
	var errs []error
	if err := i.Disable(false); err != nil {
		errs = append(errs, err)
	}
	for _, h := range i.References() {
		h.ForceUnlink(i)
		if idx := i.indexOfHolder(h); idx >= 0 {
			i.references = append(i.references[:idx], i.references[idx+1:]...)
		}
	}
	if d, ok := i.content.(Destroyer); ok {
		if err := d.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
