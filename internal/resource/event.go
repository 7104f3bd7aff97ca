package resource

// Token identifies one subscription to an Event. The zero token is never issued.
type Token uint64

type subscription[T any] struct {
	token Token
	fn    func(T)
}

// Event is an ordered list of handlers. Like the rest of the tree it is not synchronised:
// subscribe, unsubscribe and emit all happen on the owner goroutine.
type Event[T any] struct {
	last     Token
	handlers []subscription[T]
}

// Subscribe registers fn and returns the token that removes it again
func (e *Event[T]) Subscribe(fn func(T)) Token {
	e.last++
	e.handlers = append(e.handlers, subscription[T]{token: e.last, fn: fn})
	return e.last
}

// Unsubscribe removes the handler registered under tok. It reports whether the token was known.
func (e *Event[T]) Unsubscribe(tok Token) bool {
	for i, s := range e.handlers {
		if s.token == tok {
			// copy instead of in-place shift so an emit that is iterating keeps its snapshot
			handlers := make([]subscription[T], 0, len(e.handlers)-1)
			handlers = append(handlers, e.handlers[:i]...)
			e.handlers = append(handlers, e.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers
func (e *Event[T]) Len() int {
	return len(e.handlers)
}

func (e *Event[T]) emit(arg T) {
	for _, s := range e.handlers {
		s.fn(arg)
	}
}

// FolderChange describes an item added to or removed from a folder
type FolderChange struct {
	Folder *Folder
	Item   Resource
	Index  int
}

// ItemMove describes an item relocated by MoveItemTo
type ItemMove struct {
	From     *Folder
	To       *Folder
	Item     Resource
	OldIndex int
	NewIndex int
}

// FolderSwitch is the payload of Manager.CurrentFolderChanged
type FolderSwitch struct {
	Manager *Manager
	Old     *Folder
	New     *Folder
}
