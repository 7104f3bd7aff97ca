package resources

import (
	"context"
	"log/slog"
	"sync"

	"framekit/internal/resource"
)

// session owns the resource tree of one open project. Every read and write of the tree
// runs on the session's owner goroutine; other goroutines hand work over with Post or
// call.
type session struct {
	projectID string
	manager   *resource.Manager
	loader    *resource.Loader
	logger    *slog.Logger

	work      chan func()
	done      chan struct{}
	closeOnce sync.Once

	// ctx bounds background loads and is cancelled on close
	ctx    context.Context
	cancel context.CancelFunc

	// owner goroutine only
	version      uint64
	savedVersion uint64
	opening      <-chan loadReport
}

func newSession(projectID string, manager *resource.Manager, logger *slog.Logger) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		projectID: projectID,
		manager:   manager,
		loader:    resource.NewLoader(),
		logger:    logger.With("project_id", projectID),
		work:      make(chan func(), 64),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	manager.Modified.Subscribe(func(*resource.Manager) { s.version++ })
	go s.run()
	return s
}

func (s *session) run() {
	for {
		select {
		case fn := <-s.work:
			s.exec(fn)
		case <-s.done:
			return
		}
	}
}

func (s *session) exec(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("session task panicked, closing session", "panic", p)
			s.close()
		}
	}()
	fn()
}

// Post queues fn for the owner goroutine. It reports false once the session is closed.
func (s *session) Post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.work <- fn:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
}

func (s *session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// modified reports unsaved changes. Owner goroutine only.
func (s *session) modified() bool {
	return s.version != s.savedVersion
}

// touchIf records a change the manager does not report itself, such as an item going
// offline by the user. Owner goroutine only.
func (s *session) touchIf(changed bool) {
	if changed {
		s.version++
	}
}

func (s *session) closedError() error {
	return notOpen(s.projectID)
}

type callResult[T any] struct {
	value    T
	err      error
	panicked any
}

// call runs fn on the owner goroutine and waits for its result. A panic inside fn closes
// the session and is raised again on the calling goroutine. When ctx ends first, fn may
// still run later.
func call[T any](ctx context.Context, s *session, fn func() (T, error)) (T, error) {
	var zero T
	ch := make(chan callResult[T], 1)
	posted := s.Post(func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- callResult[T]{panicked: p}
				s.close()
			}
		}()
		v, err := fn()
		ch <- callResult[T]{value: v, err: err}
	})
	if !posted {
		return zero, s.closedError()
	}

	select {
	case r := <-ch:
		if r.panicked != nil {
			panic(r.panicked)
		}
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		select {
		case r := <-ch:
			if r.panicked != nil {
				panic(r.panicked)
			}
			return r.value, r.err
		default:
			return zero, s.closedError()
		}
	}
}
