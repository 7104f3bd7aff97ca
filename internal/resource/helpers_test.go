package resource

import (
	"context"
	"errors"

	"framekit/internal/docmodel"
)

const testKind = "t_probe"

// probe is test content that counts lifecycle hooks
type probe struct {
	Label      string
	limit      int
	failLoad   bool
	destroyErr error

	attached  int
	detached  int
	loads     int
	released  int
	destroyed int
}

func newProbe() *probe { return &probe{limit: UnlimitedLinks} }

func (p *probe) Kind() string   { return testKind }
func (p *probe) LinkLimit() int { return p.limit }

func (p *probe) Clone() Content {
	return &probe{Label: p.Label, limit: p.limit, failLoad: p.failLoad}
}

func (p *probe) Serialise(data docmodel.Dict) {
	if p.Label != "" {
		data.SetString("Label", p.Label)
	}
}

func (p *probe) Deserialise(data docmodel.Dict) error {
	p.Label = data.GetString("Label", "")
	return nil
}

func (p *probe) Attached(*Item) { p.attached++ }
func (p *probe) Detached(*Item) { p.detached++ }

func (p *probe) TryAutoEnable(ctx context.Context, item *Item, loader *Loader) bool {
	p.loads++
	if p.failLoad {
		loader.Add(InvalidEntry{Item: item, Reason: "probe failed", Err: errors.New("boom")})
		return false
	}
	return true
}

func (p *probe) Release(*Item) error {
	p.released++
	return nil
}

func (p *probe) Destroy() error {
	p.destroyed++
	return p.destroyErr
}

func testRegistry() *Registry {
	r := DefaultRegistry()
	r.MustRegister(testKind, func() Content { return newProbe() })
	return r
}

func newProbeItem(name string) (*Item, *probe) {
	p := newProbe()
	return NewItem(name, p), p
}

// holder is a minimal Holder
type holder struct {
	name     string
	unlinked int
}

func (h *holder) ForceUnlink(*Item) { h.unlinked++ }

// syncExecutor runs posted work on a dedicated goroutine, like a session owner loop
type syncExecutor struct {
	work chan func()
	done chan struct{}
}

func newSyncExecutor() *syncExecutor {
	e := &syncExecutor{work: make(chan func()), done: make(chan struct{})}
	go func() {
		for {
			select {
			case fn := <-e.work:
				fn()
			case <-e.done:
				return
			}
		}
	}()
	return e
}

func (e *syncExecutor) Post(fn func()) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.work <- fn:
		return true
	case <-e.done:
		return false
	}
}

// Do runs fn on the executor goroutine and waits for it
func (e *syncExecutor) Do(fn func()) {
	finished := make(chan struct{})
	e.Post(func() {
		fn()
		close(finished)
	})
	<-finished
}

func (e *syncExecutor) Close() { close(e.done) }
