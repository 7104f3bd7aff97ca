package resources

import (
	"context"
	"sync/atomic"
	"time"

	"framekit/internal/resource"

	"golang.org/x/sync/errgroup"
)

// autoLoader brings items online with a bounded number of concurrent loads, each batch
// limited by a timeout.
type autoLoader struct {
	timeout time.Duration
	limit   int
}

type loadReport struct {
	Enabled int
	Failed  int
	Err     error
}

// loadNow returns a LoadFunc for the owner goroutine. The owner waits while the loads
// run on worker goroutines and publishes the results itself afterwards. When the batch
// times out or is cancelled nothing is published, the loaded data is released and the
// items' load errors are dropped.
func (a *autoLoader) loadNow(s *session) resource.LoadFunc {
	return func(ctx context.Context, items []*resource.Item) error {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		pending := make([]resource.PendingEnable, len(items))
		started := make([]bool, len(items))
		g := new(errgroup.Group)
		g.SetLimit(a.limit)
		for i, item := range items {
			if item.IsOnline() {
				continue
			}
			started[i] = true
			g.Go(func() error {
				pending[i] = item.LoadForEnable(ctx, s.loader)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			for i, p := range pending {
				if started[i] {
					p.Abandon()
				}
				s.loader.RemoveItem(items[i])
			}
			return err
		}
		for i, p := range pending {
			if started[i] {
				p.Commit()
			}
		}
		return nil
	}
}

// loadInBackground starts loading items without blocking the owner goroutine. Each
// result is published through the session. The returned channel yields one report
// when the batch is over.
func (a *autoLoader) loadInBackground(s *session, items []*resource.Item) <-chan loadReport {
	out := make(chan loadReport, 1)
	if len(items) == 0 {
		out <- loadReport{}
		return out
	}

	ctx, cancel := context.WithTimeout(s.ctx, a.timeout)
	go func() {
		defer cancel()
		var enabled, failed atomic.Int64

		g := new(errgroup.Group)
		g.SetLimit(a.limit)
		for _, item := range items {
			g.Go(func() error {
				if publish(s, item.LoadForEnable(ctx, s.loader)) {
					enabled.Add(1)
				} else {
					failed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		report := loadReport{
			Enabled: int(enabled.Load()),
			Failed:  int(failed.Load()),
			Err:     ctx.Err(),
		}
		s.logger.Info("background load finished",
			"enabled", report.Enabled,
			"failed", report.Failed,
			"error", report.Err,
		)
		out <- report
	}()
	return out
}

// publish commits pending on the owner goroutine. If the session closes first the
// loaded data is released instead. A commit that panics counts as a failure.
func publish(s *session, pending resource.PendingEnable) bool {
	var claimed atomic.Bool
	result := make(chan bool, 1)
	posted := s.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		ok := false
		// sent even when Commit panics; the session closes and the caller must not hang
		defer func() { result <- ok }()
		ok = pending.Commit()
	})
	if !posted {
		pending.Abandon()
		return false
	}
	select {
	case ok := <-result:
		return ok
	case <-s.done:
		if claimed.CompareAndSwap(false, true) {
			pending.Abandon()
			return false
		}
		return <-result
	}
}
