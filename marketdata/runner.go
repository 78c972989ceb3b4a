package marketdata

import (
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// runner drives a component loop in its own goroutine.
// The stopping flag is the only signal crossing goroutines besides the queues.
type runner struct {
	running  atomic.Bool
	stopping atomic.Bool
	done     chan struct{}
	err      atomic.Pointer[error]
}

func newRunner() runner {
	return runner{done: make(chan struct{})}
}

func (r *runner) start(loop func() error) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = r.loop(loop)
	}()
	return nil
}

func (r *runner) run(loop func() error) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return r.loop(loop)
}

func (r *runner) loop(loop func() error) error {
	defer close(r.done)
	err := loop()
	if err != nil {
		r.err.Store(&err)
	}
	return err
}

func (r *runner) stop() error {
	r.stopping.Store(true)
	if r.running.Load() {
		<-r.done
	}
	return r.error()
}

func (r *runner) error() error {
	if err := r.err.Load(); err != nil {
		return *err
	}
	return nil
}

// push writes v to the queue waiting for a free slot until the runner is stopping.
// It returns false if v was dropped.
func push[T any](r *runner, q *ring.Queue[T], v T, wait, dropped prometheus.Counter) bool {
	slot := q.NextToWrite()
	if slot == nil {
		wait.Inc()
		for slot == nil {
			if r.stopping.Load() {
				dropped.Inc()
				return false
			}
			runtime.Gosched()
			slot = q.NextToWrite()
		}
	}
	*slot = v
	q.CommitWrite()
	return true
}
