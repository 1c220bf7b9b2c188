package shipper

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer stops the dispatcher. Shutdown is idempotent and safe to call
// concurrently, so the same Closer can be wired to the normal exit path, a
// signal handler and a panic recovery.
type Closer struct {
	mu     sync.Mutex
	handle *handle // nil once a caller has taken it

	queue *queue
	diag  *slog.Logger
	joins atomic.Int32
}

// Shutdown sends the shutdown sentinel and blocks until every event queued
// before it has been handled and the dispatcher has exited. Only the first
// caller waits; later or concurrent callers return immediately. A crashed
// dispatcher is reported on the diagnostic logger, never to the caller.
func (c *Closer) Shutdown() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	if h == nil {
		return
	}

	// Fails harmlessly if the dispatcher already died and closed the queue.
	c.queue.push(message{shutdown: true})

	c.joins.Add(1)
	<-h.done
	if h.err != nil {
		c.diag.Error("shipper: dispatcher crashed", "err", h.err)
	}
}

// String keeps queue internals out of %v output.
func (c *Closer) String() string { return "shipper.Closer{...}" }
