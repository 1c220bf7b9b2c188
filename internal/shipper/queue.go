package shipper

import (
	"sync"

	"github.com/lokiship/lokiship/pkg/types"
)

// message is the unit carried by the queue: an event, or the shutdown
// sentinel.
type message struct {
	event    *types.Event
	shutdown bool
}

// compactAfter bounds how many consumed slots the queue keeps before it
// moves the live tail to the front of the slice.
const compactAfter = 4096

// queue is an unbounded multi-producer single-consumer FIFO. push never
// waits on the consumer; pop blocks until a message is available.
type queue struct {
	mu     sync.Mutex
	items  []message
	head   int
	closed bool
	ready  chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// push appends m and reports false if the queue has been closed.
func (q *queue) push(m message) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// tryPop removes the oldest message without blocking.
func (q *queue) tryPop() (message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return message{}, false
	}
	m := q.items[q.head]
	q.items[q.head] = message{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactAfter && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return m, true
}

// pop blocks until a message is available. Only the dispatcher calls it.
func (q *queue) pop() message {
	for {
		if m, ok := q.tryPop(); ok {
			return m
		}
		<-q.ready
	}
}

// len returns the number of queued messages.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// close rejects further pushes and discards whatever is still queued,
// returning the number of discarded events.
func (q *queue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	var dropped int
	for _, m := range q.items[q.head:] {
		if m.event != nil {
			dropped++
		}
	}
	q.items = nil
	q.head = 0
	return dropped
}
