package shipper

import (
	"sync"
	"testing"
	"time"

	"github.com/lokiship/lokiship/pkg/types"
)

func eventMsg(msg string) message {
	return message{event: types.NewEvent(types.LevelInfo, msg, nil)}
}

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()
	for _, m := range []string{"a", "b", "c"} {
		if !q.push(eventMsg(m)) {
			t.Fatalf("push(%s) rejected", m)
		}
	}
	if q.len() != 3 {
		t.Fatalf("len = %d, want 3", q.len())
	}
	for _, want := range []string{"a", "b", "c"} {
		if got := q.pop().event.Message; got != want {
			t.Errorf("pop = %q, want %q", got, want)
		}
	}
	if _, ok := q.tryPop(); ok {
		t.Error("tryPop on empty queue returned a message")
	}
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := newQueue()
	got := make(chan message, 1)
	go func() { got <- q.pop() }()

	select {
	case <-got:
		t.Fatal("pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.push(message{shutdown: true})
	select {
	case m := <-got:
		if !m.shutdown {
			t.Errorf("pop = %+v, want the shutdown sentinel", m)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestQueue_CloseRejectsAndCountsDropped(t *testing.T) {
	q := newQueue()
	q.push(eventMsg("x"))
	q.push(eventMsg("y"))
	q.push(message{shutdown: true})

	if n := q.close(); n != 2 {
		t.Errorf("close dropped %d events, want 2", n)
	}
	if q.push(eventMsg("z")) {
		t.Error("push after close succeeded")
	}
	if q.len() != 0 {
		t.Errorf("len after close = %d", q.len())
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := newQueue()
	const producers, each = 8, 1000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.push(eventMsg("m"))
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		for received < producers*each {
			q.pop()
			received++
		}
		close(done)
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer stalled after %d messages", received)
	}
}

func TestQueue_CompactionKeepsOrder(t *testing.T) {
	q := newQueue()
	const n = compactAfter * 3
	for i := 0; i < n; i++ {
		q.push(message{event: &types.Event{Message: string(rune('a' + i%26))}})
	}
	for i := 0; i < n; i++ {
		// Keep the queue non-empty so compaction, not reset, reclaims space.
		if i%2 == 0 {
			q.push(message{event: &types.Event{Message: "tail"}})
		}
		m, ok := q.tryPop()
		if !ok {
			t.Fatalf("queue empty at %d", i)
		}
		if want := string(rune('a' + i%26)); m.event.Message != want {
			t.Fatalf("message %d = %q, want %q", i, m.event.Message, want)
		}
	}
	if q.len() != n/2 {
		t.Errorf("len = %d, want %d", q.len(), n/2)
	}
}
