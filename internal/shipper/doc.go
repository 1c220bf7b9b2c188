// Package shipper is the asynchronous delivery pipeline between log call
// sites and a Loki push endpoint.
//
// Submit is non-blocking: events are appended to an unbounded queue and
// return immediately, whatever the state of the endpoint. A single
// dispatcher goroutine drains the queue in FIFO order, resolves the stream
// labels for each event, encodes a push request and POSTs it, one request in
// flight at a time. A failed delivery (network error or non-2xx status) is
// logged on the diagnostic logger and the events are dropped; there is no
// retry and no re-enqueue.
//
// Shutdown travels through the same queue as a sentinel message, so every
// event enqueued before it is delivered first. Closer.Shutdown may be called
// any number of times from any goroutine (main, signal handling, panic
// recovery); exactly one caller waits for the dispatcher to exit, the others
// return immediately. Events submitted after the dispatcher has exited are
// discarded silently.
//
// With BatchSize > 1 the dispatcher also takes up to BatchSize-1 further
// events that are already queued and sends them in the same request,
// grouped into one stream per label set.
package shipper
