package shipper

import "sync/atomic"

// Stats is a point-in-time view of the pipeline counters. Counts are
// events unless noted.
type Stats struct {
	Submitted int64 // accepted by Submit
	Dropped   int64 // discarded because the dispatcher had stopped
	Delivered int64 // acknowledged with a 2xx
	Failed    int64 // dropped after a failed request
	Requests  int64 // HTTP requests issued
	Queued    int64 // waiting in the queue right now
}

type counters struct {
	submitted atomic.Int64
	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	requests  atomic.Int64
}

func (c *counters) snapshot(queued int) Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Dropped:   c.dropped.Load(),
		Delivered: c.delivered.Load(),
		Failed:    c.failed.Load(),
		Requests:  c.requests.Load(),
		Queued:    int64(queued),
	}
}
