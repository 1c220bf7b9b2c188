package shipper

import (
	"github.com/lokiship/lokiship/internal/encoding"
	"github.com/lokiship/lokiship/pkg/types"
)

// buildRequest converts dequeued events into a push request with one
// stream per distinct label set. Streams appear in order of first use and
// entries keep their dequeue order.
func buildRequest(events []*types.Event, labels *labelResolver) *encoding.PushRequest {
	req := &encoding.PushRequest{}
	var index [len(types.Levels)]int
	for i := range index {
		index[i] = -1
	}

	for _, ev := range events {
		if !ev.Level.Valid() {
			req.Streams = append(req.Streams, encoding.Stream{
				Labels:  labels.resolve(ev.Level),
				Entries: []encoding.Entry{encoding.EntryFromEvent(ev)},
			})
			continue
		}
		i := index[ev.Level]
		if i < 0 {
			i = len(req.Streams)
			index[ev.Level] = i
			req.Streams = append(req.Streams, encoding.Stream{Labels: labels.resolve(ev.Level)})
		}
		req.Streams[i].Entries = append(req.Streams[i].Entries, encoding.EntryFromEvent(ev))
	}
	return req
}
