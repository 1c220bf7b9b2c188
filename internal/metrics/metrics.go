package metrics

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/lokiship/lokiship/internal/shipper"
)

// Metric names.
const (
	Submitted  = "lokiship_events_submitted_total"
	Dropped    = "lokiship_events_dropped_total"
	Delivered  = "lokiship_events_delivered_total"
	Failed     = "lokiship_events_failed_total"
	Requests   = "lokiship_requests_total"
	QueueDepth = "lokiship_queue_depth"
)

// ContentType is the Content-Type of Write's output.
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Source is anything that can report pipeline counters.
type Source interface {
	Stats() shipper.Stats
}

// Families converts st into metric families. labels are attached to every
// sample, in sorted key order.
func Families(st shipper.Stats, labels map[string]string) []*dto.MetricFamily {
	pairs := labelPairs(labels)
	return []*dto.MetricFamily{
		counter(Submitted, "Events accepted by the pipeline queue.", st.Submitted, pairs),
		counter(Dropped, "Events discarded because the pipeline had shut down.", st.Dropped, pairs),
		counter(Delivered, "Events acknowledged by Loki with a 2xx status.", st.Delivered, pairs),
		counter(Failed, "Events lost to failed push requests.", st.Failed, pairs),
		counter(Requests, "Push requests sent to Loki.", st.Requests, pairs),
		gauge(QueueDepth, "Events waiting for the dispatcher.", st.Queued, pairs),
	}
}

// Write encodes the families for src in the text exposition format.
func Write(w io.Writer, src Source, labels map[string]string) error {
	for _, mf := range Families(src.Stats(), labels) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func counter(name, help string, v int64, pairs []*dto.LabelPair) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Label:   pairs,
			Counter: &dto.Counter{Value: proto.Float64(float64(v))},
		}},
	}
}

func gauge(name, help string, v int64, pairs []*dto.LabelPair) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Label: pairs,
			Gauge: &dto.Gauge{Value: proto.Float64(float64(v))},
		}},
	}
}

func labelPairs(labels map[string]string) []*dto.LabelPair {
	if len(labels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]*dto.LabelPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(k), Value: proto.String(labels[k])})
	}
	return pairs
}
