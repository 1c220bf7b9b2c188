package metrics

import (
	"bytes"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/lokiship/lokiship/internal/shipper"
)

type fixedSource shipper.Stats

func (f fixedSource) Stats() shipper.Stats { return shipper.Stats(f) }

func TestWrite_RoundTrip(t *testing.T) {
	src := fixedSource{Submitted: 10, Dropped: 1, Delivered: 7, Failed: 2, Requests: 9, Queued: 1}

	var buf bytes.Buffer
	if err := Write(&buf, src, map[string]string{"endpoint": "loki:3100"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mfs := parse(t, buf.String())
	tests := []struct {
		name string
		typ  dto.MetricType
		want float64
	}{
		{Submitted, dto.MetricType_COUNTER, 10},
		{Dropped, dto.MetricType_COUNTER, 1},
		{Delivered, dto.MetricType_COUNTER, 7},
		{Failed, dto.MetricType_COUNTER, 2},
		{Requests, dto.MetricType_COUNTER, 9},
		{QueueDepth, dto.MetricType_GAUGE, 1},
	}
	for _, tc := range tests {
		mf, ok := mfs[tc.name]
		if !ok {
			t.Errorf("%s: missing from output", tc.name)
			continue
		}
		if mf.GetType() != tc.typ {
			t.Errorf("%s: type %v, want %v", tc.name, mf.GetType(), tc.typ)
		}
		if got := sumFamily(mf); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		lbl := mf.GetMetric()[0].GetLabel()
		if len(lbl) != 1 || lbl[0].GetName() != "endpoint" || lbl[0].GetValue() != "loki:3100" {
			t.Errorf("%s: labels %v", tc.name, lbl)
		}
	}
}

func TestFamilies_NoLabels(t *testing.T) {
	for _, mf := range Families(shipper.Stats{}, nil) {
		if n := len(mf.GetMetric()[0].GetLabel()); n != 0 {
			t.Errorf("%s: got %d labels, want 0", mf.GetName(), n)
		}
		if !strings.HasPrefix(mf.GetName(), "lokiship_") {
			t.Errorf("unexpected metric name %q", mf.GetName())
		}
	}
}

func TestContentType(t *testing.T) {
	if !strings.HasPrefix(ContentType, "text/plain") {
		t.Errorf("ContentType: got %q", ContentType)
	}
}

func parse(t *testing.T, text string) map[string]*dto.MetricFamily {
	t.Helper()
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, text)
	}
	return mfs
}

// sumFamily adds up all counter and gauge values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		}
	}
	return total
}
