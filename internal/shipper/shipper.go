package shipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"runtime/debug"
	"time"

	"github.com/lokiship/lokiship/internal/encoding"
	"github.com/lokiship/lokiship/pkg/types"
)

const (
	// DefaultTimeout bounds one push request when no HTTP client is supplied.
	DefaultTimeout = 10 * time.Second

	// DefaultBatchSize keeps the baseline one-event-per-request shape.
	DefaultBatchSize = 1

	// TenantHeader carries the tenant ID for multi-tenant Loki setups.
	TenantHeader = "X-Scope-OrgID"

	// errorBodyLimit caps how much of a failed response is quoted in logs.
	errorBodyLimit = 1024
)

// ErrInvalidEndpoint is returned by Start for a malformed push URL.
var ErrInvalidEndpoint = errors.New("shipper: invalid endpoint")

// Config configures a pipeline. Only Endpoint is required.
type Config struct {
	// Endpoint is the Loki push URL, e.g. http://localhost:3100/loki/api/v1/push.
	Endpoint string

	// TenantID is sent as X-Scope-OrgID when set.
	TenantID string

	// Labels are static labels attached to every stream. A "level" entry is
	// overridden per event.
	Labels types.Labels

	// Encoder builds request bodies. Defaults to uncompressed JSON.
	Encoder encoding.Encoder

	// Client performs the POSTs. Defaults to a client with DefaultTimeout.
	Client *http.Client

	// BatchSize is the maximum number of already-queued events sent in one
	// request. Values below 1 mean 1.
	BatchSize int

	// Diagnostics receives delivery failures and crash reports. It must not
	// feed back into this pipeline. Defaults to a text logger on stderr.
	Diagnostics *slog.Logger
}

// Shipper is the producer-facing side of the pipeline. Submit is safe for
// concurrent use.
type Shipper struct {
	endpoint  string
	tenantID  string
	client    *http.Client
	enc       encoding.Encoder
	labels    *labelResolver
	batchSize int
	diag      *slog.Logger
	queue     *queue
	stats     counters
}

// handle is the join handle of the dispatcher goroutine. err is written
// before done is closed.
type handle struct {
	done chan struct{}
	err  error
}

// ValidateEndpoint checks that raw is an absolute http or https URL.
func ValidateEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q is not http or https", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidEndpoint, raw)
	}
	return u, nil
}

// Start validates cfg, starts the dispatcher goroutine and returns the
// submit side together with its Closer. Nothing is started on error.
func Start(cfg Config) (*Shipper, *Closer, error) {
	u, err := ValidateEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, nil, err
	}

	s := &Shipper{
		endpoint:  u.String(),
		tenantID:  cfg.TenantID,
		client:    cfg.Client,
		enc:       cfg.Encoder,
		labels:    newLabelResolver(cfg.Labels),
		batchSize: cfg.BatchSize,
		diag:      cfg.Diagnostics,
		queue:     newQueue(),
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultTimeout}
	}
	if s.enc == nil {
		if s.enc, err = encoding.New(encoding.FormatJSON, encoding.CompressionNone); err != nil {
			return nil, nil, err
		}
	}
	if s.batchSize < 1 {
		s.batchSize = DefaultBatchSize
	}
	if s.diag == nil {
		s.diag = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	h := &handle{done: make(chan struct{})}
	go s.run(h)

	return s, &Closer{handle: h, queue: s.queue, diag: s.diag}, nil
}

// Submit hands ev to the dispatcher. It never blocks on delivery and never
// fails; after shutdown the event is discarded. ev must not be modified
// afterwards.
func (s *Shipper) Submit(ev *types.Event) {
	if ev == nil {
		return
	}
	if !s.queue.push(message{event: ev}) {
		s.stats.dropped.Add(1)
		return
	}
	s.stats.submitted.Add(1)
}

// Stats returns a snapshot of the pipeline counters.
func (s *Shipper) Stats() Stats {
	return s.stats.snapshot(s.queue.len())
}

// run is the dispatcher loop. It returns after the shutdown sentinel or a
// panic, closing the queue on the way out.
func (s *Shipper) run(h *handle) {
	defer close(h.done)
	defer func() {
		if n := s.queue.close(); n > 0 {
			s.stats.dropped.Add(int64(n))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			h.err = fmt.Errorf("shipper: dispatcher panic: %v\n%s", r, debug.Stack())
		}
	}()

	batch := make([]*types.Event, 0, s.batchSize)
	for {
		msg := s.queue.pop()
		if msg.shutdown {
			return
		}
		batch = append(batch[:0], msg.event)

		stop := false
		for len(batch) < s.batchSize {
			next, ok := s.queue.tryPop()
			if !ok {
				break
			}
			if next.shutdown {
				stop = true
				break
			}
			batch = append(batch, next.event)
		}

		s.deliver(batch)
		clear(batch)
		if stop {
			return
		}
	}
}

// deliver sends one request for events. Failures are logged and the events
// dropped.
func (s *Shipper) deliver(events []*types.Event) {
	n := int64(len(events))
	if err := s.send(buildRequest(events, s.labels)); err != nil {
		s.stats.failed.Add(n)
		s.diag.Error("shipper: delivery failed, dropping events",
			"endpoint", s.endpoint,
			"events", n,
			"err", err)
		return
	}
	s.stats.delivered.Add(n)
	s.diag.Debug("shipper: delivered", "events", n)
}

func (s *Shipper) send(req *encoding.PushRequest) error {
	payload, err := s.enc.Encode(req)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	// No cancellation: an in-flight push always runs to completion, also
	// during shutdown. The client timeout is the only bound.
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(payload.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", payload.ContentType)
	if payload.ContentEncoding != "" {
		httpReq.Header.Set("Content-Encoding", payload.ContentEncoding)
	}
	if s.tenantID != "" {
		httpReq.Header.Set(TenantHeader, s.tenantID)
	}

	s.stats.requests.Add(1)
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
