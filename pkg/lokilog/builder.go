package lokilog

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lokiship/lokiship/internal/encoding"
	"github.com/lokiship/lokiship/internal/shipper"
	"github.com/lokiship/lokiship/pkg/filter"
	"github.com/lokiship/lokiship/pkg/types"
)

// DefaultModuleKey is the attribute that names the emitting module.
const DefaultModuleKey = "module"

// InstanceLabel is the label set by Builder.InstanceLabel.
const InstanceLabel = "instance"

// Builder configures a Logger. The zero value is not usable; call NewBuilder.
type Builder struct {
	labels      types.Labels
	filters     filter.Builder
	filter      *filter.Filter
	format      string
	compression string
	tenantID    string
	timeout     time.Duration
	batchSize   int
	client      *http.Client
	diag        *slog.Logger
	moduleKey   string
}

// NewBuilder returns a Builder for uncompressed JSON pushes with an Info
// filter and no static labels.
func NewBuilder() *Builder {
	return &Builder{
		labels:    types.Labels{},
		format:    encoding.FormatJSON,
		moduleKey: DefaultModuleKey,
	}
}

// Label adds a static label. Setting the same key again replaces the value.
// A "level" label is always replaced by the record's severity.
func (b *Builder) Label(key, value string) *Builder {
	b.labels[key] = value
	return b
}

// InstanceLabel adds instance=<random UUID>, distinguishing processes that
// share every other label.
func (b *Builder) InstanceLabel() *Builder {
	return b.Label(InstanceLabel, uuid.NewString())
}

// FilterLevel sets the default severity threshold.
func (b *Builder) FilterLevel(lf filter.LevelFilter) *Builder {
	b.filters.Level(lf)
	return b
}

// FilterModule sets the threshold for module and its sub-modules.
func (b *Builder) FilterModule(module string, lf filter.LevelFilter) *Builder {
	b.filters.Module(module, lf)
	return b
}

// Filter replaces the level and module settings with a prebuilt filter,
// for example one returned by filter.FromEnv.
func (b *Builder) Filter(f *filter.Filter) *Builder {
	b.filter = f
	return b
}

// Format selects json or protobuf.
func (b *Builder) Format(format string) *Builder {
	b.format = format
	return b
}

// Compression selects the body compression. Empty picks the format default.
func (b *Builder) Compression(compression string) *Builder {
	b.compression = compression
	return b
}

// TenantID sets the X-Scope-OrgID header.
func (b *Builder) TenantID(id string) *Builder {
	b.tenantID = id
	return b
}

// Timeout bounds one push request. Ignored when HTTPClient is set.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// BatchSize lets the dispatcher combine up to n already-queued records into
// one request. The default of 1 sends one request per record.
func (b *Builder) BatchSize(n int) *Builder {
	b.batchSize = n
	return b
}

// HTTPClient sets the client used for pushes.
func (b *Builder) HTTPClient(c *http.Client) *Builder {
	b.client = c
	return b
}

// Diagnostics sets where delivery failures are reported. It must not be a
// logger backed by this pipeline. Defaults to text on stderr.
func (b *Builder) Diagnostics(l *slog.Logger) *Builder {
	b.diag = l
	return b
}

// ModuleKey names the record attribute used for per-module filtering.
func (b *Builder) ModuleKey(key string) *Builder {
	b.moduleKey = key
	return b
}

// Build validates the configuration, starts the dispatcher and returns the
// handler together with its Closer. Nothing is started on error.
func (b *Builder) Build(endpoint string) (*Logger, *Closer, error) {
	if _, err := shipper.ValidateEndpoint(endpoint); err != nil {
		return nil, nil, fmt.Errorf("lokilog: %w", err)
	}
	enc, err := encoding.New(b.format, b.compression)
	if err != nil {
		return nil, nil, fmt.Errorf("lokilog: %w", err)
	}
	if err := b.labels.Validate(); err != nil {
		return nil, nil, fmt.Errorf("lokilog: %w", err)
	}
	if b.batchSize < 0 {
		return nil, nil, fmt.Errorf("lokilog: negative batch size %d", b.batchSize)
	}

	client := b.client
	if client == nil {
		timeout := b.timeout
		if timeout <= 0 {
			timeout = shipper.DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	f := b.filter
	if f == nil {
		f = b.filters.Build()
	}

	s, c, err := shipper.Start(shipper.Config{
		Endpoint:    endpoint,
		TenantID:    b.tenantID,
		Labels:      b.labels.Clone(),
		Encoder:     enc,
		Client:      client,
		BatchSize:   b.batchSize,
		Diagnostics: b.diag,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("lokilog: %w", err)
	}

	p := &pipeline{shipper: s, moduleKey: b.moduleKey}
	p.filter.Store(f)
	return &Logger{p: p}, &Closer{c: c}, nil
}

// Closer flushes and stops the pipeline.
type Closer struct {
	c *shipper.Closer
}

// Shutdown blocks until every record logged before the call has been
// handled, then stops the dispatcher. It is idempotent and safe for
// concurrent use; only the first call waits.
func (c *Closer) Shutdown() {
	c.c.Shutdown()
}

func (c *Closer) String() string { return "lokilog.Closer{...}" }
