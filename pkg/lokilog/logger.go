package lokilog

import (
	"context"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/lokiship/lokiship/internal/shipper"
	"github.com/lokiship/lokiship/pkg/filter"
	"github.com/lokiship/lokiship/pkg/types"
)

// Stats is a snapshot of the pipeline counters.
type Stats = shipper.Stats

// pipeline is shared by a Logger and every handler derived from it.
type pipeline struct {
	shipper   *shipper.Shipper
	filter    atomic.Pointer[filter.Filter]
	moduleKey string
}

// Logger is a slog.Handler that ships records to Loki.
type Logger struct {
	p      *pipeline
	meta   map[string]string // from WithAttrs, already group-prefixed
	prefix string            // open groups, "a.b." form
	module string            // set by WithAttrs(module=...)
}

var _ slog.Handler = (*Logger)(nil)

// Slog returns a *slog.Logger backed by l.
func (l *Logger) Slog() *slog.Logger { return slog.New(l) }

// Enabled reports whether a record at level could be shipped. When the
// module is only known from the record itself the most permissive
// directive decides here and Handle re-checks.
func (l *Logger) Enabled(_ context.Context, level slog.Level) bool {
	f := l.p.filter.Load()
	lvl := toLevel(level)
	if l.module != "" {
		return f.Enabled(l.module, lvl)
	}
	return f.Max().Allows(lvl)
}

// Handle converts r into an event and queues it. It never blocks on the
// network and always returns nil.
func (l *Logger) Handle(_ context.Context, r slog.Record) error {
	l.handle(l.module, false, r)
	return nil
}

// Log ships msg for module at level without going through slog. args are
// key/value pairs or slog.Attr values, as for slog.Logger.Log.
func (l *Logger) Log(level types.Level, module, msg string, args ...any) {
	r := slog.NewRecord(time.Now(), fromLevel(level), msg, 0)
	r.Add(args...)
	l.handle(module, true, r)
}

// LogEvent ships a prebuilt event for module, subject to the filter. ev
// must not be modified afterwards.
func (l *Logger) LogEvent(module string, ev *types.Event) {
	if ev == nil || !l.p.filter.Load().Enabled(module, ev.Level) {
		return
	}
	l.p.shipper.Submit(ev)
}

func (l *Logger) handle(module string, fixed bool, r slog.Record) {
	meta := make(map[string]string, len(l.meta)+r.NumAttrs())
	maps.Copy(meta, l.meta)

	var recModule string
	r.Attrs(func(a slog.Attr) bool {
		flatten(meta, l.prefix, a, l.p.moduleKey, &recModule)
		return true
	})
	if !fixed && recModule != "" {
		module = recModule
	}

	lvl := toLevel(r.Level)
	if !l.p.filter.Load().Enabled(module, lvl) {
		return
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	l.p.shipper.Submit(types.NewEventAt(ts, lvl, r.Message, meta))
}

// WithAttrs returns a handler that adds attrs to every record.
func (l *Logger) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return l
	}
	c := l.clone()
	for _, a := range attrs {
		flatten(c.meta, c.prefix, a, c.p.moduleKey, &c.module)
	}
	return c
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (l *Logger) WithGroup(name string) slog.Handler {
	if name == "" {
		return l
	}
	c := l.clone()
	c.prefix += name + "."
	return c
}

// SetFilter swaps the severity filter for this Logger and every handler
// derived from it. A nil filter is ignored.
func (l *Logger) SetFilter(f *filter.Filter) {
	if f == nil {
		return
	}
	l.p.filter.Store(f)
}

// Filter returns the filter currently in effect.
func (l *Logger) Filter() *filter.Filter { return l.p.filter.Load() }

// Stats returns a snapshot of the pipeline counters.
func (l *Logger) Stats() Stats { return l.p.shipper.Stats() }

func (l *Logger) clone() *Logger {
	meta := make(map[string]string, len(l.meta))
	maps.Copy(meta, l.meta)
	return &Logger{
		p:      l.p,
		meta:   meta,
		prefix: l.prefix,
		module: l.module,
	}
}

// flatten writes a into meta, joining group names with dots. A top-level
// attribute named moduleKey also sets *module.
func flatten(meta map[string]string, prefix string, a slog.Attr, moduleKey string, module *string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range attrs {
			flatten(meta, p, ga, moduleKey, module)
		}
		return
	}

	v := valueString(a.Value)
	if prefix == "" && a.Key == moduleKey {
		*module = v
	}
	meta[prefix+a.Key] = v
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindTime {
		return v.Time().Format(time.RFC3339Nano)
	}
	return v.String()
}
