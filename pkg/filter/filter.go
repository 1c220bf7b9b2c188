package filter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lokiship/lokiship/pkg/types"
)

// LevelFilter is a severity threshold. Off disables everything; Trace lets
// every level through.
type LevelFilter int8

const (
	Off LevelFilter = iota
	Error
	Warn
	Info
	Debug
	Trace
)

var filterNames = [...]string{"off", "error", "warn", "info", "debug", "trace"}

func (f LevelFilter) String() string {
	if f < Off || f > Trace {
		return fmt.Sprintf("filter(%d)", int8(f))
	}
	return filterNames[f]
}

// Allows reports whether an event of level lvl passes the threshold.
func (f LevelFilter) Allows(lvl types.Level) bool {
	if f == Off {
		return false
	}
	// Error(1) admits LevelError(4); Trace(5) admits LevelTrace(0).
	return int(lvl) >= int(types.LevelError)-int(f-Error)
}

// ForLevel returns the threshold that admits lvl and everything above it.
func ForLevel(lvl types.Level) LevelFilter {
	return Error + LevelFilter(types.LevelError-lvl)
}

// ParseLevelFilter accepts "off" or any spelling types.ParseLevel accepts.
func ParseLevelFilter(s string) (LevelFilter, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "off") || strings.EqualFold(s, "none") {
		return Off, nil
	}
	lvl, err := types.ParseLevel(s)
	if err != nil {
		return Off, fmt.Errorf("filter: %w", err)
	}
	return ForLevel(lvl), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (f *LevelFilter) UnmarshalText(text []byte) error {
	lf, err := ParseLevelFilter(string(text))
	if err != nil {
		return err
	}
	*f = lf
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f LevelFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

type directive struct {
	module string
	level  LevelFilter
}

// Filter is an immutable severity filter.
type Filter struct {
	def        LevelFilter
	directives []directive // longest module first
}

// New returns a filter with only a default threshold.
func New(def LevelFilter) *Filter {
	return &Filter{def: def}
}

// Default returns the threshold applied to modules without an override.
func (f *Filter) Default() LevelFilter { return f.def }

// Modules returns a copy of the per-module overrides.
func (f *Filter) Modules() map[string]LevelFilter {
	out := make(map[string]LevelFilter, len(f.directives))
	for _, d := range f.directives {
		out[d.module] = d.level
	}
	return out
}

// Max returns the most verbose threshold across the default and all
// overrides, useful for a cheap pre-check before the module is known.
func (f *Filter) Max() LevelFilter {
	max := f.def
	for _, d := range f.directives {
		if d.level > max {
			max = d.level
		}
	}
	return max
}

// Enabled reports whether an event of level lvl from module passes.
func (f *Filter) Enabled(module string, lvl types.Level) bool {
	return f.levelFor(module).Allows(lvl)
}

func (f *Filter) levelFor(module string) LevelFilter {
	if module != "" {
		for _, d := range f.directives {
			if matchModule(d.module, module) {
				return d.level
			}
		}
	}
	return f.def
}

// matchModule reports whether prefix names module or one of its parents.
// "db" matches "db", "db/pool", "db.pool" and "db::pool", but not "dbx".
func matchModule(prefix, module string) bool {
	if !strings.HasPrefix(module, prefix) {
		return false
	}
	if len(module) == len(prefix) {
		return true
	}
	switch module[len(prefix)] {
	case '/', '.', ':':
		return true
	}
	return false
}

// Builder accumulates filter settings. The zero value has an Info default.
type Builder struct {
	def     LevelFilter
	defSet  bool
	modules map[string]LevelFilter
}

// Level sets the default threshold.
func (b *Builder) Level(lf LevelFilter) *Builder {
	b.def = lf
	b.defSet = true
	return b
}

// Module adds or replaces the override for module.
func (b *Builder) Module(module string, lf LevelFilter) *Builder {
	if b.modules == nil {
		b.modules = make(map[string]LevelFilter)
	}
	b.modules[module] = lf
	return b
}

// Build produces the immutable Filter.
func (b *Builder) Build() *Filter {
	f := &Filter{def: Info}
	if b.defSet {
		f.def = b.def
	}
	for m, lf := range b.modules {
		f.directives = append(f.directives, directive{module: m, level: lf})
	}
	sort.Slice(f.directives, func(i, j int) bool {
		a, c := f.directives[i].module, f.directives[j].module
		if len(a) != len(c) {
			return len(a) > len(c)
		}
		return a < c
	})
	return f
}

// Parse reads a directive string such as "warn,db=debug,http=off".
// A bare level sets the default; module=level adds an override; a bare
// module name enables that module at Trace. Later directives win.
func Parse(directives string) (*Filter, error) {
	var b Builder
	for _, part := range strings.Split(directives, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, hasLevel := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !hasLevel {
			if lf, err := ParseLevelFilter(name); err == nil {
				b.Level(lf)
				continue
			}
			b.Module(name, Trace)
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("filter: directive %q has no module", part)
		}
		lf, err := ParseLevelFilter(lvl)
		if err != nil {
			return nil, fmt.Errorf("filter: directive %q: %w", part, err)
		}
		b.Module(name, lf)
	}
	return b.Build(), nil
}

// FromEnv parses the directive string held by the environment variable
// name. An unset or empty variable yields New(Info).
func FromEnv(name string) (*Filter, error) {
	directives := os.Getenv(name)
	if strings.TrimSpace(directives) == "" {
		return New(Info), nil
	}
	f, err := Parse(directives)
	if err != nil {
		return nil, fmt.Errorf("filter: %s: %w", name, err)
	}
	return f, nil
}
