package filter

import (
	"testing"

	"github.com/lokiship/lokiship/pkg/types"
)

func TestLevelFilter_Allows(t *testing.T) {
	tests := []struct {
		filter LevelFilter
		level  types.Level
		want   bool
	}{
		{Off, types.LevelError, false},
		{Error, types.LevelError, true},
		{Error, types.LevelWarn, false},
		{Warn, types.LevelWarn, true},
		{Warn, types.LevelInfo, false},
		{Info, types.LevelInfo, true},
		{Info, types.LevelDebug, false},
		{Debug, types.LevelDebug, true},
		{Debug, types.LevelTrace, false},
		{Trace, types.LevelTrace, true},
	}
	for _, tc := range tests {
		if got := tc.filter.Allows(tc.level); got != tc.want {
			t.Errorf("%v.Allows(%v) = %v, want %v", tc.filter, tc.level, got, tc.want)
		}
	}
}

func TestForLevel(t *testing.T) {
	for _, lvl := range types.Levels {
		lf := ForLevel(lvl)
		if !lf.Allows(lvl) {
			t.Errorf("ForLevel(%v) = %v does not admit %v", lvl, lf, lvl)
		}
		if lvl > types.LevelTrace && lf.Allows(lvl-1) {
			t.Errorf("ForLevel(%v) = %v admits %v", lvl, lf, lvl-1)
		}
	}
}

func TestParse(t *testing.T) {
	f, err := Parse("warn, db=debug, db/pool=error, http=off, chatty")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Default() != Warn {
		t.Errorf("default = %v, want warn", f.Default())
	}

	tests := []struct {
		module string
		level  types.Level
		want   bool
	}{
		{"", types.LevelInfo, false},
		{"", types.LevelWarn, true},
		{"db", types.LevelDebug, true},
		{"db/query", types.LevelDebug, true},
		{"db::query", types.LevelDebug, true},
		{"db/pool", types.LevelWarn, false},
		{"db/pool/conn", types.LevelError, true},
		{"dbx", types.LevelDebug, false},
		{"http", types.LevelError, false},
		{"chatty", types.LevelTrace, true},
	}
	for _, tc := range tests {
		if got := f.Enabled(tc.module, tc.level); got != tc.want {
			t.Errorf("Enabled(%q, %v) = %v, want %v", tc.module, tc.level, got, tc.want)
		}
	}
	if f.Max() != Trace {
		t.Errorf("Max() = %v, want trace", f.Max())
	}
}

func TestParse_Errors(t *testing.T) {
	for _, directives := range []string{"db=loud", "=info"} {
		if _, err := Parse(directives); err == nil {
			t.Errorf("Parse(%q) expected error", directives)
		}
	}
}

func TestParse_EmptyDefaultsToInfo(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Default() != Info {
		t.Errorf("default = %v, want info", f.Default())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOKISHIP_TEST_FILTER", "error,api=trace")
	f, err := FromEnv("LOKISHIP_TEST_FILTER")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if f.Default() != Error {
		t.Errorf("default = %v, want error", f.Default())
	}
	if got := f.Modules()["api"]; got != Trace {
		t.Errorf("api override = %v, want trace", got)
	}
}

func TestFromEnv_Unset(t *testing.T) {
	t.Setenv("LOKISHIP_TEST_FILTER", "")
	f, err := FromEnv("LOKISHIP_TEST_FILTER")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if f.Default() != Info || len(f.Modules()) != 0 {
		t.Errorf("unset env: default = %v, modules = %v", f.Default(), f.Modules())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("LOKISHIP_TEST_FILTER", "db=sideways")
	if _, err := FromEnv("LOKISHIP_TEST_FILTER"); err == nil {
		t.Error("expected error for invalid directive")
	}
}

func TestBuilder_LastWriteWins(t *testing.T) {
	var b Builder
	f := b.Level(Error).Module("svc", Debug).Module("svc", Warn).Build()
	if f.Enabled("svc", types.LevelInfo) {
		t.Error("svc should be limited to warn after the second Module call")
	}
	if !f.Enabled("svc", types.LevelWarn) {
		t.Error("svc should admit warn")
	}
}
