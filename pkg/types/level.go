package types

import (
	"fmt"
	"strings"
)

// Level is the severity of a log event. Levels are ordered:
// LevelTrace < LevelDebug < LevelInfo < LevelWarn < LevelError.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// Levels lists every severity in ascending order.
var Levels = [...]Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}

var levelNames = [...]string{"trace", "debug", "info", "warn", "error"}

// String returns the lowercase level name, which is also the value of the
// "level" label on delivered streams.
func (l Level) String() string {
	if l < LevelTrace || l > LevelError {
		return fmt.Sprintf("level(%d)", int8(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the five defined severities.
func (l Level) Valid() bool {
	return l >= LevelTrace && l <= LevelError
}

// ParseLevel converts common severity spellings to a Level.
// Fatal, critical and panic severities collapse into LevelError.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "trac", "trc":
		return LevelTrace, nil
	case "debug", "debu", "dbg":
		return LevelDebug, nil
	case "info", "information", "inf", "notice":
		return LevelInfo, nil
	case "warn", "warning", "wrn":
		return LevelWarn, nil
	case "error", "err", "erro", "fatal", "crit", "critical", "panic":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("types: unknown level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("types: invalid level %d", int8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so levels can be read
// straight from YAML config files.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}
