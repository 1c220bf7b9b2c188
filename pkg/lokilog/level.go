package lokilog

import (
	"log/slog"

	"github.com/lokiship/lokiship/pkg/types"
)

// LevelTrace is the slog level for trace records, below slog.LevelDebug.
const LevelTrace = slog.Level(-8)

// toLevel maps a slog level onto the five pipeline severities. Levels in
// between round down to the next named severity.
func toLevel(l slog.Level) types.Level {
	switch {
	case l < slog.LevelDebug:
		return types.LevelTrace
	case l < slog.LevelInfo:
		return types.LevelDebug
	case l < slog.LevelWarn:
		return types.LevelInfo
	case l < slog.LevelError:
		return types.LevelWarn
	default:
		return types.LevelError
	}
}

func fromLevel(l types.Level) slog.Level {
	switch l {
	case types.LevelTrace:
		return LevelTrace
	case types.LevelDebug:
		return slog.LevelDebug
	case types.LevelWarn:
		return slog.LevelWarn
	case types.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
