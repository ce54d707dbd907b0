package events

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/quill/logging"
)

// NewWatermillLogger routes watermill's logs into the service logger.
// Watermill logs every publish without a subscriber at info, so its info
// level is lowered to debug.
func NewWatermillLogger(logger logging.Logger) watermill.LoggerAdapter {
	s, ok := logger.(interface{ Slog() *slog.Logger })
	if !ok {
		return watermill.NopLogger{}
	}

	return watermill.NewSlogLoggerWithLevelMapping(
		s.Slog().With("component", "watermill"),
		map[slog.Level]slog.Level{slog.LevelInfo: slog.LevelDebug},
	)
}
