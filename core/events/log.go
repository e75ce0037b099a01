package events

import (
	"fmt"
	"log/slog"
)

// SlogEmitter forwards events to a structured logger. The daemon uses it as
// the default subscriber until an indexer is attached.
type SlogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (e SlogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event", slog.String("type", evt.EventType()), slog.String("detail", fmt.Sprintf("%+v", evt)))
}
