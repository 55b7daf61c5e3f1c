package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes session events to an slog.Logger.
// Useful for development when you want to see events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}

	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}

	switch {
	case event.Exec != nil:
		attrs = append(attrs,
			slog.String("path", event.Exec.Path),
			slog.Any("args", event.Exec.Args),
			slog.String("outcome", event.Exec.Outcome),
			slog.Duration("duration", event.Exec.Duration),
		)
		if event.Exec.ExitCode != nil {
			attrs = append(attrs, slog.Int("exit_code", *event.Exec.ExitCode))
		}
	case event.Presence != nil:
		attrs = append(attrs, slog.String("action", event.Presence.Action.String()))
		if event.Presence.State != "" {
			attrs = append(attrs, slog.String("state", event.Presence.State))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Hotplug != nil:
		attrs = append(attrs,
			slog.String("source", event.Hotplug.Source),
			slog.String("hotplug_action", event.Hotplug.Action),
		)
		if event.Hotplug.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Hotplug.Detail))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_component", event.Error.Component.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "bridge", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
