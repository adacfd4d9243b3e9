package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes events to the log. Used when no transport is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notify_log").Logger()}
}

func (s *LogSender) Send(_ context.Context, recipient string, ev Event) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Str("operation_id", ev.OperationID).
		Int64("draft_id", ev.DraftID).
		Str("message", ev.Message).
		Msg("notification")
	return nil
}
