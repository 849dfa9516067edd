package service

import (
	"tripplanner/internal/domain"

	"github.com/rs/zerolog"
)

// publishEvent announces a change; delivery problems are logged only.
func publishEvent(pub domain.EventPublisher, logger *zerolog.Logger, eventType string, payload interface{}) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(eventType, payload); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
