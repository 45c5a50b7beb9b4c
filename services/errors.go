package services

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/utils/apperror"
)

// classify passes classified errors through and wraps everything else as
// Internal. Used on errors returned from a transaction closure.
func classify(err error, message string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(message, err)
}

// publish sends a domain event and logs instead of failing the caller
func publish(ctx context.Context, publisher events.Publisher, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	event, err := events.New(eventType, payload)
	if err != nil {
		log.Warnw("event not encoded", "type", eventType, "error", err)
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warnw("event not published", "type", eventType, "event_id", event.ID, "error", err)
	}
}
