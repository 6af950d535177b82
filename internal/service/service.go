package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/gpio_shop/internal/events"
	"github.com/Skotchmaster/gpio_shop/internal/logging"
)

var (
	ErrValidation         = errors.New("validation")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 400
	ErrConflict           = errors.New("conflict")            // 409
	ErrSearchDisabled     = errors.New("search disabled")     // 503
)

// publish sends event and only logs on failure; events never fail a request.
func publish(ctx context.Context, pub events.Publisher, topic, key string, event map[string]any) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
