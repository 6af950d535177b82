package events

import "context"

const (
	TopicUser     = "user_events"
	TopicProduct  = "product_events"
	TopicCheckout = "checkout_events"
)

var Topics = []string{TopicUser, TopicProduct, TopicCheckout}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Noop) Close() error                                          { return nil }
