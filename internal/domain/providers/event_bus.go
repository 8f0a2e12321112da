package providers

import (
	"context"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// EventPublisher publishes evaluation events
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event *entities.EvaluationEvent) error
}

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	EventPublisher

	// Subscribe returns a channel of events that is closed when ctx ends
	Subscribe(ctx context.Context, channel string) (<-chan *entities.EvaluationEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelEvaluations carries every evaluation
	EventChannelEvaluations = "compliance:evaluations"

	// EventChannelVerdictPrefix is the prefix for per-verdict channels
	EventChannelVerdictPrefix = "compliance:verdict:"
)

// GetVerdictChannel returns the channel that only carries events with verdict v
func GetVerdictChannel(v entities.Verdict) string {
	return EventChannelVerdictPrefix + string(v)
}
