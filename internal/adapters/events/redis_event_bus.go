package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	redisclient "github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 100

// ErrBusClosed is returned by Subscribe after Close.
var ErrBusClosed = errors.New("event bus closed")

type subscriberSet map[chan *entities.EvaluationEvent]struct{}

// RedisEventBus fans Redis pub/sub messages out to in-process subscribers.
// All channels share one PubSub connection; a single goroutine routes each
// message by the channel it arrived on.
type RedisEventBus struct {
	client *redisclient.Client

	mu          sync.Mutex
	pubsub      *redis.PubSub
	subscribers map[string]subscriberSet
	closed      bool
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		client:      client,
		subscribers: make(map[string]subscriberSet),
	}
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish sends event to every subscriber of channel across all instances.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.EvaluationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe registers a local subscriber. The returned channel is closed when
// ctx ends, on Unsubscribe, or on Close.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EvaluationEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	if _, listening := b.subscribers[channel]; !listening {
		if err := b.listen(ctx, channel); err != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscribers[channel] = make(subscriberSet)
	}

	events := make(chan *entities.EvaluationEvent, subscriberBuffer)
	b.subscribers[channel][events] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, events)
	}()

	log.Debug().Str("channel", channel).Int("subscribers", len(b.subscribers[channel])).Msg("subscribed to evaluation events")
	return events, nil
}

// listen adds channel to the shared PubSub, opening it on first use. Caller
// holds mu.
func (b *RedisEventBus) listen(ctx context.Context, channel string) error {
	if b.pubsub != nil {
		return b.pubsub.Subscribe(ctx, channel)
	}

	pubsub := b.client.Client().Subscribe(context.Background(), channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	b.pubsub = pubsub
	go b.route(pubsub.Channel())
	return nil
}

// route runs until the PubSub is closed.
func (b *RedisEventBus) route(messages <-chan *redis.Message) {
	for msg := range messages {
		var event entities.EvaluationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed evaluation event")
			continue
		}
		b.broadcast(msg.Channel, &event)
	}
}

// broadcast never blocks; a subscriber with a full buffer misses the event.
func (b *RedisEventBus) broadcast(channel string, event *entities.EvaluationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber full, skipping event")
		}
	}
}

func (b *RedisEventBus) remove(channel string, events chan *entities.EvaluationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := set[events]; !ok {
		return
	}

	delete(set, events)
	close(events)

	if len(set) == 0 {
		b.drop(context.Background(), channel)
	}
}

// drop forgets channel and stops listening to it. Caller holds mu.
func (b *RedisEventBus) drop(ctx context.Context, channel string) error {
	delete(b.subscribers, channel)
	if b.pubsub == nil || b.closed {
		return nil
	}
	return b.pubsub.Unsubscribe(ctx, channel)
}

// Unsubscribe closes every local subscriber of channel.
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	return b.drop(ctx, channel)
}

// Close ends all subscriptions. Calling it again is a no-op.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for channel, set := range b.subscribers {
		for subscriber := range set {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}

	if b.pubsub == nil {
		return nil
	}
	return b.pubsub.Close()
}
