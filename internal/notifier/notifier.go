// Package notifier carries "collection changed" hints between sessions.
// A hint tells receivers to re-fetch; it never carries the changed payload
// itself, and delivery is best-effort: a session that is not subscribed when
// the hint fires simply waits for its next scheduled poll.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
)

// Channel is the pub/sub channel for request collection changes.
const Channel = "refill.requests.changed"

// Actions carried on change events
const (
	ActionCreated      = "created"
	ActionUpdated      = "updated"
	ActionTransitioned = "transitioned"
	ActionDeleted      = "deleted"
	ActionPurged       = "purged"
)

// Event is a change hint. RequestID is set for single-record mutations and
// nil for bulk ones.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	RequestID *int64    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// NewEvent builds a change event for the requests collection.
func NewEvent(action string, requestID *int64) Event {
	return Event{
		ID:        uuid.New(),
		Entity:    "requests",
		Action:    action,
		RequestID: requestID,
		At:        time.Now().UTC(),
	}
}

// Notifier publishes and subscribes to change hints.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

// redisNotifier implements Notifier on a Redis pub/sub channel
type redisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a Redis-backed notifier. When Redis is disabled
// in config a no-op notifier is returned so callers never branch.
func NewRedisNotifier(cfg config.RedisConfig) (Notifier, error) {
	if !cfg.Enabled {
		return &noopNotifier{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis for notifications")
	}

	return &redisNotifier{client: client}, nil
}

// Publish broadcasts a change hint to every subscribed session
func (n *redisNotifier) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal change event")
	}

	if err := n.client.Publish(ctx, Channel, data).Err(); err != nil {
		return errors.Wrap(err, "failed to publish change event")
	}
	return nil
}

// Subscribe returns a channel of change hints. The channel closes when ctx
// is canceled or the underlying subscription drops.
func (n *redisNotifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := n.client.Subscribe(ctx, Channel)

	// Force the subscription to be established before returning
	if _, err := sub.Receive(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to change channel")
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Msg("Discarding malformed change event")
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Close closes the Redis connection
func (n *redisNotifier) Close() error {
	return n.client.Close()
}

// noopNotifier drops hints; receivers fall back to their scheduled poll.
type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, Event) error { return nil }

func (noopNotifier) Subscribe(context.Context) (<-chan Event, error) {
	return make(chan Event), nil
}

func (noopNotifier) Close() error { return nil }
