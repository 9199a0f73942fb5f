// README: Notification sink backed by Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// envelope is the wire shape published on each channel.
type envelope struct {
	Event       string    `json:"event"`
	Payload     any       `json:"payload"`
	PublishedAt time.Time `json:"published_at"`
}

type RedisSink struct {
	redis *redis.Client
}

func NewRedisSink(redis *redis.Client) *RedisSink {
	return &RedisSink{redis: redis}
}

func (s *RedisSink) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(envelope{
		Event:       event,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", event, err)
	}
	return s.redis.Publish(ctx, channel, data).Err()
}
