package messaging

import (
	"context"
	"encoding/json"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/config"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisPublisher implements ports.EventPublisher over Redis pub/sub.
// Caretaker clients subscribe to `room.<id>` and `caretakers`.
type RedisPublisher struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-Fanout"),
	}
}

// channelMessage is the wire envelope subscribers receive: the event name
// and the snapshot captured at publish time.
type channelMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload []byte) error {
	body, err := json.Marshal(channelMessage{Event: event, Data: payload})
	if err != nil {
		return err
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.client.Publish(ctx, channel, body).Err()
	})
	return err
}
