package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const topicPrefix = "changes:"

// RedisChannel implements Channel over Redis pub/sub, one topic per table.
type RedisChannel struct {
	rdb *redis.Client
}

func NewRedisChannel(rdb *redis.Client) *RedisChannel { return &RedisChannel{rdb: rdb} }

func (c *RedisChannel) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, topicPrefix+e.Table, data).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context, tables ...string) (Subscription, error) {
	topics := make([]string, len(tables))
	for i, t := range tables {
		topics[i] = topicPrefix + t
	}
	ps := c.rdb.Subscribe(ctx, topics...)
	// Force the subscription to be established before returning, so callers
	// never miss events published right after Subscribe.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{ps: ps, events: make(chan Event, 64)}
	go sub.pump(ctx)
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Close() error {
	return s.ps.Close() // pump exits when the message channel closes
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			log.Error().Str("topic", msg.Channel).Err(err).Msg("notify: dropping malformed event")
			continue
		}
		select {
		case s.events <- e:
		case <-ctx.Done():
			return
		}
	}
}
