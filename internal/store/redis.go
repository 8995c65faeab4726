package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/LickLitty/ungservice2025/internal/conv"
)

// channelFor maps a thread to its pub/sub channel.
func channelFor(key conv.ThreadKey) string {
	return "thread:" + key.String()
}

// publish fans an inserted message out to subscribers. Best effort: the row
// is already committed, and every session's poll loop will pick the message
// up within one interval even if this never arrives.
func (s *Store) publish(ctx context.Context, key conv.ThreadKey, m conv.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, channelFor(key), payload).Err(); err != nil {
		log.Printf("store: publish %s: %v", key, err)
	}
}

// SubscribeInserts opens the push channel for one thread.
func (s *Store) SubscribeInserts(ctx context.Context, key conv.ThreadKey) (conv.Subscription, error) {
	pubsub := s.redis.Subscribe(ctx, channelFor(key))
	// Force the SUBSCRIBE round trip so a dead connection fails here, not
	// silently in the pump.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{pubsub: pubsub, events: make(chan conv.Message, 16)}
	go sub.pump(key)
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan conv.Message
}

// pump translates raw pub/sub payloads into message events. The redis
// channel closes when the connection is lost, which closes events and lets
// the listener resubscribe.
func (r *redisSubscription) pump(key conv.ThreadKey) {
	defer close(r.events)

	for raw := range r.pubsub.Channel() {
		var m conv.Message
		if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
			log.Printf("store: bad payload on %s: %v", key, err)
			continue
		}
		select {
		case r.events <- m:
		default:
			// Receiver gone or backed up. Dropping here is safe: the poll
			// loop fetches past the cursor and recovers the message.
		}
	}
}

func (r *redisSubscription) Events() <-chan conv.Message { return r.events }

func (r *redisSubscription) Close() error { return r.pubsub.Close() }
