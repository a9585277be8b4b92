package gateway

import (
	"context"
	"log"

	goredis "github.com/go-redis/redis/v8"

	redisstore "ibrobot/internal/store/redis"
)

// PubSubRouter relays signals published to Redis by another robot process
// into the hub.
type PubSubRouter struct {
	hub *Hub
	rdb *goredis.Client
}

// NewPubSubRouter creates a router feeding hub from rdb.
func NewPubSubRouter(hub *Hub, rdb *goredis.Client) *PubSubRouter {
	return &PubSubRouter{hub: hub, rdb: rdb}
}

// Run subscribes to every signal channel. Blocks until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	pubsub := r.rdb.PSubscribe(ctx, redisstore.SignalChannelPattern)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", redisstore.SignalChannelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.route(msg.Channel, msg.Payload)
		}
	}
}

func (r *PubSubRouter) route(channel, payload string) {
	symbol, ok := redisstore.SymbolFromChannel(channel)
	if !ok {
		return
	}
	r.hub.Broadcast(symbol, []byte(payload))
}
