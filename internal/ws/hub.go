// Package ws carries the real-time chat layer: websocket clients attach to a
// hub which routes events arriving over the Redis pub/sub broker, so fan-out
// works across multiple server instances.
package ws

import (
	"context"
	"log"
	"sync"

	"ascai/internal/cache"
)

// subscriber is the hub's view of a connected client: a delivery channel plus
// the set of broker channels it listens on.
type subscriber interface {
	deliver(payload []byte)
	channels() []string
}

// Hub routes broker events to the websocket clients connected to this
// instance. Every published chat event lands here once via the pattern
// subscription; the hub forwards it to each local client registered on the
// event's channel.
type Hub struct {
	broker *cache.Client

	mu      sync.RWMutex
	clients map[subscriber]struct{}
}

// NewHub creates a hub and starts consuming broker events.
func NewHub(ctx context.Context, broker *cache.Client) *Hub {
	h := &Hub{
		broker:  broker,
		clients: make(map[subscriber]struct{}),
	}
	go h.consume(ctx)
	return h
}

// register attaches a client to the hub.
func (h *Hub) register(c subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister detaches a client.
func (h *Hub) unregister(c subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// consume reads the pattern subscription and fans events out locally.
func (h *Hub) consume(ctx context.Context) {
	sub := h.broker.Subscribe(ctx, "conversation:*", "user:*")
	if sub == nil {
		log.Println("ws: broker unavailable, real-time fan-out disabled")
		return
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.route(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) route(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		for _, want := range c.channels() {
			if want == channel {
				c.deliver(payload)
				break
			}
		}
	}
}
