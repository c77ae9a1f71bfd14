package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSubscriber struct {
	listens []string
	queue   chan []byte
}

func (f *fakeSubscriber) deliver(payload []byte) { f.queue <- payload }
func (f *fakeSubscriber) channels() []string     { return f.listens }

func TestHub_RouteMatchesChannels(t *testing.T) {
	h := &Hub{clients: make(map[subscriber]struct{})}

	alice := &fakeSubscriber{listens: []string{"user:1", "conversation:abc"}, queue: make(chan []byte, 4)}
	bob := &fakeSubscriber{listens: []string{"user:2"}, queue: make(chan []byte, 4)}
	h.register(alice)
	h.register(bob)

	h.route("conversation:abc", []byte(`{"type":"message"}`))
	h.route("user:2", []byte(`{"type":"read"}`))

	assert.Len(t, alice.queue, 1)
	assert.Len(t, bob.queue, 1)
	assert.Equal(t, []byte(`{"type":"message"}`), <-alice.queue)
	assert.Equal(t, []byte(`{"type":"read"}`), <-bob.queue)
}

// A detached client must never receive another delivery; connection teardown
// closes the outbound queue right after unregistering, which is only sound if
// routing cannot reach the client anymore. Sending on the closed queue would
// panic and fail this test.
func TestHub_NoDeliveryAfterUnregister(t *testing.T) {
	h := &Hub{clients: make(map[subscriber]struct{})}

	sub := &fakeSubscriber{listens: []string{"user:7"}, queue: make(chan []byte, 4)}
	h.register(sub)

	h.route("user:7", []byte("hello"))
	assert.Len(t, sub.queue, 1)

	h.unregister(sub)
	close(sub.queue)

	assert.NotPanics(t, func() {
		h.route("user:7", []byte("late"))
	})
}
