package event

import (
	"sync"
	"sync/atomic"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"
)

type (
	// Hub fans published values out to every live subscriber
	Hub[T any] struct {
		topic     topic.Topic[T]
		prod      topic.Producer[T]
		subs      atomic.Int64
		mu        sync.RWMutex
		closed    bool
		closeOnce sync.Once
	}

	// Subscription receives values published after it was created
	Subscription[T any] struct {
		cons      topic.Consumer[T]
		hub       *Hub[T]
		closeOnce sync.Once
	}
)

// NewHub creates a Hub backed by a caravan topic
func NewHub[T any]() *Hub[T] {
	t := caravan.NewTopic[T]()
	return &Hub[T]{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish sends a value to the current subscribers. Values published while
// nobody is subscribed, or after Close, are dropped
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed || h.subs.Load() == 0 {
		return
	}
	message.Send(h.prod, v)
}

// Subscribe registers a new subscriber. The caller must Close it
func (h *Hub[T]) Subscribe() *Subscription[T] {
	h.subs.Add(1)
	return &Subscription[T]{
		cons: h.topic.NewConsumer(),
		hub:  h,
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub[T]) Subscribers() int {
	return int(h.subs.Load())
}

// Close stops accepting published values
func (h *Hub[T]) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		h.prod.Close()
	})
}

// Receive returns the channel values are delivered on
func (s *Subscription[T]) Receive() <-chan T {
	return s.cons.Receive()
}

// Close detaches the subscription from its Hub
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.hub.subs.Add(-1)
		s.cons.Close()
	})
}
