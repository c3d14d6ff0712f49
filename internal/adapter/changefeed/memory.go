package changefeed

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
)

// Broker is an in-process feed. It serves single-node runs and tests.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*memorySub
	nextID uint64
	buffer int
}

type memorySub struct {
	filter domain.FeedFilter
	stream *Stream
}

func NewBroker(buffer int) *Broker {
	return &Broker{
		subs:   make(map[uint64]*memorySub),
		buffer: buffer,
	}
}

var (
	_ interfaces.ChangeFeed      = (*Broker)(nil)
	_ interfaces.ChangePublisher = (*Broker)(nil)
)

func (b *Broker) Subscribe(ctx context.Context, filter domain.FeedFilter) (interfaces.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &memorySub{filter: filter}
	sub.stream = NewStream(b.buffer, func() { b.remove(id) })
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.stream.Cancel()
		case <-sub.stream.Done():
		}
	}()

	return sub.stream, nil
}

// PublishChange delivers ev to every matching subscriber in turn.
func (b *Broker) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	b.mu.RLock()
	targets := make([]*memorySub, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.filter.Matches(ev) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.stream.Deliver(ctx, ev)
	}
	return ctx.Err()
}

// Fail drops every subscriber as if the connection was lost.
func (b *Broker) Fail(cause error) {
	b.mu.RLock()
	streams := make([]*Stream, 0, len(b.subs))
	for _, sub := range b.subs {
		streams = append(streams, sub.stream)
	}
	b.mu.RUnlock()

	for _, s := range streams {
		s.Fail(cause)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}
