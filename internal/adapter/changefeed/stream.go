package changefeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
)

// Stream is the Subscription handed out by every feed transport.
// Producers call Deliver; the first of Cancel or Fail ends the stream,
// runs the release hook once and closes Events.
type Stream struct {
	events   chan domain.ChangeEvent
	done     chan struct{}
	release  func()
	mu       sync.Mutex
	closed   bool
	err      error
	inflight sync.WaitGroup
}

func NewStream(buffer int, release func()) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{
		events:  make(chan domain.ChangeEvent, buffer),
		done:    make(chan struct{}),
		release: release,
	}
}

func (s *Stream) Events() <-chan domain.ChangeEvent {
	return s.events
}

// Done is closed as soon as the stream starts shutting down.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Cancel() {
	s.finish(nil)
}

// Fail ends the stream because the underlying feed was lost.
func (s *Stream) Fail(cause error) {
	s.finish(fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, cause))
}

// Deliver hands ev to the consumer. It reports false when the stream is
// finished or ctx expires before the consumer takes the event.
func (s *Stream) Deliver(ctx context.Context, ev domain.ChangeEvent) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.done)
	s.mu.Unlock()

	if s.release != nil {
		s.release()
	}

	s.inflight.Wait()
	close(s.events)
}
