package natsstan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/changefeed"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/config"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
	stan "github.com/nats-io/stan.go"
)

// Feed carries change events over a NATS Streaming subject. It is both
// the publisher and the subscription source.
type Feed struct {
	conn    stan.Conn
	subject string
	buffer  int
	logger  logger.Logger

	mu      sync.Mutex
	streams map[*changefeed.Stream]struct{}
}

var (
	_ interfaces.ChangeFeed      = (*Feed)(nil)
	_ interfaces.ChangePublisher = (*Feed)(nil)
)

func Connect(cfg config.STANConfig, buffer int, logger logger.Logger) (*Feed, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("orderdesk-%d", time.Now().UnixNano())
	}

	var f *Feed
	sc, err := stan.Connect(cfg.ClusterID, clientID,
		stan.NatsURL(cfg.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			logger.Error("stan_connection_lost", "NATS Streaming connection lost", "", nil, reason)
			if f != nil {
				f.failAll(reason)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}
	f = newFeed(sc, cfg.Subject, buffer, logger)

	return f, nil
}

func newFeed(conn stan.Conn, subject string, buffer int, logger logger.Logger) *Feed {
	return &Feed{
		conn:    conn,
		subject: subject,
		buffer:  buffer,
		logger:  logger,
		streams: make(map[*changefeed.Stream]struct{}),
	}
}

func (f *Feed) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := changefeed.Encode(ev)
	if err != nil {
		return err
	}
	if err := f.conn.Publish(f.subject, body); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe starts a non-durable subscription that only sees events
// published from now on.
func (f *Feed) Subscribe(ctx context.Context, filter domain.FeedFilter) (interfaces.Subscription, error) {
	var (
		sub    stan.Subscription
		stream *changefeed.Stream
	)
	stream = changefeed.NewStream(f.buffer, func() {
		f.forget(stream)
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	})

	sub, err := f.conn.Subscribe(f.subject, func(m *stan.Msg) {
		ev, err := changefeed.Decode(m.Data)
		if err != nil {
			f.logger.Error("message_parse_failed", "Failed to parse change event", "", nil, err)
			return
		}
		if filter.Matches(ev) {
			stream.Deliver(ctx, ev)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err)
	}

	f.mu.Lock()
	f.streams[stream] = struct{}{}
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			stream.Cancel()
		case <-stream.Done():
		}
	}()

	return stream, nil
}

func (f *Feed) Close() error {
	f.failAll(fmt.Errorf("feed closed"))
	return f.conn.Close()
}

func (f *Feed) forget(s *changefeed.Stream) {
	f.mu.Lock()
	delete(f.streams, s)
	f.mu.Unlock()
}

func (f *Feed) failAll(reason error) {
	f.mu.Lock()
	streams := make([]*changefeed.Stream, 0, len(f.streams))
	for s := range f.streams {
		streams = append(streams, s)
	}
	f.mu.Unlock()

	for _, s := range streams {
		s.Fail(reason)
	}
}
