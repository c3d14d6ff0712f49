package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/changefeed"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

// changeFeed gives every subscriber its own exclusive queue bound to the
// fanout exchange, so each view sees every event.
type changeFeed struct {
	conn     Connection
	exchange string
	buffer   int
	logger   logger.Logger
}

func NewChangeFeed(conn Connection, exchange string, buffer int, logger logger.Logger) interfaces.ChangeFeed {
	return &changeFeed{conn: conn, exchange: exchange, buffer: buffer, logger: logger}
}

func (f *changeFeed) Subscribe(ctx context.Context, filter domain.FeedFilter) (interfaces.Subscription, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err)
	}

	msgs, err := f.setup(ch)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err)
	}

	closeChan := ch.NotifyClose()
	stream := changefeed.NewStream(f.buffer, func() { _ = ch.Close() })

	go func() {
		for {
			select {
			case <-stream.Done():
				return

			case <-ctx.Done():
				stream.Cancel()
				return

			case amqpErr, ok := <-closeChan:
				if ok && amqpErr != nil {
					stream.Fail(fmt.Errorf("channel closed: %w", amqpErr))
				} else {
					stream.Fail(errors.New("channel closed"))
				}
				return

			case msg, ok := <-msgs:
				if !ok {
					stream.Fail(errors.New("deliveries channel closed"))
					return
				}

				ev, err := changefeed.Decode(msg.Body)
				if err != nil {
					f.logger.Error("message_parse_failed", "Failed to parse change event", "", nil, err)
					continue
				}
				if filter.Matches(ev) {
					stream.Deliver(ctx, ev)
				}
			}
		}
	}()

	return stream, nil
}

func (f *changeFeed) setup(ch Channel) (<-chan amqp.Delivery, error) {
	if err := declareExchange(ch, f.exchange); err != nil {
		return nil, err
	}

	// Temporary exclusive queue, removed by the broker with the channel
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}
