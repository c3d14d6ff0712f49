package rabbitmq

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/changefeed"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher struct {
	conn     Connection
	exchange string
}

func NewPublisher(conn Connection, exchange string) interfaces.ChangePublisher {
	return &publisher{conn: conn, exchange: exchange}
}

func (p *publisher) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch, p.exchange); err != nil {
		return err
	}

	body, err := changefeed.Encode(ev)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    ev.At,
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

func declareExchange(ch Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

func routingKey(ev domain.ChangeEvent) string {
	return fmt.Sprintf("%s.%s", ev.Collection, ev.Type)
}
