package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"
)

const bell = "\a"

// NotificationHandler prints one line per order change. New orders ring
// the terminal bell unless it is muted.
type NotificationHandler struct {
	logger logger.Logger
	out    io.Writer
	sound  bool
}

func NewNotificationHandler(logger logger.Logger, out io.Writer, sound bool) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    out,
		sound:  sound,
	}
}

func (h *NotificationHandler) HandleChange(ctx context.Context, ev domain.ChangeEvent) error {
	o := ev.Order
	h.logger.Debug("notification_received", fmt.Sprintf("Received %s for order %s", ev.Type, o.ID), o.ID.String(), map[string]interface{}{
		"order_id":        o.ID.String(),
		"status":          o.Status,
		"delivery_status": o.DeliveryStatus,
	})

	var err error
	switch ev.Type {
	case domain.EventInsert:
		prefix := ""
		if h.sound {
			prefix = bell
		}
		_, err = fmt.Fprintf(h.out, "%sNew order %s from %s: R$ %s (%s, %d items)\n",
			prefix, shortID(o), o.CustomerName, o.Total.StringFixed(2), o.PaymentMethod, len(o.Items))
	default:
		_, err = fmt.Fprintf(h.out, "Order %s: %s / %s\n",
			shortID(o), o.Status.Presentation().Label, o.DeliveryStatus.Presentation().Label)
	}
	return err
}

// Run prints changes until ctx is done. It returns the subscription error
// when the feed is lost.
func (h *NotificationHandler) Run(ctx context.Context, feed interfaces.ChangeFeed) error {
	sub, err := feed.Subscribe(ctx, domain.FeedFilter{
		Collection: domain.OrdersCollection,
		Types:      []domain.EventType{domain.EventAll},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err)
	}
	defer sub.Cancel()

	for ev := range sub.Events() {
		if err := h.HandleChange(ctx, ev); err != nil {
			h.logger.Error("notification_print_failed", "Failed to print notification", "", nil, err)
		}
	}

	if err := sub.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func shortID(o domain.Order) string {
	return o.ID.String()[:8]
}
