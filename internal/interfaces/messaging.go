package interfaces

import (
	"context"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
)

// ChangePublisher pushes row-level events to every subscriber.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event domain.ChangeEvent) error
}

// ChangeFeed hands out subscriptions to the push feed.
type ChangeFeed interface {
	Subscribe(ctx context.Context, filter domain.FeedFilter) (Subscription, error)
}

// Subscription is a cancellable stream of change events. Events is closed
// after Cancel or when the feed is lost; in the latter case Err reports
// domain.ErrSubscriptionFailure.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Err() error
	Cancel()
}
