package ports

import (
	"context"
	"time"

	"lastmile/internal/core/domain/model/order"
)

// Snapshot is the full authoritative set of a participant's orders.
// FetchedAt is taken before the fetch starts, so a snapshot is never newer
// than the data it carries.
type Snapshot struct {
	Orders    []*order.Order
	FetchedAt time.Time
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// SubscriptionSource keeps a participant's order set fresh. Implementations
// deliver an initial snapshot and then one snapshot per observed change.
// Fetch errors are logged by the source and do not end the subscription.
// onChange is never called concurrently for the same subscription and
// never after Unsubscribe returns or ctx is done.
type SubscriptionSource interface {
	Subscribe(ctx context.Context, participantID string, onChange func(Snapshot)) (Unsubscribe, error)
}

// ChangeNotifier tells subscription sources that the orders of the given
// participants changed.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, participantIDs ...string) error
}

// OrderFetcher reads the authoritative order set of one participant.
// OrderRepository satisfies it.
type OrderFetcher interface {
	FetchForParticipant(ctx context.Context, participantID string) ([]*order.Order, error)
}
