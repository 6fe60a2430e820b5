package ports

import (
	"context"
	"time"
)

// OrderChangedEvent is published after every committed placement or
// transition.
type OrderChangedEvent struct {
	OrderID            string    `json:"order_id"`
	Status             string    `json:"status"`
	Accepted           bool      `json:"accepted"`
	Stored             bool      `json:"stored"`
	Action             string    `json:"action"`
	NotificationAction string    `json:"notification_action,omitempty"`
	Participants       []string  `json:"participants"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// OrderChangePublisher sends order change events to downstream consumers.
type OrderChangePublisher interface {
	Publish(ctx context.Context, event OrderChangedEvent) error
}
