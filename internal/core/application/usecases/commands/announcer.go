package commands

import (
	"context"
	"time"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/logger"
	"lastmile/internal/pkg/metrics"

	"go.uber.org/zap"
)

// OptimisticView shows a computed next state to the open sessions of the
// given participants before it is persisted. The returned rollback undoes it.
type OptimisticView interface {
	ApplyOptimistic(participantIDs []string, next *order.Order) (rollback func())
}

type noopView struct{}

func (noopView) ApplyOptimistic([]string, *order.Order) func() { return func() {} }

// ChangeAnnouncer tells the outside world about a committed order change:
// the subscription sources of every member and the order-changed topic.
// Failures are logged and counted, the write already happened.
type ChangeAnnouncer struct {
	notifier  ports.ChangeNotifier
	publisher ports.OrderChangePublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewChangeAnnouncer creates an announcer. notifier and publisher may be nil.
func NewChangeAnnouncer(
	notifier ports.ChangeNotifier,
	publisher ports.OrderChangePublisher,
	m *metrics.Metrics,
	l *zap.Logger,
) ChangeAnnouncer {
	return ChangeAnnouncer{
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		logger:    logger.Component(l, "change_announcer"),
	}
}

func (a ChangeAnnouncer) Announce(ctx context.Context, o *order.Order, occurredAt time.Time) {
	if a.notifier != nil {
		if err := a.notifier.NotifyChanged(ctx, o.Participants()...); err != nil {
			a.metrics.PublishFailed()
			a.logger.Warn("change notice not sent", zap.String("order_id", o.ID().String()), zap.Error(err))
		}
	}

	if a.publisher == nil {
		return
	}

	event := ports.OrderChangedEvent{
		OrderID:      o.ID().String(),
		Status:       o.Status().String(),
		Accepted:     o.Accepted(),
		Stored:       o.Stored(),
		Action:       o.Actions().CurrentLabel(),
		Participants: o.Participants(),
		OccurredAt:   occurredAt.UTC(),
	}
	if last, ok := o.Actions().Last(); ok {
		event.NotificationAction = last.NotificationAction
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		a.metrics.PublishFailed()
		a.logger.Warn("order changed event not published", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}
