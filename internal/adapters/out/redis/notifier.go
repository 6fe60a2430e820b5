package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const changedMessage = "changed"

// ChangeNotifier publishes a change notice on the channel of every
// participant of a committed order.
type ChangeNotifier struct {
	client goredis.UniversalClient
}

func NewChangeNotifier(client goredis.UniversalClient) *ChangeNotifier {
	return &ChangeNotifier{client: client}
}

// NotifyChanged publishes to each participant channel. Every channel is
// attempted; the errors are joined.
func (n *ChangeNotifier) NotifyChanged(ctx context.Context, participantIDs ...string) error {
	var errs []error
	for _, id := range participantIDs {
		if err := n.client.Publish(ctx, Channel(id), changedMessage).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", Channel(id), err))
		}
	}
	return errors.Join(errs...)
}
