package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/logger"
	"lastmile/internal/pkg/metrics"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sourceName = "push"

// PushSource is the push SubscriptionSource. It listens on the participant's
// change channel and re-fetches the full order set on every notice.
// Notices that arrive while a fetch is running are coalesced into one
// follow-up fetch.
type PushSource struct {
	client  goredis.UniversalClient
	fetcher ports.OrderFetcher
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPushSource(
	client goredis.UniversalClient,
	fetcher ports.OrderFetcher,
	l *zap.Logger,
	m *metrics.Metrics,
) *PushSource {
	return &PushSource{
		client:  client,
		fetcher: fetcher,
		logger:  logger.Component(l, "push_source"),
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe returns once the channel subscription is confirmed, so no
// notice published afterwards is lost. The initial snapshot follows
// asynchronously. The returned Unsubscribe waits for the delivery
// goroutine to exit and must not be called from onChange.
func (s *PushSource) Subscribe(
	ctx context.Context,
	participantID string,
	onChange func(ports.Snapshot),
) (ports.Unsubscribe, error) {
	pubsub := s.client.Subscribe(ctx, Channel(participantID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Channel(participantID), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.metrics.Subscribed(sourceName, 1)
	go func() {
		defer close(done)
		s.run(ctx, pubsub.Channel(), participantID, onChange)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
			<-done
			s.metrics.Subscribed(sourceName, -1)
		})
	}, nil
}

func (s *PushSource) run(
	ctx context.Context,
	notices <-chan *goredis.Message,
	participantID string,
	onChange func(ports.Snapshot),
) {
	s.deliver(ctx, participantID, onChange)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notices:
			if !ok {
				return
			}
			drain(notices)
			s.deliver(ctx, participantID, onChange)
		}
	}
}

func (s *PushSource) deliver(ctx context.Context, participantID string, onChange func(ports.Snapshot)) {
	fetchedAt := s.now()
	orders, err := s.fetcher.FetchForParticipant(ctx, participantID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Warn("fetch orders failed", zap.String("participant_id", participantID), zap.Error(err))
		return
	}
	onChange(ports.Snapshot{Orders: orders, FetchedAt: fetchedAt})
}

func drain(notices <-chan *goredis.Message) {
	for {
		select {
		case _, ok := <-notices:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
