package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/logger"
	"lastmile/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	pollSourceName = "poll"

	DefaultPollInterval = 5 * time.Second
)

// PollSource is the polling SubscriptionSource. Every subscription is a cron
// entry that re-fetches the participant's orders at a fixed interval.
// A fetch still running when the next tick fires skips that tick.
type PollSource struct {
	cron     *cron.Cron
	fetcher  ports.OrderFetcher
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPollSource creates a poll source. cron rounds intervals below one
// second up to one second.
func NewPollSource(
	fetcher ports.OrderFetcher,
	interval time.Duration,
	l *zap.Logger,
	m *metrics.Metrics,
) *PollSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	l = logger.Component(l, "poll_source")

	return &PollSource{
		cron:     cron.New(cron.WithLogger(cronLogger{logger: l})),
		fetcher:  fetcher,
		interval: interval,
		logger:   l,
		metrics:  m,
		now:      time.Now,
	}
}

// Start begins ticking every registered subscription.
func (s *PollSource) Start() error {
	s.cron.Start()
	s.logger.Info("poll source started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the scheduler and waits for running fetches to finish.
func (s *PollSource) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("poll source stopped")
}

// Subscribe registers a polling entry for participantID and delivers the
// initial snapshot asynchronously. The returned Unsubscribe waits for an
// in-flight delivery and must not be called from onChange.
func (s *PollSource) Subscribe(
	ctx context.Context,
	participantID string,
	onChange func(ports.Snapshot),
) (ports.Unsubscribe, error) {
	pollCtx, cancel := context.WithCancel(ctx)

	sub := &pollSubscription{
		source:        s,
		participantID: participantID,
		onChange:      onChange,
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})).
		Then(cron.FuncJob(func() { sub.poll(pollCtx) }))

	entryID, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.interval), job)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule poll for %s: %w", participantID, err)
	}

	s.metrics.Subscribed(pollSourceName, 1)
	go job.Run()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			s.cron.Remove(entryID)
			sub.close()
			s.metrics.Subscribed(pollSourceName, -1)
		})
	}
	// A subscription bound to a request ends with it.
	context.AfterFunc(ctx, unsubscribe)

	return unsubscribe, nil
}

type pollSubscription struct {
	source        *PollSource
	participantID string
	onChange      func(ports.Snapshot)

	mu     sync.Mutex
	closed bool
}

func (p *pollSubscription) poll(ctx context.Context) {
	fetchedAt := p.source.now()
	orders, err := p.source.fetcher.FetchForParticipant(ctx, p.participantID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || ctx.Err() != nil {
		return
	}
	if err != nil {
		p.source.logger.Warn("fetch orders failed",
			zap.String("participant_id", p.participantID),
			zap.Error(err),
		)
		return
	}
	p.onChange(ports.Snapshot{Orders: orders, FetchedAt: fetchedAt})
}

func (p *pollSubscription) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// cronLogger routes cron's internal logging to zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
