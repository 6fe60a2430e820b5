package cmd

import (
	"errors"
	"fmt"
	"net/http"

	httpadapter "lastmile/internal/adapters/in/http"
	"lastmile/internal/adapters/out/kafka"
	"lastmile/internal/adapters/out/postgres"
	"lastmile/internal/adapters/out/postgres/orderrepo"
	"lastmile/internal/adapters/out/postgres/profilerepo"
	redisadapter "lastmile/internal/adapters/out/redis"
	"lastmile/internal/core/application/livesync"
	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/jobs"
	"lastmile/internal/pkg/metrics"

	"github.com/IBM/sarama"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg    Config
	logger *zap.Logger

	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory
	redis      *goredis.Client
	producer   sarama.SyncProducer

	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	classifier services.Classifier
	notifier   ports.ChangeNotifier
	publisher  ports.OrderChangePublisher
	hub        *livesync.Hub
	jobs       *jobs.JobManager
}

// NewCompositionRoot connects the outbound adapters selected by cfg. Close
// releases them.
func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *zap.Logger) (*CompositionRoot, error) {
	pendingMode, err := services.ParsePendingMode(cfg.PendingTabMode)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &CompositionRoot{
		cfg:        cfg,
		logger:     logger,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		registry:   registry,
		metrics:    metrics.New(registry),
		classifier: services.NewClassifier(pendingMode),
	}

	c.redis, err = redisadapter.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		c.producer, err = kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			_ = c.redis.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		c.publisher = kafka.NewOrderChangedPublisher(c.producer, cfg.Kafka.OrderChangedTopic, logger)
	} else {
		logger.Warn("KAFKA_BROKERS is empty, order-changed events are disabled")
	}

	fetcher := orderrepo.NewGormOrderRepository(gormDB)
	var source ports.SubscriptionSource
	switch cfg.Sync.Mode {
	case SyncModePoll:
		poll := jobs.NewPollSource(fetcher, cfg.Sync.PollInterval, logger, c.metrics)
		c.jobs = jobs.NewJobManager(logger, poll)
		source = poll
	default:
		c.notifier = redisadapter.NewChangeNotifier(c.redis)
		c.jobs = jobs.NewJobManager(logger)
		source = redisadapter.NewPushSource(c.redis, fetcher, logger, c.metrics)
	}
	c.hub = livesync.NewHub(source, c.classifier, logger)

	return c, nil
}

func (c *CompositionRoot) JobManager() *jobs.JobManager {
	return c.jobs
}

func (c *CompositionRoot) CreateChangeAnnouncer() commands.ChangeAnnouncer {
	return commands.NewChangeAnnouncer(c.notifier, c.publisher, c.metrics, c.logger)
}

func (c *CompositionRoot) CreateApplyTransitionCommandHandler() commands.ApplyTransitionCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewApplyTransitionCommandHandler(
		f,
		services.NewLifecycleEngine(nil),
		c.CreateChangeAnnouncer(),
		c.hub,
		c.metrics,
		c.logger,
		c.cfg.ConflictRetries,
	)
}

func (c *CompositionRoot) CreatePlaceOrderCommandHandler() commands.PlaceOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewPlaceOrderCommandHandler(f, c.CreateChangeAnnouncer(), nil)
}

func (c *CompositionRoot) CreateGetParticipantOrdersQueryHandler() queries.GetParticipantOrdersQueryHandler {
	return queries.NewGetParticipantOrdersQueryHandler(orderrepo.NewGormOrderRepository(c.gormDB), c.classifier)
}

func (c *CompositionRoot) CreateSessionResolver() httpadapter.SessionResolver {
	return httpadapter.NewSessionResolver(
		profilerepo.NewGormProfileRepository(c.gormDB),
		redisadapter.NewSessionCache(c.redis, c.cfg.SessionTTL),
		c.logger,
	)
}

func (c *CompositionRoot) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// CreateRouter wires every handler into the HTTP router.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	server := httpadapter.NewServer(
		c.CreateApplyTransitionCommandHandler(),
		c.CreatePlaceOrderCommandHandler(),
		c.CreateGetParticipantOrdersQueryHandler(),
		c.hub,
		c.logger,
	)
	return httpadapter.NewRouter(server, c.CreateSessionResolver(), c.MetricsHandler(), c.logger)
}

// Close releases the Kafka producer and the Redis client.
func (c *CompositionRoot) Close() error {
	var errList []error
	if c.producer != nil {
		errList = append(errList, c.producer.Close())
	}
	errList = append(errList, c.redis.Close())
	return errors.Join(errList...)
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}
