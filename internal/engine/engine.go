package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/application/handler"
	"github.com/TemirB/moneyorder-sync/internal/application/retention"
	"github.com/TemirB/moneyorder-sync/internal/application/service"
	"github.com/TemirB/moneyorder-sync/internal/application/syncer"
	"github.com/TemirB/moneyorder-sync/internal/backend"
	"github.com/TemirB/moneyorder-sync/internal/cache"
	"github.com/TemirB/moneyorder-sync/internal/config"
	"github.com/TemirB/moneyorder-sync/internal/connectivity"
	"github.com/TemirB/moneyorder-sync/internal/database"
	"github.com/TemirB/moneyorder-sync/internal/kafka"
	"github.com/TemirB/moneyorder-sync/internal/notify"
	"github.com/TemirB/moneyorder-sync/internal/observability"
	"github.com/TemirB/moneyorder-sync/internal/pkg/breaker"
)

const sinkWorkers = 4

// OpenStore opens the store selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (database.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		s, err := database.ConnectPostgres(ctx, cfg.DSN(), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := database.OpenSQLite(ctx, cfg.Store.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Engine owns every long-lived component of one sync engine instance.
type Engine struct {
	cfg    config.Config
	logger *zap.Logger

	Metrics   *observability.Prometheus
	Store     database.Store
	Repo      *database.Repository
	Cache     *cache.Cache
	Backend   *backend.Client
	Monitor   *connectivity.Monitor
	Bridge    *notify.Bridge
	Processor *syncer.Processor
	Service   *service.Service
	Pruner    *retention.Pruner

	prober    *connectivity.Prober
	publisher *kafka.Publisher
	reader    *kafkago.Reader
	consumer  *kafka.Consumer

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// New wires the engine. Nothing runs in the background until Start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...backend.Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		Metrics: observability.NewPrometheus(),
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.Store = store
	e.Repo = database.NewRepository(store)

	if e.Cache, err = cache.New(cfg.CacheCap); err != nil {
		store.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}
	e.Cache.Warm(ctx, e.Repo)
	logger.Info("Receipt cache warmed", zap.Int("entries", e.Cache.Len()))

	e.Backend = backend.New(cfg.Backend, cfg.Breaker, cfg.Retry, e.Metrics, logger, opts...)
	e.Monitor = connectivity.NewMonitor(logger)
	e.prober = connectivity.NewProber(e.Monitor, e.Backend, cfg.Backend.ProbeInterval, cfg.Backend.RequestTimeout, logger)
	e.Bridge = notify.NewBridge(sinkWorkers, logger)

	e.Processor = syncer.NewProcessor(e.Repo, e.Backend, e.Bridge, e.Monitor, e.Metrics, logger, syncer.Options{
		Interval:        cfg.Sync.Interval,
		OrderMaxRetries: cfg.Sync.OrderMaxRetries,
		TaskMaxAttempts: cfg.Sync.TaskMaxAttempts,
	})
	e.Service = service.NewService(e.Repo, e.Cache, e.Processor, e.Bridge, e.Monitor, logger, e.Metrics, service.Options{
		RequestTimeout: cfg.Backend.RequestTimeout,
	})
	e.Pruner = retention.NewPruner(e.Repo, e.Cache, cfg.Retention.Window, cfg.Retention.PruneInterval, logger)

	if cfg.Kafka.Enabled() {
		e.wireKafka(ctx)
	}
	return e, nil
}

// wireKafka attaches the event sink and the confirmation feed. Kafka is
// optional: when topics cannot be ensured the engine runs without it.
func (e *Engine) wireKafka(ctx context.Context) {
	kc := e.cfg.Kafka
	if err := kafka.EnsureTopics(ctx, kc.Brokers, kafka.DefaultTopics(kc.EventsTopic, kc.ConfirmationsTopic), e.logger); err != nil {
		e.logger.Warn("Kafka unavailable, running without it", zap.Error(err))
		return
	}

	e.publisher = kafka.NewPublisher(kafka.NewWriter(kc.Brokers, kc.EventsTopic))
	e.Bridge.AddSink("kafka", e.publisher)

	e.reader = kafka.NewReader(kc.Brokers, kc.ConfirmationsTopic, kc.Group)
	h := handler.NewHandler(e.Service, breaker.New(e.cfg.Breaker), e.cfg.Retry, e.logger)
	e.consumer = kafka.NewConsumer(h, e.reader, kc.Workers, e.Metrics, e.logger)
}

// Start recovers orders interrupted by a previous run and launches the
// background loops. They stop when ctx is done or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	n, err := e.Processor.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover interrupted orders: %w", err)
	}
	if n > 0 {
		e.logger.Info("Interrupted orders requeued", zap.Int("count", n))
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.unsubscribe = e.Monitor.Subscribe(func(online bool) {
		e.Metrics.SetOnline(online)
		if online {
			e.Processor.Trigger()
		}
	})

	e.spawn(func() { e.prober.Run(ctx) })
	e.spawn(func() { e.Processor.Run(ctx) })
	e.spawn(func() { e.Pruner.Run(ctx) })
	if e.consumer != nil {
		e.spawn(func() { e.consumer.Start(ctx) })
	}
	return nil
}

func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// Close stops the loops, flushes events to the sinks and closes the store.
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		e.wg.Wait()
		if e.unsubscribe != nil {
			e.unsubscribe()
		}

		e.Bridge.Close()
		if e.publisher != nil {
			errs = append(errs, e.publisher.Close())
		}
		if e.reader != nil {
			errs = append(errs, e.reader.Close())
		}
		errs = append(errs, e.Store.Close())
		e.logger.Info("Engine stopped")
	})
	return errors.Join(errs...)
}
