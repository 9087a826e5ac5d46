package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/observability"
)

//go:generate mockgen -source consumer.go -destination=consumer_mock_test.go -package=kafka

// ErrUnprocessable marks a message that will never succeed. The consumer
// commits past it instead of retrying.
var ErrUnprocessable = errors.New("unprocessable message")

type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// NewReader builds a group reader for the confirmations topic.
func NewReader(brokers []string, topic, group string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
	})
}

type Consumer struct {
	handler MessageHandler
	reader  Reader
	metrics observability.Metrics
	zlogger *zap.Logger

	workerPoolSize int
	jobs           chan jobItem
	wg             sync.WaitGroup
}

type jobItem struct {
	msg    kafkago.Message
	result chan error
}

func NewConsumer(handler MessageHandler, reader Reader, workers int, metrics observability.Metrics, logger *zap.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Consumer{
		handler:        handler,
		reader:         reader,
		metrics:        metrics,
		zlogger:        logger,
		workerPoolSize: workers,
		jobs:           make(chan jobItem, workers*2),
	}
}

// Start fetches until ctx is done. Each message is handed to a worker and
// awaited before the next fetch, so offsets are committed in order.
func (c *Consumer) Start(ctx context.Context) {
	rc := c.reader.Config()
	c.zlogger.Info("Starting Kafka consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
	)

	for i := 0; i < c.workerPoolSize; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if isBenignFetchTimeout(err) {
				c.zlogger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, 10*time.Second)
				continue
			}
			c.zlogger.Warn("FetchMessage error, backing off", zap.Error(err))
			sleepWithContext(ctx, 500*time.Millisecond)
			continue
		}

		done := make(chan error, 1)
		select {
		case c.jobs <- jobItem{msg: msg, result: done}:
		case <-ctx.Done():
			return
		}

		var procErr error
		select {
		case procErr = <-done:
		case <-ctx.Done():
			return
		}

		if procErr != nil && !errors.Is(procErr, ErrUnprocessable) {
			c.zlogger.Error("handler failed; message will not be committed", zap.Error(procErr),
				zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
			sleepWithContext(ctx, 200*time.Millisecond)
			continue
		}
		if procErr != nil {
			c.zlogger.Warn("skipping unprocessable message", zap.Error(procErr),
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.zlogger.Warn("commit failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, 200*time.Millisecond)
			continue
		}
		c.zlogger.Debug("message committed",
			zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-c.jobs:
			start := time.Now()
			err := c.handler.Handle(ctx, it.msg)
			elapsed := time.Since(start)
			c.metrics.ObserveKafka(float64(elapsed.Microseconds())/1000.0, err == nil)

			if err == nil {
				c.zlogger.Debug("message handled",
					zap.Int("partition", it.msg.Partition),
					zap.Int64("offset", it.msg.Offset),
					zap.Int("value_bytes", len(it.msg.Value)),
					zap.Duration("elapsed", elapsed),
				)
			}
			it.result <- err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
