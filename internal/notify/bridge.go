package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/pkg/pool"
)

const sinkTimeout = 5 * time.Second

// Sink receives every event outside the process, e.g. a message broker.
type Sink interface {
	Deliver(ctx context.Context, ev domain.Event) error
}

// Bridge fans order events out to subscribers. Publish never blocks and a
// registered subscriber never misses an event; an event published while
// nobody listens is gone, since the store already holds the new state.
type Bridge struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	workers *pool.Pool
	sinkWG  sync.WaitGroup
	logger  *zap.Logger
}

func NewBridge(sinkWorkers int, logger *zap.Logger) *Bridge {
	return &Bridge{
		subs:    make(map[*Subscription]struct{}),
		workers: pool.New(sinkWorkers),
		logger:  logger,
	}
}

// Subscribe returns a subscription receiving every event published from now
// on until Close is called on it or on the bridge.
func (b *Bridge) Subscribe() *Subscription {
	return b.subscribe(false)
}

func (b *Bridge) subscribe(drain bool) *Subscription {
	s := newSubscription(b, drain)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.stop()
		close(s.out)
		return s
	}
	b.subs[s] = struct{}{}
	go s.pump()
	return s
}

// AddSink forwards all subsequent events to sink on the worker pool.
// Events queued at Close are still delivered; delivery errors are logged.
func (b *Bridge) AddSink(name string, sink Sink) {
	sub := b.subscribe(true)
	b.sinkWG.Add(1)
	go func() {
		defer b.sinkWG.Done()
		for ev := range sub.C {
			err := b.workers.Submit(func() {
				ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
				defer cancel()
				if err := sink.Deliver(ctx, ev); err != nil {
					b.logger.Warn("Event sink delivery failed",
						zap.String("sink", name),
						zap.String("order_id", ev.OrderID),
						zap.Error(err),
					)
				}
			})
			if err != nil {
				return
			}
		}
	}()
}

func (b *Bridge) Publish(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.enqueue(ev)
	}
}

// Close ends every subscription and waits for in-flight sink deliveries.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for s := range subs {
		s.stop()
	}
	b.sinkWG.Wait()
	b.workers.Close()
}

func (b *Bridge) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}
