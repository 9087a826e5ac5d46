package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/observability"
)

var (
	ErrPassInFlight = errors.New("sync pass already in flight")
	ErrOffline      = errors.New("backend is offline")
)

type Store interface {
	domain.OrderRepository
	domain.ReceiptRepository
	domain.PoolRepository
	domain.TaskRepository
}

type Publisher interface {
	Publish(ev domain.Event)
}

type Connectivity interface {
	IsOnline() bool
}

type Options struct {
	Interval        time.Duration
	OrderMaxRetries int
	TaskMaxAttempts int
	Now             func() time.Time
}

// PassResult summarises one pass.
type PassResult struct {
	Attempted    int  `json:"attempted"`
	Synced       int  `json:"synced"`
	Retrying     int  `json:"retrying"`
	Failed       int  `json:"failed"`
	TasksDone    int  `json:"tasksDone"`
	TasksDropped int  `json:"tasksDropped"`
	Halted       bool `json:"halted"`
}

// Processor drains pending orders and queued tasks against the backend.
// At most one pass runs at a time, whatever triggered it.
type Processor struct {
	store   Store
	backend Backend
	events  Publisher
	conn    Connectivity
	metrics observability.Metrics
	logger  *zap.Logger
	opts    Options

	inFlight atomic.Bool
	trigger  chan struct{}

	mu         sync.Mutex
	lastPassAt time.Time
}

func NewProcessor(
	store Store,
	be Backend,
	events Publisher,
	conn Connectivity,
	metrics observability.Metrics,
	logger *zap.Logger,
	opts Options,
) *Processor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.OrderMaxRetries < 1 {
		opts.OrderMaxRetries = 3
	}
	if opts.TaskMaxAttempts < 1 {
		opts.TaskMaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Processor{
		store:   store,
		backend: be,
		events:  events,
		conn:    conn,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger asks the run loop for a pass without waiting for it.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Processor) InFlight() bool { return p.inFlight.Load() }

func (p *Processor) LastPassAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPassAt
}

// Run starts a pass on every tick and every Trigger until ctx is done.
func (p *Processor) Run(ctx context.Context) {
	t := time.NewTicker(p.opts.Interval)
	defer t.Stop()

	p.logger.Info("Sync processor started", zap.Duration("interval", p.opts.Interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Sync processor stopped")
			return
		case <-t.C:
		case <-p.trigger:
		}
		p.safePass(ctx)
	}
}

func (p *Processor) safePass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Sync pass panicked", zap.Any("panic", r))
		}
	}()

	res, err := p.RunPass(ctx)
	switch {
	case errors.Is(err, ErrOffline), errors.Is(err, ErrPassInFlight):
		p.logger.Debug("Sync pass skipped", zap.Error(err))
	case err != nil:
		p.logger.Error("Sync pass failed", zap.Error(err))
	case res.Attempted > 0 || res.TasksDone > 0 || res.TasksDropped > 0:
		p.logger.Info("Sync pass finished",
			zap.Int("synced", res.Synced),
			zap.Int("retrying", res.Retrying),
			zap.Int("failed", res.Failed),
			zap.Int("tasks_done", res.TasksDone),
			zap.Int("tasks_dropped", res.TasksDropped),
			zap.Bool("halted", res.Halted),
		)
	}
}

// RunPass performs one full pass: pending orders oldest first, then the
// task queue. The in-flight flag is released on every exit path.
func (p *Processor) RunPass(ctx context.Context) (PassResult, error) {
	if !p.conn.IsOnline() {
		return PassResult{}, ErrOffline
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return PassResult{}, ErrPassInFlight
	}
	defer p.inFlight.Store(false)

	start := time.Now()
	res, err := p.pass(ctx)

	p.mu.Lock()
	p.lastPassAt = p.opts.Now()
	p.mu.Unlock()
	p.metrics.ObservePass(float64(time.Since(start).Microseconds())/1000.0, res.Synced, res.Failed)
	return res, err
}

// SyncOne attempts a single pending order, used right after submission.
func (p *Processor) SyncOne(ctx context.Context, orderID string) error {
	if !p.conn.IsOnline() {
		return ErrOffline
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrPassInFlight
	}
	defer p.inFlight.Store(false)

	o, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusPending {
		return nil
	}
	out, err := p.syncOrder(ctx, o)
	if err != nil || out == outcomeHalted {
		return err
	}
	return p.recordOrderTask(context.WithoutCancel(ctx), TaskID(orderID), o)
}

// Recover puts orders left in syncing by an interrupted process back to
// pending. The interrupted attempt is not counted.
func (p *Processor) Recover(ctx context.Context) (int, error) {
	return p.requeueSyncing(ctx)
}

// requeueSyncing resets every syncing order to pending. Only the holder of
// the in-flight flag marks orders syncing, so with the flag held (or before
// any pass has started) every one of them is stale.
func (p *Processor) requeueSyncing(ctx context.Context) (int, error) {
	stuck, err := p.store.OrdersByStatus(ctx, domain.StatusSyncing)
	if err != nil {
		return 0, fmt.Errorf("list syncing orders: %w", err)
	}
	for i := range stuck {
		o := &stuck[i]
		o.Status = domain.StatusPending
		o.UpdatedAt = p.opts.Now()
		if err := p.store.PutOrder(ctx, o); err != nil {
			return i, fmt.Errorf("reset order %s: %w", o.ID, err)
		}
		p.logger.Warn("Order was interrupted mid-sync, requeued", zap.String("order_id", o.ID))
		p.publish(o, nil)
	}
	return len(stuck), nil
}

// TaskID is the id of the queue entry created for an order.
func TaskID(orderID string) string { return "sync-" + orderID }
