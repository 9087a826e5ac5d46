package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/application/syncer"
	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/notify"
	"github.com/TemirB/moneyorder-sync/internal/observability"
)

type Store interface {
	domain.OrderRepository
	domain.ReceiptRepository
	domain.PoolRepository
	domain.TaskRepository
}

type Options struct {
	// RequestTimeout bounds the fast-path attempt made by Submit.
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Service is the entry point for callers: it accepts orders, answers
// status queries and serves the cached reference data.
type Service struct {
	store   Store
	cache   Cache
	syncer  Syncer
	events  Events
	conn    Connectivity
	logger  *zap.Logger
	metrics observability.Metrics
	opts    Options
}

func NewService(
	store Store,
	cache Cache,
	syncer Syncer,
	events Events,
	conn Connectivity,
	logger *zap.Logger,
	metrics observability.Metrics,
	opts Options,
) *Service {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Service{
		store:   store,
		cache:   cache,
		syncer:  syncer,
		events:  events,
		conn:    conn,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// NewOrderID returns offline-<unix ms>-<random>. The id is the order's
// idempotency key for its whole life.
func NewOrderID(now time.Time) string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	// bytes 10..15 of a v7 uuid are random
	return fmt.Sprintf("offline-%d-%s", now.UnixMilli(), hex.EncodeToString(u[10:15]))
}

// Submit stores the order and queues it for sync. It fails only when the
// local write fails; a network problem just leaves the order pending.
func (s *Service) Submit(ctx context.Context, payload domain.OrderPayload) (string, error) {
	id, _, err := s.SubmitWithStats(ctx, payload)
	return id, err
}

func (s *Service) SubmitWithStats(ctx context.Context, payload domain.OrderPayload) (string, SubmitStats, error) {
	var st SubmitStats

	now := s.opts.Now()
	order := &domain.PendingOrder{
		ID:        NewOrderID(now),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    domain.StatusPending,
	}

	// The task goes in first: a task without its order is retired by the
	// next pass, while an order stored after a failed call would still be
	// submitted.
	t0 := time.Now()
	task := orderTask(order, now)
	if err := s.store.PutTask(ctx, task); err != nil {
		s.logger.Error("Error while queueing order", zap.String("order_id", order.ID), zap.Error(err))
		return "", st, err
	}
	if err := s.store.PutOrder(ctx, order); err != nil {
		s.logger.Error("Error while storing order", zap.String("order_id", order.ID), zap.Error(err))
		if derr := s.store.DeleteTask(context.WithoutCancel(ctx), task.ID); derr != nil {
			s.logger.Warn("Orphan task left in queue", zap.String("task_id", task.ID), zap.Error(derr))
		}
		return "", st, err
	}
	st.DBWriteMs = convertToMs(t0)
	s.metrics.ObserveSubmit(st.DBWriteMs)

	s.logger.Info("Order accepted",
		zap.String("order_id", order.ID),
		zap.Float64("db_write_ms", st.DBWriteMs),
	)

	if s.conn.IsOnline() {
		t1 := time.Now()
		st.FastPath = s.fastPath(ctx, order.ID)
		st.FastPathMs = convertToMs(t1)
	}
	return order.ID, st, nil
}

// fastPath makes one attempt for a fresh order. Whatever happens, the order
// stays in the store for the next pass.
func (s *Service) fastPath(ctx context.Context, orderID string) string {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	err := s.syncer.SyncOne(ctx, orderID)
	switch {
	case err == nil:
		return "attempted"
	case errors.Is(err, syncer.ErrPassInFlight):
		// the running pass listed its orders before this one was written
		s.syncer.Trigger()
		return "deferred"
	default:
		s.logger.Debug("Fast-path sync skipped", zap.String("order_id", orderID), zap.Error(err))
		return "skipped"
	}
}

func (s *Service) GetStatus(ctx context.Context, orderID string) (*domain.PendingOrder, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListPending returns every order still waiting for a final outcome,
// oldest first.
func (s *Service) ListPending(ctx context.Context) ([]domain.PendingOrder, error) {
	all, err := s.store.Orders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingOrder, 0, len(all))
	for _, o := range all {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

// ForceSync runs a pass now and waits for it.
func (s *Service) ForceSync(ctx context.Context) (syncer.PassResult, error) {
	return s.syncer.RunPass(ctx)
}

// Retry gives a failed order a fresh set of attempts.
func (s *Service) Retry(ctx context.Context, orderID string) error {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusFailed {
		return fmt.Errorf("%w: %s is %s", domain.ErrNotRetryable, orderID, o.Status)
	}

	now := s.opts.Now()
	o.Status = domain.StatusPending
	o.RetryCount = 0
	o.LastError = ""
	o.UpdatedAt = now
	if err := s.store.PutOrder(ctx, o); err != nil {
		return err
	}
	if err := s.store.PutTask(ctx, orderTask(o, now)); err != nil {
		return err
	}

	s.logger.Info("Order requeued", zap.String("order_id", orderID))
	s.events.Publish(domain.Event{OrderID: o.ID, Status: o.Status, At: now})
	s.syncer.Trigger()
	return nil
}

func (s *Service) Subscribe() *notify.Subscription {
	return s.events.Subscribe()
}

func (s *Service) SyncStatus(ctx context.Context) (SyncStatus, error) {
	st := SyncStatus{
		Online:         s.conn.IsOnline(),
		SyncInProgress: s.syncer.InFlight(),
	}
	if t := s.syncer.LastPassAt(); !t.IsZero() {
		st.LastPassAt = &t
	}
	pending, err := s.store.OrdersByStatus(ctx, domain.StatusPending)
	if err != nil {
		return st, err
	}
	st.PendingCount = len(pending)
	return st, nil
}

// CachePools upserts reference data handed over by the caller.
func (s *Service) CachePools(ctx context.Context, pools []domain.Pool) error {
	now := s.opts.Now()
	for i := range pools {
		p := pools[i]
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
		if err := s.store.PutPool(ctx, &p); err != nil {
			return fmt.Errorf("cache pool %s: %w", p.PoolID, err)
		}
	}
	return nil
}

// CachedPools returns pools of poolType, or all of them when it is empty.
func (s *Service) CachedPools(ctx context.Context, poolType string) ([]domain.Pool, error) {
	if poolType == "" {
		return s.store.Pools(ctx)
	}
	return s.store.PoolsByType(ctx, poolType)
}

// EnqueuePoolRefresh asks the processor to refetch one pool.
func (s *Service) EnqueuePoolRefresh(ctx context.Context, poolID string) error {
	raw, err := json.Marshal(domain.PoolRefreshPayload{PoolID: poolID})
	if err != nil {
		return err
	}
	return s.store.PutTask(ctx, &domain.SyncTask{
		ID:        "pool-" + poolID,
		Kind:      domain.TaskPoolRefresh,
		Payload:   raw,
		Priority:  domain.PriorityPoolRefresh,
		CreatedAt: s.opts.Now(),
	})
}

// CachedReceipts returns receipts sent by sender, or all of them.
func (s *Service) CachedReceipts(ctx context.Context, sender string) ([]domain.Receipt, error) {
	if sender == "" {
		return s.store.Receipts(ctx)
	}
	return s.store.ReceiptsBySender(ctx, sender)
}

func (s *Service) Receipt(ctx context.Context, id string) (*domain.Receipt, error) {
	r, _, err := s.ReceiptWithStats(ctx, id)
	return r, err
}

func (s *Service) ReceiptWithStats(ctx context.Context, id string) (*domain.Receipt, LookupStats, error) {
	var st LookupStats

	// Try cache
	tCacheStart := time.Now()
	if r, ok := s.cache.Get(id); ok {
		st.Source = SourceCache
		st.CacheMs = convertToMs(tCacheStart)
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, 0)

		s.logger.Debug("Receipt fetched from cache",
			zap.String("receipt_id", id),
			zap.Float64("cache_ms", st.CacheMs),
		)
		return r, st, nil
	}

	// Try DB
	s.metrics.IncCacheMiss()
	st.CacheMs = convertToMs(tCacheStart)

	tDbStart := time.Now()
	r, err := s.store.GetReceipt(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Can't read receipt",
				zap.String("receipt_id", id),
				zap.Error(err),
			)
		}
		return nil, st, err
	}

	st.Source = SourceDB
	st.DBMs = convertToMs(tDbStart)

	s.cache.Set(r)

	s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.DBMs)
	s.logger.Debug("Receipt fetched from DB",
		zap.String("receipt_id", id),
		zap.Float64("cache_ms", st.CacheMs),
		zap.Float64("db_ms", st.DBMs),
	)
	return r, st, nil
}

// EnqueueReceiptFetch queues a lookup of the receipt for an order settled
// by the backend. Orders already synced locally are skipped.
func (s *Service) EnqueueReceiptFetch(ctx context.Context, orderID, receiptID string) error {
	o, err := s.store.GetOrder(ctx, orderID)
	switch {
	case err == nil && o.Status == domain.StatusSynced:
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}

	raw, err := json.Marshal(domain.ReceiptFetchPayload{OrderID: orderID, ReceiptID: receiptID})
	if err != nil {
		return err
	}
	if err := s.store.PutTask(ctx, &domain.SyncTask{
		ID:        "receipt-" + orderID,
		Kind:      domain.TaskReceiptFetch,
		OrderID:   orderID,
		Payload:   raw,
		Priority:  domain.PriorityReceiptFetch,
		CreatedAt: s.opts.Now(),
	}); err != nil {
		return err
	}
	s.syncer.Trigger()
	return nil
}

func orderTask(o *domain.PendingOrder, now time.Time) *domain.SyncTask {
	return &domain.SyncTask{
		ID:        syncer.TaskID(o.ID),
		Kind:      domain.TaskOrder,
		OrderID:   o.ID,
		Priority:  domain.OrderTaskPriority(o.Payload),
		CreatedAt: now,
	}
}
