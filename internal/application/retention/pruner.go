package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

type Store interface {
	domain.OrderRepository
	domain.ReceiptRepository
	domain.PoolRepository
	domain.TaskRepository
}

type receiptCache interface {
	Remove(id string)
}

type PruneResult struct {
	Orders   int `json:"orders"`
	Receipts int `json:"receipts"`
}

// Pruner deletes synced orders and receipts older than the retention
// window. Orders that never synced are kept whatever their age.
type Pruner struct {
	store    Store
	cache    receiptCache
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewPruner(store Store, cache receiptCache, window, interval time.Duration, logger *zap.Logger) *Pruner {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Pruner{
		store:    store,
		cache:    cache,
		window:   window,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (p *Pruner) Prune(ctx context.Context) (PruneResult, error) {
	var res PruneResult
	cutoff := p.now().Add(-p.window)

	synced, err := p.store.OrdersByStatus(ctx, domain.StatusSynced)
	if err != nil {
		return res, fmt.Errorf("list synced orders: %w", err)
	}
	for _, o := range synced {
		at := o.CreatedAt
		if o.SyncedAt != nil {
			at = *o.SyncedAt
		}
		if !at.Before(cutoff) {
			continue
		}
		if err := p.store.DeleteOrder(ctx, o.ID); err != nil {
			return res, fmt.Errorf("delete order %s: %w", o.ID, err)
		}
		res.Orders++
	}

	// oldest first, so stop at the first one inside the window
	receipts, err := p.store.Receipts(ctx)
	if err != nil {
		return res, fmt.Errorf("list receipts: %w", err)
	}
	for _, r := range receipts {
		if !r.Timestamp.Before(cutoff) {
			break
		}
		if err := p.store.DeleteReceipt(ctx, r.ReceiptID); err != nil {
			return res, fmt.Errorf("delete receipt %s: %w", r.ReceiptID, err)
		}
		if p.cache != nil {
			p.cache.Remove(r.ReceiptID)
		}
		res.Receipts++
	}

	if res.Orders > 0 || res.Receipts > 0 {
		p.logger.Info("Old data pruned",
			zap.Int("orders", res.Orders),
			zap.Int("receipts", res.Receipts),
			zap.Time("cutoff", cutoff),
		)
	}
	return res, nil
}

// Run prunes once at start and then on every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		if _, err := p.Prune(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Prune failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
