package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/backend"
	"github.com/TemirB/moneyorder-sync/internal/domain"
)

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeRetry
	outcomeFailed
	// outcomeHalted means the attempt did not count: the breaker is open
	// or the process is shutting down.
	outcomeHalted
)

func (p *Processor) pass(ctx context.Context) (PassResult, error) {
	var res PassResult

	if _, err := p.requeueSyncing(ctx); err != nil {
		return res, err
	}

	orders, err := p.store.OrdersByStatus(ctx, domain.StatusPending)
	if err != nil {
		return res, fmt.Errorf("list pending orders: %w", err)
	}

	attempted := make(map[string]struct{}, len(orders))
	for i := range orders {
		if ctx.Err() != nil || !p.conn.IsOnline() {
			res.Halted = true
			return res, nil
		}
		o := &orders[i]
		out, err := p.syncOrder(ctx, o)
		if err != nil {
			return res, err
		}
		if out == outcomeHalted {
			res.Halted = true
			return res, nil
		}
		attempted[o.ID] = struct{}{}
		res.count(out)
	}

	if err := p.drain(ctx, attempted, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (r *PassResult) count(out outcome) {
	r.Attempted++
	switch out {
	case outcomeSynced:
		r.Synced++
	case outcomeRetry:
		r.Retrying++
	case outcomeFailed:
		r.Failed++
	}
}

// syncOrder submits one pending order and persists the result. The
// returned error is a storage error; backend failures land on the order.
func (p *Processor) syncOrder(ctx context.Context, o *domain.PendingOrder) (outcome, error) {
	o.Status = domain.StatusSyncing
	o.UpdatedAt = p.opts.Now()
	if err := p.store.PutOrder(ctx, o); err != nil {
		return outcomeHalted, fmt.Errorf("mark order %s syncing: %w", o.ID, err)
	}
	p.publish(o, nil)

	receipt, err := p.backend.SubmitOrder(ctx, o)
	if err == nil {
		return outcomeSynced, p.markSynced(ctx, o, receipt)
	}

	// The outcome is persisted even when ctx ended during the call. A
	// deadline counts as a failed attempt; only cancellation goes uncounted.
	wctx := context.WithoutCancel(ctx)
	o.UpdatedAt = p.opts.Now()

	switch {
	case errors.Is(err, backend.ErrCircuitOpen), errors.Is(ctx.Err(), context.Canceled):
		o.Status = domain.StatusPending
		if perr := p.store.PutOrder(wctx, o); perr != nil {
			return outcomeHalted, fmt.Errorf("requeue order %s: %w", o.ID, perr)
		}
		p.publish(o, nil)
		return outcomeHalted, nil

	case errors.Is(err, backend.ErrRejected):
		o.Status = domain.StatusFailed
		o.LastError = err.Error()
		if perr := p.store.PutOrder(wctx, o); perr != nil {
			return outcomeFailed, fmt.Errorf("fail order %s: %w", o.ID, perr)
		}
		p.logger.Warn("Order rejected by backend", zap.String("order_id", o.ID), zap.Error(err))
		p.publish(o, nil)
		return outcomeFailed, nil

	default:
		o.RetryCount++
		o.LastError = err.Error()
		out := outcomeRetry
		o.Status = domain.StatusPending
		if o.RetryCount >= p.opts.OrderMaxRetries {
			o.Status = domain.StatusFailed
			out = outcomeFailed
		}
		if perr := p.store.PutOrder(wctx, o); perr != nil {
			return out, fmt.Errorf("record failure of order %s: %w", o.ID, perr)
		}
		p.logger.Info("Order sync attempt failed",
			zap.String("order_id", o.ID),
			zap.Int("retry_count", o.RetryCount),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
		p.publish(o, nil)
		return out, nil
	}
}

// markSynced stores the receipt before the order that references it. The
// backend has already settled the order, so the writes ignore cancellation
// of ctx.
func (p *Processor) markSynced(ctx context.Context, o *domain.PendingOrder, receipt *domain.Receipt) error {
	ctx = context.WithoutCancel(ctx)
	if receipt.OrderID == "" {
		receipt.OrderID = o.ID
	}
	if err := p.store.PutReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("store receipt %s: %w", receipt.ReceiptID, err)
	}

	now := p.opts.Now()
	o.Status = domain.StatusSynced
	o.ReceiptID = receipt.ReceiptID
	o.LastError = ""
	o.SyncedAt = &now
	o.UpdatedAt = now
	if err := p.store.PutOrder(ctx, o); err != nil {
		return fmt.Errorf("mark order %s synced: %w", o.ID, err)
	}
	p.logger.Info("Order synced", zap.String("order_id", o.ID), zap.String("receipt_id", receipt.ReceiptID))
	p.publish(o, receipt)
	return nil
}

func (p *Processor) publish(o *domain.PendingOrder, receipt *domain.Receipt) {
	if p.events == nil {
		return
	}
	ev := domain.Event{
		OrderID: o.ID,
		Status:  o.Status,
		Receipt: receipt,
		At:      p.opts.Now(),
	}
	if o.Status != domain.StatusSynced {
		ev.Error = o.LastError
	}
	p.events.Publish(ev)
}
