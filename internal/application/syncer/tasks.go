package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/backend"
	"github.com/TemirB/moneyorder-sync/internal/domain"
)

var errReceiptNotReady = errors.New("receipt not yet issued")

type taskResult int

const (
	taskDone taskResult = iota
	taskRetry
	taskPermanent
	taskHalt
)

// taskOutcome is what happened to a task; cause explains a failure.
type taskOutcome struct {
	result taskResult
	cause  error
}

func done() taskOutcome                  { return taskOutcome{result: taskDone} }
func halt() taskOutcome                  { return taskOutcome{result: taskHalt} }
func retryLater(cause error) taskOutcome { return taskOutcome{result: taskRetry, cause: cause} }
func giveUp(cause error) taskOutcome     { return taskOutcome{result: taskPermanent, cause: cause} }

// drain walks the queue by priority, then age, touching each task once.
// Order tasks whose order was attempted earlier in the pass only get that
// outcome recorded.
func (p *Processor) drain(ctx context.Context, attempted map[string]struct{}, res *PassResult) error {
	tasks, err := p.store.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for i := range tasks {
		if ctx.Err() != nil || !p.conn.IsOnline() {
			res.Halted = true
			return nil
		}
		t := &tasks[i]

		if t.Kind == domain.TaskOrder {
			if _, ok := attempted[t.OrderID]; ok {
				o, err := p.store.GetOrder(ctx, t.OrderID)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				if err := p.recordOrderTask(ctx, t.ID, o); err != nil {
					return err
				}
				continue
			}
		}

		out, err := p.runTask(ctx, t, attempted, res)
		if err != nil {
			return err
		}
		switch out.result {
		case taskHalt:
			res.Halted = true
			return nil
		case taskDone:
			if err := p.store.DeleteTask(ctx, t.ID); err != nil {
				return fmt.Errorf("delete task %s: %w", t.ID, err)
			}
			res.TasksDone++
		case taskPermanent:
			if err := p.dropTask(ctx, t, out.cause); err != nil {
				return err
			}
			res.TasksDropped++
		case taskRetry:
			dropped, err := p.recordAttempt(ctx, t, out.cause)
			if err != nil {
				return err
			}
			if dropped {
				res.TasksDropped++
			}
		}
	}
	return nil
}

// runTask executes a task. A returned error is a storage error and aborts
// the pass; the task's own failure is carried in the outcome.
func (p *Processor) runTask(ctx context.Context, t *domain.SyncTask, attempted map[string]struct{}, res *PassResult) (taskOutcome, error) {
	switch t.Kind {
	case domain.TaskOrder:
		return p.runOrderTask(ctx, t, attempted, res)
	case domain.TaskPoolRefresh:
		var pl domain.PoolRefreshPayload
		if err := json.Unmarshal(t.Payload, &pl); err != nil || pl.PoolID == "" {
			return giveUp(fmt.Errorf("bad pool-refresh payload: %v", err)), nil
		}
		return p.refreshPool(ctx, pl.PoolID)
	case domain.TaskReceiptFetch:
		var pl domain.ReceiptFetchPayload
		if err := json.Unmarshal(t.Payload, &pl); err != nil || (pl.ReceiptID == "" && pl.OrderID == "") {
			return giveUp(fmt.Errorf("bad receipt-fetch payload: %v", err)), nil
		}
		return p.fetchReceipt(ctx, pl)
	default:
		return giveUp(fmt.Errorf("unknown task kind %q", t.Kind)), nil
	}
}

func (p *Processor) runOrderTask(ctx context.Context, t *domain.SyncTask, attempted map[string]struct{}, res *PassResult) (taskOutcome, error) {
	o, err := p.store.GetOrder(ctx, t.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return done(), nil
	}
	if err != nil {
		return halt(), err
	}
	if o.Status.Terminal() {
		return done(), nil
	}
	// syncing here means an interrupted process left it behind.
	if o.Status != domain.StatusPending {
		return retryLater(errors.New("order is still marked syncing")), nil
	}

	out, err := p.syncOrder(ctx, o)
	if err != nil {
		return halt(), err
	}
	if out == outcomeHalted {
		return halt(), nil
	}
	attempted[o.ID] = struct{}{}
	res.count(out)
	if out == outcomeRetry {
		return retryLater(errors.New(o.LastError)), nil
	}
	return done(), nil
}

func (p *Processor) refreshPool(ctx context.Context, poolID string) (taskOutcome, error) {
	pool, err := p.backend.Pool(ctx, poolID)
	if err != nil {
		return classify(ctx, err), nil
	}
	pool.UpdatedAt = p.opts.Now()
	if err := p.store.PutPool(ctx, pool); err != nil {
		return halt(), fmt.Errorf("store pool %s: %w", poolID, err)
	}
	return done(), nil
}

// fetchReceipt resolves the receipt of an order settled out of band, e.g.
// when the submit response was lost, and reconciles the local order.
func (p *Processor) fetchReceipt(ctx context.Context, pl domain.ReceiptFetchPayload) (taskOutcome, error) {
	receiptID := pl.ReceiptID
	if receiptID == "" {
		st, err := p.backend.OrderStatus(ctx, pl.OrderID)
		if err != nil {
			return classify(ctx, err), nil
		}
		if st.ReceiptID == "" {
			return retryLater(errReceiptNotReady), nil
		}
		receiptID = st.ReceiptID
	}

	receipt, err := p.backend.Receipt(ctx, receiptID)
	if err != nil {
		return classify(ctx, err), nil
	}
	if receipt.OrderID == "" {
		receipt.OrderID = pl.OrderID
	}
	if err := p.store.PutReceipt(ctx, receipt); err != nil {
		return halt(), fmt.Errorf("store receipt %s: %w", receipt.ReceiptID, err)
	}

	if receipt.OrderID == "" {
		return done(), nil
	}
	o, err := p.store.GetOrder(ctx, receipt.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return done(), nil
	}
	if err != nil {
		return halt(), err
	}
	if o.Status == domain.StatusSynced {
		return done(), nil
	}
	p.logger.Info("Order settled out of band", zap.String("order_id", o.ID), zap.String("prev_status", string(o.Status)))
	if err := p.markSynced(ctx, o, receipt); err != nil {
		return halt(), err
	}
	return done(), nil
}

// classify maps a failed backend call onto a task outcome.
func classify(ctx context.Context, err error) taskOutcome {
	switch {
	case errors.Is(err, backend.ErrCircuitOpen), errors.Is(ctx.Err(), context.Canceled):
		return halt()
	case errors.Is(err, backend.ErrRejected):
		return giveUp(err)
	default:
		return retryLater(err)
	}
}

// recordOrderTask mirrors the order's latest outcome onto its queue entry.
// A nil or terminal order retires the task.
func (p *Processor) recordOrderTask(ctx context.Context, id string, o *domain.PendingOrder) error {
	if o == nil || o.Status.Terminal() {
		if err := p.store.DeleteTask(ctx, id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		return nil
	}
	t, err := p.store.GetTask(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = p.recordAttempt(ctx, t, errors.New(o.LastError))
	return err
}

// recordAttempt counts a failed attempt and drops the task once it has used
// all of its attempts.
func (p *Processor) recordAttempt(ctx context.Context, t *domain.SyncTask, cause error) (bool, error) {
	now := p.opts.Now()
	t.Attempts++
	t.LastAttemptAt = &now
	if cause != nil {
		t.LastError = cause.Error()
	}
	if t.Attempts >= p.opts.TaskMaxAttempts {
		return true, p.dropTask(ctx, t, cause)
	}
	if err := p.store.PutTask(ctx, t); err != nil {
		return false, fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return false, nil
}

// dropTask removes a task for good and surfaces why on its order.
func (p *Processor) dropTask(ctx context.Context, t *domain.SyncTask, cause error) error {
	if err := p.store.DeleteTask(ctx, t.ID); err != nil {
		return fmt.Errorf("delete task %s: %w", t.ID, err)
	}
	msg := fmt.Sprintf("%s task dropped after %d attempts", t.Kind, t.Attempts)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	p.logger.Warn("Task dropped",
		zap.String("task_id", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("order_id", t.OrderID),
		zap.Int("attempts", t.Attempts),
		zap.NamedError("cause", cause),
	)

	if t.OrderID == "" {
		return nil
	}
	o, err := p.store.GetOrder(ctx, t.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if o.Status == domain.StatusSynced {
		return nil
	}
	o.LastError = msg
	o.UpdatedAt = p.opts.Now()
	if err := p.store.PutOrder(ctx, o); err != nil {
		return fmt.Errorf("surface task failure on order %s: %w", o.ID, err)
	}
	p.publish(o, nil)
	return nil
}
