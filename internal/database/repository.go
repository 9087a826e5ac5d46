package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

// Repository maps the domain records onto the generic Store collections.
type Repository struct {
	store Store
}

var (
	_ domain.OrderRepository   = (*Repository)(nil)
	_ domain.ReceiptRepository = (*Repository)(nil)
	_ domain.PoolRepository    = (*Repository)(nil)
	_ domain.TaskRepository    = (*Repository)(nil)
)

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) PutOrder(ctx context.Context, o *domain.PendingOrder) error {
	return r.put(ctx, PendingOrders, o.ID, o, map[string]any{
		"created_at": o.CreatedAt.UnixMilli(),
		"status":     string(o.Status),
	})
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.PendingOrder, error) {
	var o domain.PendingOrder
	if err := r.get(ctx, PendingOrders, id, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// OrdersByStatus returns the matching orders oldest first.
func (r *Repository) OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.PendingOrder, error) {
	return query[domain.PendingOrder](ctx, r.store, PendingOrders, ByStatus, string(status))
}

func (r *Repository) Orders(ctx context.Context) ([]domain.PendingOrder, error) {
	return query[domain.PendingOrder](ctx, r.store, PendingOrders, ByTimestamp, nil)
}

func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	return r.store.Delete(ctx, PendingOrders, id)
}

// PutReceipt stores a receipt unless one with the same id already exists.
// Receipts are immutable once written.
func (r *Repository) PutReceipt(ctx context.Context, rc *domain.Receipt) error {
	_, found, err := r.store.Get(ctx, Receipts, rc.ReceiptID)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return r.put(ctx, Receipts, rc.ReceiptID, rc, map[string]any{
		"ts":       rc.Timestamp.UnixMilli(),
		"sender":   rc.Sender,
		"order_id": rc.OrderID,
	})
}

func (r *Repository) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	var rc domain.Receipt
	if err := r.get(ctx, Receipts, id, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *Repository) ReceiptsBySender(ctx context.Context, sender string) ([]domain.Receipt, error) {
	return query[domain.Receipt](ctx, r.store, Receipts, BySender, sender)
}

func (r *Repository) Receipts(ctx context.Context) ([]domain.Receipt, error) {
	return query[domain.Receipt](ctx, r.store, Receipts, ByTimestamp, nil)
}

// RecentReceiptIDs returns up to limit receipt ids, newest first.
func (r *Repository) RecentReceiptIDs(ctx context.Context, limit int) ([]string, error) {
	all, err := r.Receipts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(ids) < limit; i-- {
		ids = append(ids, all[i].ReceiptID)
	}
	return ids, nil
}

func (r *Repository) DeleteReceipt(ctx context.Context, id string) error {
	return r.store.Delete(ctx, Receipts, id)
}

func (r *Repository) PutPool(ctx context.Context, p *domain.Pool) error {
	return r.put(ctx, Pools, p.PoolID, p, map[string]any{
		"type":   p.Type,
		"region": p.Region,
	})
}

func (r *Repository) PoolsByType(ctx context.Context, poolType string) ([]domain.Pool, error) {
	return query[domain.Pool](ctx, r.store, Pools, ByType, poolType)
}

func (r *Repository) Pools(ctx context.Context) ([]domain.Pool, error) {
	return query[domain.Pool](ctx, r.store, Pools, ByType, nil)
}

func (r *Repository) PutTask(ctx context.Context, t *domain.SyncTask) error {
	return r.put(ctx, SyncQueue, t.ID, t, map[string]any{
		"priority":   t.Priority,
		"created_at": t.CreatedAt.UnixMilli(),
		"order_id":   t.OrderID,
	})
}

func (r *Repository) GetTask(ctx context.Context, id string) (*domain.SyncTask, error) {
	var t domain.SyncTask
	if err := r.get(ctx, SyncQueue, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Tasks returns the queue ordered by priority, then creation time.
func (r *Repository) Tasks(ctx context.Context) ([]domain.SyncTask, error) {
	return query[domain.SyncTask](ctx, r.store, SyncQueue, ByPriority, nil)
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	return r.store.Delete(ctx, SyncQueue, id)
}

func (r *Repository) put(ctx context.Context, c Collection, key string, v any, fields map[string]any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c, key, err)
	}
	return r.store.Put(ctx, c, Document{Key: key, Body: body, Fields: fields})
}

func (r *Repository) get(ctx context.Context, c Collection, key string, dst any) error {
	body, found, err := r.store.Get(ctx, c, key)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", c, key, err)
	}
	return nil
}

func query[T any](ctx context.Context, s Store, c Collection, idx Index, value any) ([]T, error) {
	bodies, err := s.QueryByIndex(ctx, c, idx, value)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(bodies))
	for _, b := range bodies {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c, err)
		}
		out = append(out, v)
	}
	return out, nil
}
