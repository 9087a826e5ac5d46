package domain

import (
	"context"
)

type OrderRepository interface {
	PutOrder(ctx context.Context, order *PendingOrder) error
	GetOrder(ctx context.Context, id string) (*PendingOrder, error)
	OrdersByStatus(ctx context.Context, status OrderStatus) ([]PendingOrder, error)
	Orders(ctx context.Context) ([]PendingOrder, error)
	DeleteOrder(ctx context.Context, id string) error
}

type ReceiptRepository interface {
	PutReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, id string) (*Receipt, error)
	ReceiptsBySender(ctx context.Context, sender string) ([]Receipt, error)
	Receipts(ctx context.Context) ([]Receipt, error)
	RecentReceiptIDs(ctx context.Context, limit int) ([]string, error)
	DeleteReceipt(ctx context.Context, id string) error
}

type PoolRepository interface {
	PutPool(ctx context.Context, pool *Pool) error
	PoolsByType(ctx context.Context, poolType string) ([]Pool, error)
	Pools(ctx context.Context) ([]Pool, error)
}

type TaskRepository interface {
	PutTask(ctx context.Context, task *SyncTask) error
	GetTask(ctx context.Context, id string) (*SyncTask, error)
	Tasks(ctx context.Context) ([]SyncTask, error)
	DeleteTask(ctx context.Context, id string) error
}
