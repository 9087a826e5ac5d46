package syncer

import (
	"context"

	"github.com/TemirB/moneyorder-sync/internal/backend"
	"github.com/TemirB/moneyorder-sync/internal/domain"
)

//go:generate mockgen -source backend.go -destination=backend_mock_test.go -package=syncer

// Backend is the remote ledger as seen by the processor.
type Backend interface {
	SubmitOrder(ctx context.Context, order *domain.PendingOrder) (*domain.Receipt, error)
	OrderStatus(ctx context.Context, orderID string) (*backend.OrderState, error)
	Receipt(ctx context.Context, receiptID string) (*domain.Receipt, error)
	Pool(ctx context.Context, poolID string) (*domain.Pool, error)
}
