package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/config"
	"github.com/TemirB/moneyorder-sync/internal/database"
	"github.com/TemirB/moneyorder-sync/internal/kafka"
	"github.com/TemirB/moneyorder-sync/internal/pkg/retry"
)

//go:generate mockgen -source handler.go -destination=handler_mock_test.go -package=handler

var (
	ErrBadJSON     = errors.New("bad json")
	ErrEnqueue     = errors.New("enqueue failed")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Confirmation is the backend's notice that an order has settled.
type Confirmation struct {
	OrderID   string `json:"orderId"`
	ReceiptID string `json:"receiptId,omitempty"`
}

type Service interface {
	EnqueueReceiptFetch(ctx context.Context, orderID, receiptID string) error
}

type brk interface {
	Allow() error
	Success()
	Failure()
}

// Handler turns confirmation messages into receipt-fetch tasks, so orders
// whose submit response was lost still end up synced.
type Handler struct {
	service     Service
	breaker     brk
	logger      *zap.Logger
	retryPolicy config.Retry
}

func NewHandler(service Service, brk brk, retryPolicy config.Retry, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		breaker:     brk,
		logger:      logger,
		retryPolicy: retryPolicy,
	}
}

// Handle is called by the consumer for one message; the consumer commits
// the offset when it returns nil.
func (h *Handler) Handle(ctx context.Context, message kafkago.Message) error {
	if err := h.breaker.Allow(); err != nil {
		h.logger.Warn("circuit breaker is open",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	var c Confirmation
	if err := json.Unmarshal(message.Value, &c); err != nil {
		h.logger.Error("bad json format",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return fmt.Errorf("%w: %w", ErrBadJSON, kafka.ErrUnprocessable)
	}
	if c.OrderID == "" {
		h.logger.Error("missing orderId",
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return fmt.Errorf("%w: %w", ErrBadJSON, kafka.ErrUnprocessable)
	}

	// Only lock contention is retried; other errors would fail the same way.
	if err := retry.Do(ctx, h.retryPolicy, func() error {
		err := h.service.EnqueueReceiptFetch(ctx, c.OrderID, c.ReceiptID)
		if err != nil && !database.IsBusy(err) {
			return retry.Permanent(err)
		}
		return err
	}); err != nil {
		h.logger.Error("enqueue failed",
			zap.String("order_id", c.OrderID),
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		h.breaker.Failure()
		return fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	h.breaker.Success()
	h.logger.Info("confirmation queued",
		zap.String("order_id", c.OrderID),
		zap.String("receipt_id", c.ReceiptID),
		zap.Int("partition", message.Partition),
		zap.Int64("offset", message.Offset),
	)
	return nil
}
