package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/config"
	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/observability"
	"github.com/TemirB/moneyorder-sync/internal/pkg/breaker"
	"github.com/TemirB/moneyorder-sync/internal/pkg/retry"
)

const maxBodyBytes = 1 << 20

// OrderState is the backend's view of a submitted order.
type OrderState struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	ReceiptID string `json:"receiptId"`
}

type submitResponse struct {
	Receipt *domain.Receipt `json:"receipt"`
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the remote money-order backend. Every request is bounded
// by the configured request timeout and guarded by a circuit breaker. Only
// idempotent reads are retried in place; order submission is retried by the
// sync processor across passes.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *breaker.Breaker
	retry   config.Retry
	metrics observability.Metrics
	logger  *zap.Logger
}

func New(
	cfg config.Backend,
	brk config.Breaker,
	rp config.Retry,
	metrics observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *Client {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	c := &Client{
		baseURL: cfg.URL,
		timeout: cfg.RequestTimeout,
		http:    &http.Client{},
		breaker: breaker.New(brk),
		retry:   rp,
		metrics: metrics,
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SubmitOrder posts the order payload with the order id as idempotency key
// and returns the backend's receipt.
func (c *Client) SubmitOrder(ctx context.Context, order *domain.PendingOrder) (*domain.Receipt, error) {
	body, err := json.Marshal(order.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var resp submitResponse
	err = c.guarded("submit", func() error {
		return c.do(ctx, http.MethodPost, "/money-orders", body, order.ID, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.Receipt == nil || resp.Receipt.ReceiptID == "" {
		return nil, &Error{StatusCode: http.StatusOK, Message: "response carries no receipt", Retryable: true}
	}
	if resp.Receipt.OrderID == "" {
		resp.Receipt.OrderID = order.ID
	}
	return resp.Receipt, nil
}

func (c *Client) OrderStatus(ctx context.Context, orderID string) (*OrderState, error) {
	var st OrderState
	if err := c.get(ctx, "order_status", "/money-orders/"+url.PathEscape(orderID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Receipt(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	var r domain.Receipt
	if err := c.get(ctx, "receipt", "/receipts/"+url.PathEscape(receiptID), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Pool(ctx context.Context, poolID string) (*domain.Pool, error) {
	var p domain.Pool
	if err := c.get(ctx, "pool", "/pools/"+url.PathEscape(poolID), &p); err != nil {
		return nil, err
	}
	if p.PoolID == "" {
		p.PoolID = poolID
	}
	return &p, nil
}

// Ping checks GET /health. It bypasses the breaker: reachability is what
// the connectivity monitor wants to know.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *Client) BreakerState() breaker.State { return c.breaker.State() }

func (c *Client) get(ctx context.Context, op, path string, dst any) error {
	return c.guarded(op, func() error {
		return retry.Do(ctx, c.retry, func() error {
			err := c.do(ctx, http.MethodGet, path, nil, "", dst)
			if err != nil && !errors.Is(err, ErrTransient) {
				return retry.Permanent(err)
			}
			return err
		})
	})
}

// guarded runs fn behind the breaker. Only transient failures count
// against the backend; a rejection proves it is alive.
func (c *Client) guarded(op string, fn func() error) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Debug("Backend call short-circuited", zap.String("op", op))
		return fmt.Errorf("%s: %w", op, ErrCircuitOpen)
	}

	start := time.Now()
	err := fn()
	c.metrics.ObserveBackend(op, err == nil, float64(time.Since(start).Microseconds())/1000.0)

	switch {
	case err == nil, errors.Is(err, ErrRejected):
		c.breaker.Success()
	case errors.Is(err, context.Canceled):
	default:
		c.breaker.Failure()
	}
	if err != nil {
		c.logger.Debug("Backend call failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string, dst any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return err
		}
		return &Error{Message: err.Error(), Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "read body: " + err.Error(), Retryable: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), Retryable: true, Err: err}
	}
	return nil
}

func decodeError(status int, raw []byte) *Error {
	e := &Error{
		StatusCode: status,
		Message:    http.StatusText(status),
		Retryable:  retryableStatus(status),
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Error.Code != "" {
			e.Code = eb.Error.Code
		}
		if eb.Error.Message != "" {
			e.Message = eb.Error.Message
		}
		if eb.Error.Retryable != nil {
			e.Retryable = *eb.Error.Retryable
		}
	}
	return e
}
