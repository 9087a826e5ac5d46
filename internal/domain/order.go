package domain

import "time"

type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusSyncing OrderStatus = "syncing"
	StatusSynced  OrderStatus = "synced"
	StatusFailed  OrderStatus = "failed"
)

// Terminal reports whether no automatic sync attempt will ever touch the order again.
func (s OrderStatus) Terminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// Coin is an amount in the chain's smallest unit. Amount is kept as the
// decimal string the caller supplied and is never parsed by the engine.
type Coin struct {
	Amount string `json:"amount" validate:"required"`
	Denom  string `json:"denom" validate:"required"`
}

// OrderPayload is the immutable transfer request handed over by the UI.
type OrderPayload struct {
	Sender             string `json:"sender" validate:"required"`
	Receiver           string `json:"receiver" validate:"required"`
	Amount             Coin   `json:"amount" validate:"required"`
	Memo               string `json:"memo,omitempty" validate:"max=256"`
	Priority           string `json:"priority,omitempty" validate:"omitempty,oneof=normal express"`
	Language           string `json:"language,omitempty"`
	SenderPostalCode   string `json:"senderPostalCode,omitempty"`
	ReceiverPostalCode string `json:"receiverPostalCode,omitempty"`
}

// PendingOrder is a transfer request that has not necessarily been
// confirmed by the remote ledger yet. ID doubles as the idempotency token.
type PendingOrder struct {
	ID         string       `json:"id"`
	Payload    OrderPayload `json:"payload"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Status     OrderStatus  `json:"status"`
	RetryCount int          `json:"retryCount"`
	LastError  string       `json:"lastError,omitempty"`
	ReceiptID  string       `json:"receiptId,omitempty"`
	SyncedAt   *time.Time   `json:"syncedAt,omitempty"`
}
