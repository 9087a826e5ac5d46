package domain

import (
	"encoding/json"
	"time"
)

type TaskKind string

const (
	TaskOrder        TaskKind = "order"
	TaskPoolRefresh  TaskKind = "pool-refresh"
	TaskReceiptFetch TaskKind = "receipt-fetch"
)

// SyncTask is a unit of deferred work drained by the sync processor.
type SyncTask struct {
	ID            string          `json:"id"`
	Kind          TaskKind        `json:"kind"`
	OrderID       string          `json:"orderId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Priority      int             `json:"priority"`
	CreatedAt     time.Time       `json:"createdAt"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
}

type PoolRefreshPayload struct {
	PoolID string `json:"poolId"`
}

// ReceiptFetchPayload names either the receipt to fetch or, when the
// receipt id is unknown, the order whose receipt should be looked up.
type ReceiptFetchPayload struct {
	ReceiptID string `json:"receiptId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
}

// Queue priorities, lower runs first.
const (
	PriorityExpressOrder = 0
	PriorityOrder        = 1
	PriorityReceiptFetch = 2
	PriorityPoolRefresh  = 5
)

// OrderTaskPriority ranks express transfers ahead of normal ones.
func OrderTaskPriority(p OrderPayload) int {
	if p.Priority == "express" {
		return PriorityExpressOrder
	}
	return PriorityOrder
}
