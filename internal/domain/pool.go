package domain

import (
	"encoding/json"
	"time"
)

// Pool is a cached liquidity pool snapshot. It is reference data: refreshed
// opportunistically and allowed to go stale.
type Pool struct {
	PoolID    string          `json:"poolId"`
	Type      string          `json:"type"`
	Region    string          `json:"region"`
	Name      string          `json:"name,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
