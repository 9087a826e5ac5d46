package service

import "time"

type LookupSource string

const (
	SourceCache LookupSource = "cache"
	SourceDB    LookupSource = "db"
)

type LookupStats struct {
	Source  LookupSource
	CacheMs float64
	DBMs    float64
}

// SubmitStats reports where the time of a Submit call went. FastPath is
// empty when no fast-path attempt was made.
type SubmitStats struct {
	DBWriteMs  float64
	FastPathMs float64
	FastPath   string
}

// SyncStatus is a snapshot of the engine for status displays.
type SyncStatus struct {
	Online         bool       `json:"online"`
	SyncInProgress bool       `json:"syncInProgress"`
	PendingCount   int        `json:"pendingCount"`
	LastPassAt     *time.Time `json:"lastPassAt,omitempty"`
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
