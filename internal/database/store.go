package database

import (
	"context"
	"errors"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrSchemaTooNew      = errors.New("store schema is newer than this build")
	ErrClosed            = errors.New("store is closed")
)

// Document is one stored record: its primary key, its JSON body and the
// values of the indexed columns of its collection (missing ones are NULL).
type Document struct {
	Key    string
	Body   []byte
	Fields map[string]any
}

// Store is the durable, index-queryable persistence used by the engine.
// Get reports a missing key with found == false and a nil error.
type Store interface {
	Put(ctx context.Context, c Collection, doc Document) error
	Get(ctx context.Context, c Collection, key string) (body []byte, found bool, err error)
	QueryByIndex(ctx context.Context, c Collection, idx Index, value any) ([][]byte, error)
	Delete(ctx context.Context, c Collection, key string) error
	Close() error
}
