package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotRetryable = errors.New("order is not in failed state")
)
