package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TemirB/moneyorder-sync/internal/pkg/breaker"
)

var (
	// ErrTransient matches failures worth retrying: unreachable backend,
	// timeouts, 5xx, 408 and 429.
	ErrTransient = errors.New("backend: transient failure")
	// ErrRejected matches a definitive refusal of the request.
	ErrRejected = errors.New("backend: request rejected")
	// ErrCircuitOpen is returned without calling the backend while the
	// breaker is open.
	ErrCircuitOpen = breaker.ErrOpenState
)

// Error is a failed backend call.
type Error struct {
	StatusCode int // 0 when no response was received
	Code       string
	Message    string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Code != "":
		return fmt.Sprintf("backend %d %s: %s", e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("backend %d: %s", e.StatusCode, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Retryable
	case ErrRejected:
		return !e.Retryable
	}
	return false
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable *bool  `json:"retryable"`
	} `json:"error"`
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}
