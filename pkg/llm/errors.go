package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError carries the HTTP status a backend answered with.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ErrorClass tells a caller with alternatives what to do after a failure.
type ErrorClass int

const (
	// Transient errors may succeed later or with another provider.
	Transient ErrorClass = iota
	// Fatal errors will keep failing for this provider, e.g. a bad key.
	Fatal
	// Canceled means the caller gave up; nobody should retry.
	Canceled
)

func (c ErrorClass) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case Canceled:
		return "canceled"
	default:
		return "transient"
	}
}

// Classify sorts err by status code when a backend attached one and by its
// message otherwise. 400 and 429 stay transient: a 400 may be specific to
// one prompt or model.
func Classify(err error) ErrorClass {
	if err == nil {
		return Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden {
			return Fatal
		}
		return Transient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context canceled"), strings.Contains(msg, "context deadline exceeded"):
		return Canceled
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "invalid_api_key"), strings.Contains(msg, "api key not valid"):
		return Fatal
	}
	return Transient
}
