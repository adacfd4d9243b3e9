package marketplace

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Client wraps exactly one of them.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrNotFound           = errors.New("not found")
	ErrUpstream           = errors.New("upstream failure")
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")
)

// APIError describes a failed upstream call.
type APIError struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ExhaustedError is returned when a rate-limited call used up its retry
// budget. Message is the last message the upstream sent.
type ExhaustedError struct {
	Op       string
	Attempts int
	Message  string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: rate limit exhausted after %d attempts: %s", e.Op, e.Attempts, e.Message)
}

func (e *ExhaustedError) Unwrap() error { return ErrRateLimitExhausted }

func classify(status int) error {
	switch {
	case status == 429:
		return ErrRateLimited
	case status == 404:
		return ErrNotFound
	default:
		return ErrUpstream
	}
}
