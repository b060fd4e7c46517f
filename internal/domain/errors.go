package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrConfiguration is fatal at startup: unknown strategy labels and strategies
	// that no active provider could ever satisfy.
	ErrConfiguration = errors.New("configuration error")

	ErrInvalidProvider = errors.New("invalid provider")

	// ErrConsistency signals corrupted state, e.g. several default senders for one service.
	ErrConsistency = errors.New("consistency error")

	ErrRateLimited = errors.New("rate limit exceeded")
)

// Sender mutation failures. All of them are request-level validation errors.
var (
	ErrDefaultSenderRequired = fmt.Errorf("%w: default sender required", ErrValidation)
	ErrSenderNumberMismatch  = fmt.Errorf("%w: sender number mismatch", ErrValidation)
	ErrSenderNumberImmutable = fmt.Errorf("%w: sender number immutable", ErrValidation)
	ErrNumberUnavailable     = fmt.Errorf("%w: inbound number unavailable", ErrValidation)
	ErrProviderNotFound      = fmt.Errorf("%w: provider not found", ErrValidation)
	ErrRateLimitPairing      = fmt.Errorf("%w: rate limit pairing", ErrValidation)
)

// RateLimitError is returned when a sender exceeded its configured throughput.
type RateLimitError struct {
	SenderID   string
	Limit      int
	Interval   int
	RetryAfter time.Duration
}

func NewRateLimitError(senderID string, limit, interval int) *RateLimitError {
	retryAfter := time.Duration(0)
	if limit > 0 {
		retryAfter = time.Duration(float64(interval) / float64(limit) * float64(time.Second))
	}
	return &RateLimitError{
		SenderID:   senderID,
		Limit:      limit,
		Interval:   interval,
		RetryAfter: retryAfter,
	}
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: sender %s allows %d messages per %ds", ErrRateLimited, e.SenderID, e.Limit, e.Interval)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
