package storage

import (
	"errors"
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/sentinel"
)

var (
	// ErrNotFound keeps backend 404s consistent across implementations.
	ErrNotFound = fmt.Errorf("item %w", sentinel.ErrNotFound)

	// ErrThrottled marks a retryable capacity failure (throttling, provisioned
	// throughput exceeded, transient internal errors).
	ErrThrottled = fmt.Errorf("backend throttled: %w", sentinel.ErrUnavailable)
)

// ConditionFailedError reports that the precondition of ops[Index] did not hold
// and the whole transaction was cancelled.
type ConditionFailedError struct {
	Index int
	// Exists is the observed state of the item when the backend reports it.
	Exists bool
}

func (e *ConditionFailedError) Error() string {
	state := "missing"
	if e.Exists {
		state = "present"
	}
	return fmt.Sprintf("condition check failed on operation %d (item %s)", e.Index, state)
}

// ThrottledError wraps a native backend error classified as retryable.
type ThrottledError struct {
	Err error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("backend throttled: %v", e.Err)
}

func (e *ThrottledError) Unwrap() error {
	return e.Err
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled || errors.Is(ErrThrottled, target)
}

// Throttled wraps err so errors.Is(err, ErrThrottled) holds.
func Throttled(err error) error {
	if err == nil {
		return nil
	}
	return &ThrottledError{Err: err}
}

// IsThrottled reports whether err is a retryable capacity failure.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
