package repository

import (
	"errors"
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/sentinel"
)

// AlreadyExistsError reports a must_not_exist precondition failure: a copy with
// Key is already stored. Retrying the same write cannot succeed.
type AlreadyExistsError struct {
	Key storage.Key
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("item already exists: %s", e.Key)
}

func (e *AlreadyExistsError) Unwrap() error {
	return sentinel.ErrConflict
}

// ItemNotFoundError reports a read miss or a must_exist precondition failure.
type ItemNotFoundError struct {
	Key storage.Key
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item not found: %s", e.Key)
}

func (e *ItemNotFoundError) Unwrap() error {
	return sentinel.ErrNotFound
}

// UnhandledTransactionError carries the operations of a chunk the backend
// rejected for a reason the engine does not classify.
type UnhandledTransactionError struct {
	Operations []storage.Operation
	Err        error
}

func (e *UnhandledTransactionError) Error() string {
	return fmt.Sprintf("unhandled transaction error (%d operations): %v", len(e.Operations), e.Err)
}

func (e *UnhandledTransactionError) Unwrap() error {
	return e.Err
}

// BulkRetryExhaustedError holds every failed attempt of a bulk batch, in order.
type BulkRetryExhaustedError struct {
	Attempts []error
}

func (e *BulkRetryExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "bulk write retries exhausted"
	}
	return fmt.Sprintf("bulk write retries exhausted after %d attempts: %v", len(e.Attempts), e.Attempts[len(e.Attempts)-1])
}

func (e *BulkRetryExhaustedError) Unwrap() []error {
	return e.Attempts
}

// UnknownEventError means no handler is registered for an event. It is a
// programming error and is never retried.
type UnknownEventError struct {
	Event domain.Event
}

func (e *UnknownEventError) Error() string {
	if e.Event == nil {
		return "no handler for nil event"
	}
	return fmt.Sprintf("no handler for %s event %q", e.Event.Kind(), e.Event.EventName())
}

// Outcome classifies the result of a repository call at the boundary.
type Outcome int

const (
	Written Outcome = iota
	AlreadyExists
	NotFound
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case AlreadyExists:
		return "already_exists"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// OutcomeOf maps an error returned by the repository to an Outcome.
func OutcomeOf(err error) Outcome {
	var exists *AlreadyExistsError
	var missing *ItemNotFoundError
	switch {
	case err == nil:
		return Written
	case errors.As(err, &exists):
		return AlreadyExists
	case errors.As(err, &missing):
		return NotFound
	default:
		return Failed
	}
}
