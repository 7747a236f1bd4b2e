package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound reports a missing entity.
type ErrNotFound struct {
	Resource string // entity type, e.g. "Scenario"
	ID       string
	UserID   string
}

func (e ErrNotFound) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("%s with ID '%s' not found for user '%s'", e.Resource, e.ID, e.UserID)
	}
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

// IsNotFound checks if an error is a repository not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// NewNotFound creates a new ErrNotFound with user context.
func NewNotFound(resource, id, userID string) ErrNotFound {
	return ErrNotFound{Resource: resource, ID: id, UserID: userID}
}

// ErrConflict reports a write rejected by the backend, e.g. a duplicate key
// or a failed optimistic-lock condition.
type ErrConflict struct {
	Resource string
	ID       string
	Reason   string
}

func (e ErrConflict) Error() string {
	return fmt.Sprintf("conflict with %s '%s': %s", e.Resource, e.ID, e.Reason)
}

// IsConflict checks if an error is a repository conflict error.
func IsConflict(err error) bool {
	var c ErrConflict
	return errors.As(err, &c)
}

// NewConflict creates a new ErrConflict.
func NewConflict(resource, id, reason string) ErrConflict {
	return ErrConflict{Resource: resource, ID: id, Reason: reason}
}

// TransientError marks an error as retryable regardless of its cause.
// Backends and tests wrap errors with Transient when they know the failure
// is momentary.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string { return e.Err.Error() }
func (e TransientError) Unwrap() error { return e.Err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return TransientError{Err: err}
}

// transientDynamoCodes are DynamoDB error codes worth retrying.
var transientDynamoCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"LimitExceededException":                 true,
}

// IsTransient classifies an error as a momentary persistence failure that a
// retry may clear. Business errors (not found, conflict, validation) are
// never transient; only these feed the secondary-write retry policy.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsNotFound(err) || IsConflict(err) {
		return false
	}

	var te TransientError
	if errors.As(err, &te) {
		return true
	}

	// Network-level timeouts.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// DynamoDB throttling and server faults.
	var throughput *ddbtypes.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}
	var serverErr *ddbtypes.InternalServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientDynamoCodes[apiErr.ErrorCode()] {
		return true
	}

	// Postgres: connection failures (class 08), serialization failures,
	// deadlocks, and admin shutdowns (class 57) are retryable.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return true
		case strings.HasPrefix(pgErr.Code, "57"):
			return true
		}
	}

	return false
}
