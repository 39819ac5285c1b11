package faults

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PersistenceError wraps a failed storage read or write. Callers that applied
// an optimistic in-memory mutation must roll it back before re-raising.
type PersistenceError struct {
	Code   string
	Detail string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("persistence error (%s): %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("persistence error (%s)", e.Code)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(code string, err error) *PersistenceError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &PersistenceError{Code: code, Detail: detail, Err: err}
}

// RateLimitError is a pre-call rejection; the guarded call was never attempted.
type RateLimitError struct {
	OperationClass string
	ResetInMinutes int
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rate limit reached for %s, resets in %d minute(s)", e.OperationClass, e.ResetInMinutes)
}

// QuotaError means the per-job generation ceiling for one artifact type is
// exhausted. Distinct from rate limiting so the caller can message it as such.
type QuotaError struct {
	JobID        uuid.UUID
	ArtifactType string
	Limit        int
}

func (e *QuotaError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("generation limit reached for %s on this job (max %d)", e.ArtifactType, e.Limit)
}

// AuditFailure means a privileged operation was aborted because its audit
// record could not be committed. The wrapped effect never ran.
type AuditFailure struct {
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Err        error
}

func (e *AuditFailure) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("audit write failed for %s on %s/%s, operation aborted", e.Action, e.EntityType, e.EntityID)
}

func (e *AuditFailure) Unwrap() error { return e.Err }

// GenerationError wraps a failed or malformed AI backend response. Recovered
// locally by falling back to an empty artifact, never by persisting partials.
type GenerationError struct {
	OperationClass string
	Err            error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("generation failed for %s", e.OperationClass)
}

func (e *GenerationError) Unwrap() error { return e.Err }
