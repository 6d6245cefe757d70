package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is the sentinel returned by repository point lookups that
// matched nothing. Callers distinguish it from real failures with errors.Is.
var ErrNotFound = errors.New("domain: entity not found")

// ConnectionError means opening or closing the content store failed. Fatal
// at startup; retryable afterwards.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("content store connection failed (%s): %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SessionError means a live database session aborted mid-operation. The
// session is rolled back before this is returned.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("database session aborted during %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// DatabaseError carries the failed operation and its context so repository
// callers can log something actionable.
type DatabaseError struct {
	Op      string
	Context string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("database error in %s (%s): %v", e.Op, e.Context, e.Err)
	}
	return fmt.Sprintf("database error in %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ValidationError means a row or an API reference failed schema checks.
// Per-row scope: the offending row is logged and skipped, the batch
// continues.
type ValidationError struct {
	Field string
	Value any
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q (value %v): %s", e.Field, e.Value, e.Msg)
}

// ReferenceNotFoundError means the reference resolver could not find the
// target of a reference triple in any visible pack.
type ReferenceNotFoundError struct {
	Ref   APIReference
	Depth int
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference %q (%s) not found at depth %d", e.Ref.Index, e.Ref.URL, e.Depth)
}

// CircularReferenceError means resolution revisited a URL already on the
// walk, or exceeded the maximum resolution depth.
type CircularReferenceError struct {
	URL  string
	Path []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference at %q (path length %d)", e.URL, len(e.Path))
}

// InvalidArgumentError covers caller mistakes the core refuses to act on:
// a table name off the whitelist, an embedding of the wrong dimension.
type InvalidArgumentError struct {
	Arg    string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q (value %v): %s", e.Arg, e.Value, e.Reason)
}

// RateLimitError is the AI-client signal that the provider throttled the
// request. Detected from usage metadata: zero completion tokens against
// non-zero prompt tokens.
type RateLimitError struct {
	Attempt      int
	PromptTokens int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on attempt %d (%d prompt tokens, 0 completion tokens)",
		e.Attempt, e.PromptTokens)
}

// TimeoutError means an external call exceeded its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.After, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
