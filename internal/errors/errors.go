// Package errors defines the stable error codes and error types used across
// ai-blame. Every failure surfaced to the CLI carries one of these codes so
// operators and hook scripts can react to classes of failure rather than
// message strings.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotARepository indicates the working directory has no resolvable git root
	NotARepository ErrorCode = "NOT_A_REPOSITORY"
	// UnresolvableRevision indicates a revision string could not be resolved to a commit
	UnresolvableRevision ErrorCode = "UNRESOLVABLE_REVISION"
	// StagingCorrupt indicates the pending capture file exists but cannot be parsed
	StagingCorrupt ErrorCode = "STAGING_CORRUPT"
	// StagingLocked indicates the staging lock could not be acquired in time
	StagingLocked ErrorCode = "STAGING_LOCKED"
	// NoteConflict indicates a notes ref update lost a race and retries were exhausted
	NoteConflict ErrorCode = "NOTE_CONFLICT"
	// NoAttribution indicates an operation required an attribution record that does not exist
	NoAttribution ErrorCode = "NO_ATTRIBUTION"
	// PromptMissing indicates a prompt digest has no locally stored text
	PromptMissing ErrorCode = "PROMPT_MISSING"
	// GitOperation indicates a git subprocess failed
	GitOperation ErrorCode = "GIT_OPERATION"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Sentinel errors usable with errors.Is for the common control-flow checks.
var (
	// ErrNotARepository is wrapped by every NotARepository error
	ErrNotARepository = errors.New("not a git repository")

	// ErrNoAttribution is wrapped when a commit has no attribution record
	ErrNoAttribution = errors.New("no attribution record")

	// ErrStagingCorrupt is wrapped when pending capture state is unreadable
	ErrStagingCorrupt = errors.New("staging state corrupt")

	// ErrNoteConflict is wrapped when a notes write conflict persists after retries
	ErrNoteConflict = errors.New("notes ref update conflict")

	// ErrPromptMissing is wrapped when prompt text is absent from the local store
	ErrPromptMissing = errors.New("prompt text not stored locally")
)

// AttrError represents an ai-blame error with a stable code and optional cause
type AttrError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new AttrError
func New(code ErrorCode, message string, cause error) *AttrError {
	return &AttrError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new AttrError with a formatted message
func Newf(code ErrorCode, cause error, format string, args ...interface{}) *AttrError {
	return &AttrError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AttrError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AttrError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AttrError) WithDetails(details interface{}) *AttrError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err's chain, or InternalError when no
// AttrError is present.
func CodeOf(err error) ErrorCode {
	var ae *AttrError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
// This is a convenience function that wraps errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience function that wraps errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
