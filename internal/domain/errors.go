package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is bad input shape or format
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthError means no authenticated caller, or a caller without access
type AuthError struct {
	Message   string
	Forbidden bool
}

func (e *AuthError) Error() string {
	return e.Message
}

// HostAPIError is a non-2xx response from GitHub. StatusCode is 0 when the failure was not HTTP level.
type HostAPIError struct {
	Message    string
	StatusCode int
	RawBody    string
}

func (e *HostAPIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("GitHub API error: %d - %s", e.StatusCode, e.Message)
}

// IsClientError reports a 4xx response
func (e *HostAPIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// TransportError is a network level failure talking to GitHub (timeout, reset, TLS)
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CryptoError wraps encryption failures. Its message never carries cipher internals.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("failed to %s value", e.Op)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// ConfigInvalidError blocks an operation before any outbound call
type ConfigInvalidError struct {
	Reason  string
	Missing []string
}

func (e *ConfigInvalidError) Error() string {
	if len(e.Missing) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: missing %s", e.Reason, strings.Join(e.Missing, ", "))
}

// NotFoundError is a missing issue, mapping or GitHub resource
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsNotFound matches NotFoundError and GitHub 404s
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var apiErr *HostAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// ValidationErrors collects every problem found in one input
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the individual messages in order
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// GitHubOperationError is a failed user-initiated GitHub call, with guidance for the user
type GitHubOperationError struct {
	Op       string
	Guidance string
	Err      error
}

func (e *GitHubOperationError) Error() string {
	return fmt.Sprintf("Failed to %s on GitHub: %v. %s", e.Op, e.Err, e.Guidance)
}

func (e *GitHubOperationError) Unwrap() error {
	return e.Err
}
