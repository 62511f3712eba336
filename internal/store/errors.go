package store

import "fmt"

// WriteError wraps a failed create, update, or delete. Codes follow the
// "operation.reason" convention so log lines stay greppable.
type WriteError struct {
	code string
	err  error
}

func (e *WriteError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *WriteError) Unwrap() error {
	return e.err
}

func (e *WriteError) Code() string {
	return e.code
}

func newWriteError(operation, reason string, cause error) error {
	return &WriteError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// SubscriptionError indicates the live change feed broke. A permission
// denied variant during sign-out is expected and should be swallowed by
// callers rather than surfaced.
type SubscriptionError struct {
	code             string
	err              error
	permissionDenied bool
}

func (e *SubscriptionError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.err
}

// PermissionDenied reports whether the feed closed because credentials were
// revoked, the expected shape during a concurrent sign-out.
func (e *SubscriptionError) PermissionDenied() bool {
	return e.permissionDenied
}

// NewSubscriptionError builds a subscription failure with the given code.
func NewSubscriptionError(code string, cause error, permissionDenied bool) *SubscriptionError {
	return &SubscriptionError{code: code, err: cause, permissionDenied: permissionDenied}
}
