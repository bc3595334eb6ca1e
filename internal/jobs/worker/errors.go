package worker

import (
	"errors"
	"fmt"
)

var ErrCycleInProgress = errors.New("worker cycle already in progress")

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return e.Op + ": permanent failure"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(op string, err error) error {
	return &PermanentError{Op: op, Err: err}
}

type unknownEventError struct{ EventType string }

func (e *unknownEventError) Error() string { return "no notifier for event_type=" + e.EventType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

// IsRetryable reports whether a processing failure may be retried.
// Permanent errors and recovered panics are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	var p *panicError
	if errors.As(err, &p) {
		return false
	}
	return true
}
