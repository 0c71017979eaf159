package suite

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a case failed
type FailureKind string

const (
	KindNone             FailureKind = ""
	KindAssertion        FailureKind = "assertion"
	KindInterceptTimeout FailureKind = "intercept-timeout"
	KindHook             FailureKind = "hook"
	KindTimeout          FailureKind = "timeout"
	KindCancelled        FailureKind = "cancelled"
	KindPanic            FailureKind = "panic"
	KindError            FailureKind = "error"
)

// Kinder is implemented by errors that know their failure kind
type Kinder interface {
	FailureKind() string
}

// HookError wraps a failure in a lifecycle hook
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) FailureKind() string { return string(KindHook) }

// PanicError carries a recovered panic and the stack it was raised on
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) FailureKind() string { return string(KindPanic) }

// Classify returns the failure kind of err. A case whose own deadline expired
// is a timeout regardless of what was running when it expired; a case whose
// context was cancelled is cancelled.
func Classify(err error, caseErr error) FailureKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(caseErr, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(caseErr, context.Canceled) {
		return KindCancelled
	}
	var k Kinder
	if errors.As(err, &k) {
		return FailureKind(k.FailureKind())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindError
}
