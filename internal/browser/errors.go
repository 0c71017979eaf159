package browser

import (
	"fmt"
	"strings"
	"time"
)

// Failure kinds advertised by errors from this package
const (
	FailureAssertion        = "assertion"
	FailureInterceptTimeout = "intercept-timeout"
)

// AssertionError reports an assertion whose condition never held within its
// retry window. Expected and Actual are human readable renderings.
type AssertionError struct {
	Subject   string
	Assertion string
	Expected  string
	Actual    string
	Timeout   time.Duration // Zero for assertions that are not retried
	Cause     error         // Last sampling error, if the page could not be read
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	if e.Timeout > 0 {
		fmt.Fprintf(&b, "timed out retrying after %s: ", e.Timeout)
	}
	fmt.Fprintf(&b, "expected %s to %s", e.Subject, e.Assertion)
	if e.Expected != "" {
		fmt.Fprintf(&b, " %s", e.Expected)
	}
	fmt.Fprintf(&b, ", but got %s", e.Actual)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (last error: %v)", e.Cause)
	}
	return b.String()
}

func (e *AssertionError) Unwrap() error { return e.Cause }

// FailureKind classifies the error for case results
func (e *AssertionError) FailureKind() string { return FailureAssertion }

// InterceptTimeoutError reports a network wait that saw no matching request,
// or saw the request but never its response
type InterceptTimeoutError struct {
	Alias   string
	Method  string
	Pattern string
	Phase   string // "request" or "response"
	Ordinal int    // Which wait on the alias this was, starting at 1
	Timeout time.Duration
}

func (e *InterceptTimeoutError) Error() string {
	if e.Phase == "response" {
		return fmt.Sprintf("timed out after %s waiting for the response to request %d on route @%s (%s %s)",
			e.Timeout, e.Ordinal, e.Alias, e.Method, e.Pattern)
	}
	return fmt.Sprintf("timed out after %s waiting for request %d on route @%s (%s %s): no intercepted request observed",
		e.Timeout, e.Ordinal, e.Alias, e.Method, e.Pattern)
}

// FailureKind classifies the error for case results
func (e *InterceptTimeoutError) FailureKind() string { return FailureInterceptTimeout }

// AliasError reports a reference to a name never bound in the current case
type AliasError struct {
	Name string
}

func (e *AliasError) Error() string {
	return fmt.Sprintf("alias @%s has not been declared in this case", e.Name)
}

// ExpectEqual is a one-shot assertion for callbacks: it returns an
// AssertionError when actual differs from expected
func ExpectEqual[T comparable](subject string, expected, actual T) error {
	if expected == actual {
		return nil
	}
	return &AssertionError{
		Subject:   subject,
		Assertion: "equal",
		Expected:  fmt.Sprintf("%v", expected),
		Actual:    fmt.Sprintf("%v", actual),
	}
}
