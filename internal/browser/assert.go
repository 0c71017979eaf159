package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// assertion is a predicate over a query's elements plus the wording used when it fails
type assertion struct {
	name     string
	expected string
	check    func(els Elements) (ok bool, actual string)
}

func countOf(els Elements) string {
	if len(els) == 1 {
		return "1 element"
	}
	return fmt.Sprintf("%d elements", len(els))
}

func assertExist() assertion {
	return assertion{
		name: "exist",
		check: func(els Elements) (bool, string) {
			return len(els) > 0, countOf(els)
		},
	}
}

func assertNotExist() assertion {
	return assertion{
		name: "not exist",
		check: func(els Elements) (bool, string) {
			return len(els) == 0, countOf(els)
		},
	}
}

func assertVisible() assertion {
	return assertion{
		name: "be visible",
		check: func(els Elements) (bool, string) {
			if len(els) == 0 {
				return false, "no elements"
			}
			hidden := 0
			for _, e := range els {
				if !e.Visible {
					hidden++
				}
			}
			if hidden > 0 {
				return false, fmt.Sprintf("%d of %s hidden", hidden, countOf(els))
			}
			return true, countOf(els) + " visible"
		},
	}
}

func assertLength(n int) assertion {
	return assertion{
		name:     "have length",
		expected: strconv.Itoa(n),
		check: func(els Elements) (bool, string) {
			return len(els) == n, strconv.Itoa(len(els))
		},
	}
}

func assertText(text string) assertion {
	return assertion{
		name:     "have text",
		expected: strconv.Quote(text),
		check: func(els Elements) (bool, string) {
			if len(els) == 0 {
				return false, "no elements"
			}
			actual := els.Text()
			return actual == text, strconv.Quote(actual)
		},
	}
}

func assertAttr(name, value string) assertion {
	return assertion{
		name:     "have attribute",
		expected: fmt.Sprintf("%s=%s", name, strconv.Quote(value)),
		check: func(els Elements) (bool, string) {
			if len(els) == 0 {
				return false, "no elements"
			}
			actual, ok := els[0].Attrs[name]
			if !ok {
				return false, fmt.Sprintf("no %s attribute", name)
			}
			return actual == value, fmt.Sprintf("%s=%s", name, strconv.Quote(actual))
		},
	}
}

func assertClass(class string) assertion {
	return assertion{
		name:     "have class",
		expected: strconv.Quote(class),
		check: func(els Elements) (bool, string) {
			if len(els) == 0 {
				return false, "no elements"
			}
			for _, e := range els {
				if e.HasClass(class) {
					return true, strconv.Quote(class)
				}
			}
			return false, fmt.Sprintf("classes %q", strings.Join(els[0].Classes, " "))
		},
	}
}

func (q *Query) should(a assertion) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		steps, timeout, err := q.resolve()
		if err != nil {
			return err
		}
		_, err = q.retryAssertion(ctx, steps, timeout, a)
		return err
	})
}

func (q *Query) retryAssertion(ctx context.Context, steps []step, timeout time.Duration, a assertion) (Elements, error) {
	last, ok, err := retry(ctx, timeout, q.page.opts.PollInterval,
		func(ctx context.Context) (Elements, error) { return q.sample(ctx, steps) },
		func(els Elements) bool {
			passed, _ := a.check(els)
			return passed
		},
	)
	if ok {
		q.page.logger.Debug().Str("page", q.page.name).Str("query", q.String()).Str("assertion", a.name).Msg("assertion passed")
		return last, nil
	}
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	_, actual := a.check(last)
	return nil, &AssertionError{
		Subject:   q.String(),
		Assertion: a.name,
		Expected:  a.expected,
		Actual:    actual,
		Timeout:   timeout,
		Cause:     err,
	}
}

// ShouldExist retries until the subject has at least one element
func (q *Query) ShouldExist() chromedp.Action { return q.should(assertExist()) }

// ShouldNotExist retries until the subject has no elements
func (q *Query) ShouldNotExist() chromedp.Action { return q.should(assertNotExist()) }

// ShouldBeVisible retries until the subject is non-empty and every element is visible
func (q *Query) ShouldBeVisible() chromedp.Action { return q.should(assertVisible()) }

// ShouldHaveLength retries until the subject has exactly n elements
func (q *Query) ShouldHaveLength(n int) chromedp.Action { return q.should(assertLength(n)) }

// ShouldHaveText retries until the subject's combined text equals text
func (q *Query) ShouldHaveText(text string) chromedp.Action { return q.should(assertText(text)) }

// ShouldHaveAttr retries until the first element's attribute name equals value
func (q *Query) ShouldHaveAttr(name, value string) chromedp.Action {
	return q.should(assertAttr(name, value))
}

// ShouldHaveClass retries until some element carries class
func (q *Query) ShouldHaveClass(class string) chromedp.Action { return q.should(assertClass(class)) }

// URLSubject asserts on the current location
type URLSubject struct {
	page *Page
}

func (u *URLSubject) should(name, expected string, check func(string) bool) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		timeout := u.page.opts.DefaultTimeout
		last, ok, err := retry(ctx, timeout, u.page.opts.PollInterval,
			func(ctx context.Context) (string, error) {
				var location string
				if err := chromedp.Location(&location).Do(ctx); err != nil {
					return "", fmt.Errorf("failed to read location: %w", err)
				}
				return location, nil
			},
			check,
		)
		if ok {
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return err
		}
		return &AssertionError{
			Subject:   "url",
			Assertion: name,
			Expected:  strconv.Quote(expected),
			Actual:    strconv.Quote(last),
			Timeout:   timeout,
			Cause:     err,
		}
	})
}

// ShouldInclude retries until the location contains substr
func (u *URLSubject) ShouldInclude(substr string) chromedp.Action {
	return u.should("include", substr, func(location string) bool {
		return strings.Contains(location, substr)
	})
}

// ShouldEqual retries until the location equals url
func (u *URLSubject) ShouldEqual(url string) chromedp.Action {
	return u.should("equal", url, func(location string) bool {
		return location == url
	})
}

// WindowSubject asserts on the global window object
type WindowSubject struct {
	page *Page
}

// ShouldHaveProperty retries until window exposes name
func (w *WindowSubject) ShouldHaveProperty(name string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		timeout := w.page.opts.DefaultTimeout
		_, ok, err := retry(ctx, timeout, w.page.opts.PollInterval,
			func(ctx context.Context) (bool, error) {
				var present bool
				if err := chromedp.Evaluate(propertyScript(name), &present).Do(ctx); err != nil {
					return false, fmt.Errorf("failed to evaluate window property: %w", err)
				}
				return present, nil
			},
			func(present bool) bool { return present },
		)
		if ok {
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return err
		}
		return &AssertionError{
			Subject:   "window",
			Assertion: "have property",
			Expected:  strconv.Quote(name),
			Actual:    "no such property",
			Timeout:   timeout,
			Cause:     err,
		}
	})
}
