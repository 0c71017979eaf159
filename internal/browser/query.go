package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

const (
	opGet      = "get"
	opFind     = "find"
	opFirst    = "first"
	opLast     = "last"
	opEq       = "eq"
	opContains = "contains"
)

type step struct {
	Op   string `json:"op"`
	Sel  string `json:"sel,omitempty"`
	Text string `json:"text,omitempty"`
	N    int    `json:"n"`
}

// Element is a point-in-time view of a DOM element
type Element struct {
	Tag     string            `json:"tag"`
	Text    string            `json:"text"`
	Classes []string          `json:"classes"`
	Attrs   map[string]string `json:"attrs"`
	Visible bool              `json:"visible"`
}

// HasClass reports whether the element carries class
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Elements is the resolved subject of a query
type Elements []Element

// Text concatenates the text of every element
func (els Elements) Text() string {
	var b strings.Builder
	for _, e := range els {
		b.WriteString(e.Text)
	}
	return b.String()
}

// Query is a lazily resolved element chain. Nothing touches the page until an
// action or assertion built from the query runs; each attempt re-resolves the
// chain from the document.
type Query struct {
	page    *Page
	alias   string // Root alias, resolved at run time
	steps   []step
	timeout time.Duration
}

func (q *Query) with(s step) *Query {
	steps := make([]step, len(q.steps), len(q.steps)+1)
	copy(steps, q.steps)
	return &Query{page: q.page, alias: q.alias, steps: append(steps, s), timeout: q.timeout}
}

// First narrows the subject to its first element
func (q *Query) First() *Query { return q.with(step{Op: opFirst}) }

// Last narrows the subject to its last element
func (q *Query) Last() *Query { return q.with(step{Op: opLast}) }

// Eq narrows the subject to the element at index; negative indexes count from the end
func (q *Query) Eq(index int) *Query { return q.with(step{Op: opEq, N: index}) }

// Find queries descendants of the subject
func (q *Query) Find(selector string) *Query { return q.with(step{Op: opFind, Sel: selector}) }

// Contains narrows to the deepest descendant whose text contains text
func (q *Query) Contains(text string) *Query { return q.with(step{Op: opContains, Text: text}) }

// WithTimeout overrides the retry window for actions and assertions on this query
func (q *Query) WithTimeout(d time.Duration) *Query {
	return &Query{page: q.page, alias: q.alias, steps: q.steps, timeout: d}
}

// String describes the chain, e.g. get(".inventory_item").first()
func (q *Query) String() string {
	var parts []string
	if q.alias != "" {
		parts = append(parts, "@"+q.alias)
	}
	for _, s := range q.steps {
		switch s.Op {
		case opGet, opFind:
			parts = append(parts, fmt.Sprintf("%s(%s)", s.Op, strconv.Quote(s.Sel)))
		case opContains:
			parts = append(parts, fmt.Sprintf("contains(%s)", strconv.Quote(s.Text)))
		case opEq:
			parts = append(parts, fmt.Sprintf("eq(%d)", s.N))
		default:
			parts = append(parts, s.Op+"()")
		}
	}
	return strings.Join(parts, ".")
}

// resolve expands the root alias into its concrete chain
func (q *Query) resolve() ([]step, time.Duration, error) {
	timeout := q.timeout
	if q.alias == "" {
		return q.steps, q.effectiveTimeout(timeout), nil
	}

	seen := map[string]bool{}
	current := q
	var prefix [][]step
	for current.alias != "" {
		if seen[current.alias] {
			return nil, 0, fmt.Errorf("alias @%s refers to itself", current.alias)
		}
		seen[current.alias] = true
		bound, ok := q.page.lookupAlias(current.alias)
		if !ok {
			return nil, 0, &AliasError{Name: current.alias}
		}
		prefix = append(prefix, bound.steps)
		if timeout == 0 {
			timeout = bound.timeout
		}
		current = bound
	}

	var steps []step
	for i := len(prefix) - 1; i >= 0; i-- {
		steps = append(steps, prefix[i]...)
	}
	steps = append(steps, q.steps...)
	return steps, q.effectiveTimeout(timeout), nil
}

func (q *Query) effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return q.page.opts.DefaultTimeout
}

// As binds the query to name for the rest of the case
func (q *Query) As(name string) chromedp.Action {
	name = strings.TrimPrefix(name, "@")
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, _, err := q.resolve(); err != nil {
			return err
		}
		q.page.bindAlias(name, q)
		q.page.logger.Debug().Str("page", q.page.name).Str("alias", name).Str("query", q.String()).Msg("alias bound")
		return nil
	})
}

// sample resolves the subject once without retrying
func (q *Query) sample(ctx context.Context, steps []step) (Elements, error) {
	script, err := snapshotScript(steps)
	if err != nil {
		return nil, err
	}
	var els Elements
	if err := chromedp.Evaluate(script, &els).Do(ctx); err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", q, err)
	}
	return els, nil
}

// actionable waits until the subject is exactly one visible element and tags it
func (q *Query) actionable(ctx context.Context, command string) (string, time.Duration, error) {
	steps, timeout, err := q.resolve()
	if err != nil {
		return "", 0, err
	}

	ref := uuid.New().String()
	script, err := markScript(steps, ref)
	if err != nil {
		return "", 0, err
	}

	last, ok, err := retry(ctx, timeout, q.page.opts.PollInterval,
		func(ctx context.Context) (Elements, error) {
			var els Elements
			if err := chromedp.Evaluate(script, &els).Do(ctx); err != nil {
				return nil, fmt.Errorf("failed to evaluate %s: %w", q, err)
			}
			return els, nil
		},
		func(els Elements) bool {
			return len(els) == 1 && els[0].Visible
		},
	)
	if ok {
		return ref, timeout, nil
	}
	if err != nil && ctx.Err() != nil {
		return "", 0, err
	}

	return "", 0, &AssertionError{
		Subject:   q.String(),
		Assertion: "be actionable for " + command,
		Expected:  "exactly one visible element",
		Actual:    describeActionable(last),
		Timeout:   timeout,
		Cause:     err,
	}
}

func describeActionable(els Elements) string {
	switch {
	case len(els) == 0:
		return "no elements"
	case len(els) > 1:
		return fmt.Sprintf("%d elements", len(els))
	case !els[0].Visible:
		return "a hidden element"
	default:
		return "one visible element"
	}
}

// Click clicks the subject once it is actionable
func (q *Query) Click() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ref, timeout, err := q.actionable(ctx, "click")
		if err != nil {
			return err
		}
		actionCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		q.page.logger.Debug().Str("page", q.page.name).Str("query", q.String()).Msg("click")
		if err := chromedp.Click(refSelector(ref), chromedp.ByQuery).Do(actionCtx); err != nil {
			return fmt.Errorf("failed to click %s: %w", q, err)
		}
		// The click may have navigated away; a missing tag is fine
		_ = chromedp.Evaluate(unmarkScript(ref), nil).Do(actionCtx)
		return nil
	})
}

// Type sends text as key events to the subject once it is actionable
func (q *Query) Type(text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ref, timeout, err := q.actionable(ctx, "type")
		if err != nil {
			return err
		}
		actionCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		q.page.logger.Debug().Str("page", q.page.name).Str("query", q.String()).Int("chars", len(text)).Msg("type")
		if err := chromedp.SendKeys(refSelector(ref), text, chromedp.ByQuery).Do(actionCtx); err != nil {
			return fmt.Errorf("failed to type into %s: %w", q, err)
		}
		_ = chromedp.Evaluate(unmarkScript(ref), nil).Do(actionCtx)
		return nil
	})
}

// Scope narrows queries to the descendants of a subject
type Scope struct {
	root *Query
}

// Get queries descendants of the scope root
func (s *Scope) Get(selector string) *Query { return s.root.Find(selector) }

// Contains queries the deepest descendant of the scope root containing text
func (s *Scope) Contains(text string) *Query { return s.root.Contains(text) }

// Within waits for the subject to exist and runs the scoped actions against it
func (q *Query) Within(fn func(in *Scope) chromedp.Tasks) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := q.ShouldExist().Do(ctx); err != nil {
			return err
		}
		return fn(&Scope{root: q}).Do(ctx)
	})
}

// Then waits for the subject to exist and hands its elements to fn
func (q *Query) Then(fn func(els Elements) error) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		steps, timeout, err := q.resolve()
		if err != nil {
			return err
		}
		els, err := q.retryAssertion(ctx, steps, timeout, assertExist())
		if err != nil {
			return err
		}
		return fn(els)
	})
}
