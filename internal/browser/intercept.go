package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Route declares which requests an interception captures
type Route struct {
	page    *Page
	method  string
	pattern string
}

// Exchange is one captured request and, once it arrives, its response
type Exchange struct {
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	StatusText string
	MimeType   string
	Err        error // Set when the request failed before a response arrived

	done chan struct{} // Closed exactly once, when the request leaves the in-flight table
}

// routeState tracks the exchanges captured for one alias
type routeState struct {
	name    string
	method  string
	pattern string
	re      *regexp.Regexp

	exchanges []*Exchange
	next      int           // Index of the next exchange a wait consumes
	changed   chan struct{} // Closed and replaced whenever an exchange is captured
}

// Intercept declares a route for requests with method whose full URL matches pattern
func (p *Page) Intercept(method, pattern string) *Route {
	return &Route{page: p, method: strings.ToUpper(method), pattern: pattern}
}

// As registers the route under name. Only requests sent after registration are captured.
func (r *Route) As(name string) chromedp.Action {
	name = strings.TrimPrefix(name, "@")
	return chromedp.ActionFunc(func(ctx context.Context) error {
		re, err := compileGlob(r.pattern)
		if err != nil {
			return err
		}

		r.page.mu.Lock()
		needsNetwork := !r.page.network
		r.page.mu.Unlock()

		if needsNetwork {
			if err := enableNetwork(ctx); err != nil {
				return err
			}
		}

		r.page.mu.Lock()
		r.page.network = true
		r.page.routes[name] = &routeState{
			name:    name,
			method:  r.method,
			pattern: r.pattern,
			re:      re,
			changed: make(chan struct{}),
		}
		r.page.mu.Unlock()

		r.page.logger.Debug().
			Str("page", r.page.name).
			Str("alias", name).
			Str("method", r.method).
			Str("pattern", r.pattern).
			Msg("intercept registered")
		return nil
	})
}

// onEvent runs on chromedp's event goroutine and must not block
func (p *Page) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		if ev.Request == nil || ev.RedirectResponse != nil {
			return
		}
		p.captureRequest(string(ev.RequestID), ev.Request.Method, ev.Request.URL)
	case *network.EventResponseReceived:
		if ev.Response == nil {
			return
		}
		p.completeRequest(string(ev.RequestID), func(ex *Exchange) {
			ex.StatusCode = int(ev.Response.Status)
			ex.StatusText = ev.Response.StatusText
			ex.MimeType = ev.Response.MimeType
		})
	case *network.EventLoadingFailed:
		p.completeRequest(string(ev.RequestID), func(ex *Exchange) {
			ex.Err = fmt.Errorf("request %s %s failed: %s", ex.Method, ex.URL, ev.ErrorText)
		})
	}
}

func (p *Page) captureRequest(requestID, method, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, route := range p.routes {
		if !methodMatches(route.method, method) || !route.re.MatchString(url) {
			continue
		}
		ex := &Exchange{
			RequestID: requestID,
			Method:    method,
			URL:       url,
			done:      make(chan struct{}),
		}
		route.exchanges = append(route.exchanges, ex)
		p.inflight[requestID] = append(p.inflight[requestID], ex)

		close(route.changed)
		route.changed = make(chan struct{})
	}
}

func (p *Page) completeRequest(requestID string, apply func(ex *Exchange)) {
	p.mu.Lock()
	exchanges := p.inflight[requestID]
	delete(p.inflight, requestID)
	for _, ex := range exchanges {
		apply(ex)
	}
	p.mu.Unlock()

	for _, ex := range exchanges {
		close(ex.done)
	}
}

// nextExchange blocks until the route has an unconsumed exchange
func (p *Page) nextExchange(ctx context.Context, route *routeState) (*Exchange, int, error) {
	for {
		p.mu.Lock()
		if route.next < len(route.exchanges) {
			ex := route.exchanges[route.next]
			route.next++
			ordinal := route.next
			p.mu.Unlock()
			return ex, ordinal, nil
		}
		ordinal := route.next + 1
		changed := route.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ordinal, ctx.Err()
		}
	}
}

// wait consumes the next exchange on the alias and blocks for its response
func (p *Page) wait(ctx context.Context, name string) (*Exchange, error) {
	name = strings.TrimPrefix(name, "@")

	p.mu.Lock()
	route, ok := p.routes[name]
	p.mu.Unlock()
	if !ok {
		return nil, &AliasError{Name: name}
	}

	reqCtx, cancelReq := context.WithTimeout(ctx, p.opts.RequestTimeout)
	ex, ordinal, err := p.nextExchange(reqCtx, route)
	cancelReq()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &InterceptTimeoutError{
			Alias:   name,
			Method:  route.method,
			Pattern: route.pattern,
			Phase:   "request",
			Ordinal: ordinal,
			Timeout: p.opts.RequestTimeout,
		}
	}

	timer := time.NewTimer(p.opts.ResponseTimeout)
	defer timer.Stop()
	select {
	case <-ex.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &InterceptTimeoutError{
			Alias:   name,
			Method:  route.method,
			Pattern: route.pattern,
			Phase:   "response",
			Ordinal: ordinal,
			Timeout: p.opts.ResponseTimeout,
		}
	}

	p.mu.Lock()
	captured := *ex
	p.mu.Unlock()
	if captured.Err != nil {
		return nil, captured.Err
	}

	p.logger.Debug().
		Str("page", p.name).
		Str("alias", name).
		Str("url", captured.URL).
		Int("status", captured.StatusCode).
		Msg("intercepted response")
	return &captured, nil
}

// WaitSubject is the pending result of a network wait
type WaitSubject struct {
	page *Page
	name string
}

// Wait refers to the next exchange captured by the route aliased name
func (p *Page) Wait(name string) *WaitSubject {
	return &WaitSubject{page: p, name: strings.TrimPrefix(name, "@")}
}

// Then waits for the exchange and hands it to fn
func (w *WaitSubject) Then(fn func(ex *Exchange) error) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ex, err := w.page.wait(ctx, w.name)
		if err != nil {
			return err
		}
		return fn(ex)
	})
}

// ShouldHaveStatus waits for the exchange and asserts its status code
func (w *WaitSubject) ShouldHaveStatus(code int) chromedp.Action {
	return w.Then(func(ex *Exchange) error {
		return ExpectEqual("@"+w.name+" response.statusCode", code, ex.StatusCode)
	})
}
