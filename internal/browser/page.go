package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/saucedemo/internal/common"
)

// Page is one tab driven by a single case. Aliases and interceptions are
// scoped to the page and disappear with it.
type Page struct {
	ctx    context.Context
	name   string
	opts   Options
	logger arbor.ILogger

	mu       sync.Mutex
	aliases  map[string]*Query
	routes   map[string]*routeState
	inflight map[string][]*Exchange // request id -> exchanges awaiting a response
	network  bool

	screenshotNum int
}

func newPage(ctx context.Context, name string, opts Options, logger arbor.ILogger) *Page {
	return &Page{
		ctx:      ctx,
		name:     name,
		opts:     opts,
		logger:   logger,
		aliases:  make(map[string]*Query),
		routes:   make(map[string]*routeState),
		inflight: make(map[string][]*Exchange),
	}
}

// Name returns the name the page was opened for
func (p *Page) Name() string {
	return p.name
}

// Run executes actions in order against the page, stopping at the first error.
// Cancelling ctx aborts the running action without closing the tab.
func (p *Page) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && runCtx.Err() != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

// Log records a diagnostic message against the page
func (p *Page) Log(msg string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p.logger.Info().Str("page", p.name).Msg(msg)
		return nil
	})
}

// Visit navigates to target, resolved against the base URL
func (p *Page) Visit(target string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		url, err := common.ResolveURL(p.opts.BaseURL, target)
		if err != nil {
			return err
		}
		p.logger.Debug().Str("page", p.name).Str("url", url).Msg("visit")
		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		return nil
	})
}

// Reload reloads the current page
func (p *Page) Reload() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p.logger.Debug().Str("page", p.name).Msg("reload")
		if err := chromedp.Reload().Do(ctx); err != nil {
			return fmt.Errorf("failed to reload: %w", err)
		}
		return nil
	})
}

// Back navigates one step back in history
func (p *Page) Back() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p.logger.Debug().Str("page", p.name).Msg("go back")
		if err := chromedp.NavigateBack().Do(ctx); err != nil {
			return fmt.Errorf("failed to go back: %w", err)
		}
		return nil
	})
}

// Forward navigates one step forward in history
func (p *Page) Forward() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p.logger.Debug().Str("page", p.name).Msg("go forward")
		if err := chromedp.NavigateForward().Do(ctx); err != nil {
			return fmt.Errorf("failed to go forward: %w", err)
		}
		return nil
	})
}

// Viewport resizes the emulated viewport
func (p *Page) Viewport(width, height int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p.logger.Debug().Str("page", p.name).Int("width", width).Int("height", height).Msg("viewport")
		if err := chromedp.EmulateViewport(int64(width), int64(height)).Do(ctx); err != nil {
			return fmt.Errorf("failed to set viewport %dx%d: %w", width, height, err)
		}
		return nil
	})
}

// Get starts a query for every element matching selector
func (p *Page) Get(selector string) *Query {
	return &Query{page: p, steps: []step{{Op: opGet, Sel: selector}}}
}

// Contains starts a query for the deepest element whose text contains text
func (p *Page) Contains(text string) *Query {
	return &Query{page: p, steps: []step{{Op: opContains, Text: text}}}
}

// Alias refers to a query previously bound with As. The name is resolved when
// the returned query runs, so it must be bound by an earlier action.
func (p *Page) Alias(name string) *Query {
	return &Query{page: p, alias: strings.TrimPrefix(name, "@")}
}

// URL is the subject for assertions on the current location
func (p *Page) URL() *URLSubject {
	return &URLSubject{page: p}
}

// Window is the subject for assertions on the global window object
func (p *Page) Window() *WindowSubject {
	return &WindowSubject{page: p}
}

func (p *Page) bindAlias(name string, q *Query) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aliases[name] = q
}

func (p *Page) lookupAlias(name string) (*Query, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.aliases[name]
	return q, ok
}

// SaveScreenshot captures the viewport into {ResultsDir}/screenshots and
// returns the file path. It uses ctx for cancellation but always targets the tab.
func (p *Page) SaveScreenshot(ctx context.Context, name string) (string, error) {
	screenshotDir := filepath.Join(p.opts.ResultsDir, "screenshots")
	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	p.mu.Lock()
	p.screenshotNum++
	num := p.screenshotNum
	p.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(screenshotDir, fmt.Sprintf("%s-%02d-%s.png", sanitizeName(name), num, timestamp))

	var buf []byte
	if err := p.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}

	return filename, nil
}

// sanitizeName converts a name to a safe filename format
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
