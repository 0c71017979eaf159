package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Session owns one browser process (or remote browser connection) for a run.
// Every page it opens lives in its own browser context, so cookies, storage
// and cache never leak between pages.
type Session struct {
	opts   Options
	logger arbor.ILogger

	browserCtx context.Context

	// Internal cleanup functions, executed in reverse order
	cleanup []func()
	mu      sync.Mutex
	closed  bool
}

// NewSession starts (or connects to) a browser
func NewSession(ctx context.Context, opts Options, logger arbor.ILogger) (*Session, error) {
	opts = opts.withDefaults()

	s := &Session{
		opts:    opts,
		logger:  logger,
		cleanup: make([]func(), 0, 3),
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		)
		if opts.ChromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	s.cleanup = append(s.cleanup, cancelAlloc)

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug().Msgf("chromedp: "+format, args...)
		}),
	)
	s.cleanup = append(s.cleanup, cancelBrowser)
	s.browserCtx = browserCtx

	// First Run launches the browser
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info().
		Bool("headless", opts.Headless).
		Str("remote_url", opts.RemoteURL).
		Int("window_width", opts.WindowWidth).
		Int("window_height", opts.WindowHeight).
		Msg("Browser session started")

	return s, nil
}

// Options returns the effective session options
func (s *Session) Options() Options {
	return s.opts
}

// NewPage opens a tab in a fresh browser context. The returned close function
// disposes the tab and its context.
func (s *Session) NewPage(name string) (*Page, func(), error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, func() {}, fmt.Errorf("browser session is closed")
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx, chromedp.WithNewBrowserContext())

	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(s.opts.WindowWidth), int64(s.opts.WindowHeight))); err != nil {
		cancelTab()
		return nil, func() {}, fmt.Errorf("failed to open page for %s: %w", name, err)
	}

	page := newPage(tabCtx, name, s.opts, s.logger)
	chromedp.ListenTarget(tabCtx, page.onEvent)

	closeFn := func() {
		cancelTab()
		s.logger.Debug().Str("page", name).Msg("Page closed")
	}

	return page, closeFn, nil
}

// Close shuts the browser down
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.browserCtx != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			s.logger.Warn().Err(err).Msg("Browser cancel returned an error")
		}
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.logger.Info().Msg("Browser session closed")
}

// enableNetwork turns on the CDP network domain for the page's target
func enableNetwork(ctx context.Context) error {
	if err := network.Enable().Do(ctx); err != nil {
		return fmt.Errorf("failed to enable network events: %w", err)
	}
	return nil
}
