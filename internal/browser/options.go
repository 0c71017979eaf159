package browser

import (
	"os"
	"os/exec"
	"time"

	"github.com/ternarybob/saucedemo/internal/common"
)

const (
	// DefaultPollInterval is how often retrying assertions re-sample the page
	DefaultPollInterval = 100 * time.Millisecond

	// refAttribute marks the element an action resolved to so CDP can address it by selector
	refAttribute = "data-saucedemo-ref"
)

// Options configures a browser session and the pages it opens
type Options struct {
	BaseURL string

	Headless     bool
	ChromePath   string
	RemoteURL    string
	WindowWidth  int
	WindowHeight int

	DefaultTimeout  time.Duration // Retry window for queries, actions and assertions
	RequestTimeout  time.Duration // Network wait: time allowed for the request to be seen
	ResponseTimeout time.Duration // Network wait: time allowed for the response to arrive
	PollInterval    time.Duration

	ResultsDir string // Screenshots are written to {ResultsDir}/screenshots
}

// OptionsFromConfig maps the suite configuration onto session options.
// The config must have passed Validate.
func OptionsFromConfig(config *common.Config) Options {
	timeouts := config.Timeouts()
	return Options{
		BaseURL:         config.Target.BaseURL,
		Headless:        config.Browser.Headless,
		ChromePath:      config.Browser.ChromePath,
		RemoteURL:       config.Browser.RemoteURL,
		WindowWidth:     config.Browser.WindowWidth,
		WindowHeight:    config.Browser.WindowHeight,
		DefaultTimeout:  timeouts.Default,
		RequestTimeout:  timeouts.Request,
		ResponseTimeout: timeouts.Response,
		PollInterval:    DefaultPollInterval,
		ResultsDir:      config.Run.ResultsDir,
	}
}

func (o Options) withDefaults() Options {
	if o.WindowWidth <= 0 {
		o.WindowWidth = 1280
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = 800
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 4 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 5 * time.Second
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// chromeCandidates mirrors the executable names chromedp probes on Linux and macOS
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// LocateChrome reports whether a browser can be reached: a configured remote
// DevTools URL, an explicit executable path, or one found on PATH.
func LocateChrome(opts Options) (string, bool) {
	if opts.RemoteURL != "" {
		return opts.RemoteURL, true
	}
	if opts.ChromePath != "" {
		if _, err := os.Stat(opts.ChromePath); err == nil {
			return opts.ChromePath, true
		}
		return opts.ChromePath, false
	}
	for _, candidate := range chromeCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, true
		}
	}
	return "", false
}
