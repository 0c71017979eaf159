package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the suite configuration
type Config struct {
	Target      TargetConfig      `toml:"target"`
	Credentials CredentialsConfig `toml:"credentials"`
	Browser     BrowserConfig     `toml:"browser"`
	Run         RunConfig         `toml:"run"`
	Logging     LoggingConfig     `toml:"logging"`
	Monitor     MonitorConfig     `toml:"monitor"`
}

type TargetConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"` // Login page of the storefront under test
}

type CredentialsConfig struct {
	Username string `toml:"username" validate:"required"`
	Password string `toml:"password" validate:"required"`
}

type BrowserConfig struct {
	Headless        bool   `toml:"headless"`
	ChromePath      string `toml:"chrome_path"` // Empty uses chromedp's lookup
	RemoteURL       string `toml:"remote_url" validate:"omitempty,url"` // DevTools websocket of an already running browser
	WindowWidth     int    `toml:"window_width" validate:"gt=0"`
	WindowHeight    int    `toml:"window_height" validate:"gt=0"`
	DefaultTimeout  string `toml:"default_timeout" validate:"required"`  // Retry window for queries and assertions, e.g. "4s"
	RequestTimeout  string `toml:"request_timeout" validate:"required"`  // How long a network wait waits for the request
	ResponseTimeout string `toml:"response_timeout" validate:"required"` // How long a network wait waits for the response
	CaseTimeout     string `toml:"case_timeout" validate:"required"`     // Upper bound for a single case including hooks
}

type RunConfig struct {
	Grep                 string `toml:"grep"`             // Regexp over case names, empty runs everything selected
	HonorExclusive       bool   `toml:"honor_exclusive"`  // When false, ExclusiveOnly cases run as Normal
	ResultsDir           string `toml:"results_dir" validate:"required"`
	ScreenshotsOnFailure bool   `toml:"screenshots_on_failure"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "console", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

type MonitorConfig struct {
	Schedule string `toml:"schedule"` // Cron expression or descriptor, e.g. "@every 15m"
}

// NewDefaultConfig returns the configuration used when no file overrides a value
func NewDefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL: "https://www.saucedemo.com/",
		},
		Credentials: CredentialsConfig{
			Username: "standard_user",
			Password: "secret_sauce",
		},
		Browser: BrowserConfig{
			Headless:        true,
			WindowWidth:     1280,
			WindowHeight:    800,
			DefaultTimeout:  "4s",
			RequestTimeout:  "5s",
			ResponseTimeout: "30s",
			CaseTimeout:     "2m",
		},
		Run: RunConfig{
			HonorExclusive:       false,
			ResultsDir:           "results",
			ScreenshotsOnFailure: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"console"},
			TimeFormat: "15:04:05",
		},
		Monitor: MonitorConfig{
			Schedule: "@every 15m",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env -> env
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values, later files win
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env is optional; values already present in the environment are not replaced
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if baseURL := os.Getenv("SAUCEDEMO_BASE_URL"); baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if username := os.Getenv("SAUCEDEMO_USERNAME"); username != "" {
		config.Credentials.Username = username
	}
	if password := os.Getenv("SAUCEDEMO_PASSWORD"); password != "" {
		config.Credentials.Password = password
	}
	if headless := os.Getenv("SAUCEDEMO_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if chromePath := os.Getenv("SAUCEDEMO_CHROME_PATH"); chromePath != "" {
		config.Browser.ChromePath = chromePath
	}
	if remoteURL := os.Getenv("SAUCEDEMO_REMOTE_URL"); remoteURL != "" {
		config.Browser.RemoteURL = remoteURL
	}
	if resultsDir := os.Getenv("SAUCEDEMO_RESULTS_DIR"); resultsDir != "" {
		config.Run.ResultsDir = resultsDir
	}
	if level := os.Getenv("SAUCEDEMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SAUCEDEMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// FlagOverrides holds command-line values; zero values leave the config untouched
type FlagOverrides struct {
	BaseURL        string
	Headless       *bool
	LogLevel       string
	Grep           string
	HonorExclusive *bool
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.BaseURL != "" {
		config.Target.BaseURL = flags.BaseURL
	}
	if flags.Headless != nil {
		config.Browser.Headless = *flags.Headless
	}
	if flags.LogLevel != "" {
		config.Logging.Level = flags.LogLevel
	}
	if flags.Grep != "" {
		config.Run.Grep = flags.Grep
	}
	if flags.HonorExclusive != nil {
		config.Run.HonorExclusive = *flags.HonorExclusive
	}
}

// Validate checks struct tags and the duration and schedule fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"browser.default_timeout":  c.Browser.DefaultTimeout,
		"browser.request_timeout":  c.Browser.RequestTimeout,
		"browser.response_timeout": c.Browser.ResponseTimeout,
		"browser.case_timeout":     c.Browser.CaseTimeout,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	if c.Monitor.Schedule != "" {
		if err := ValidateSchedule(c.Monitor.Schedule); err != nil {
			return fmt.Errorf("invalid monitor.schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule parses a cron expression (standard 5 fields or a descriptor such as "@every 15m")
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Timeouts returns the parsed browser timeouts. Call after Validate.
func (c *Config) Timeouts() Timeouts {
	return Timeouts{
		Default:  parseDurationOrZero(c.Browser.DefaultTimeout),
		Request:  parseDurationOrZero(c.Browser.RequestTimeout),
		Response: parseDurationOrZero(c.Browser.ResponseTimeout),
		Case:     parseDurationOrZero(c.Browser.CaseTimeout),
	}
}

// Timeouts groups the parsed browser durations
type Timeouts struct {
	Default  time.Duration
	Request  time.Duration
	Response time.Duration
	Case     time.Duration
}

func parseDurationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
