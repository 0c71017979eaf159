package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saucedemo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "https://www.saucedemo.com/", config.Target.BaseURL)
	assert.Equal(t, "standard_user", config.Credentials.Username)
	assert.Equal(t, "secret_sauce", config.Credentials.Password)
	assert.False(t, config.Run.HonorExclusive)

	timeouts := config.Timeouts()
	assert.Equal(t, 4*time.Second, timeouts.Default)
	assert.Equal(t, 5*time.Second, timeouts.Request)
	assert.Equal(t, 30*time.Second, timeouts.Response)
	assert.Equal(t, 2*time.Minute, timeouts.Case)
}

func TestLoadFromFilesMergesInOrder(t *testing.T) {
	first := writeConfig(t, `
[target]
base_url = "http://localhost:8090/"

[browser]
default_timeout = "6s"
`)
	second := writeConfig(t, `
[browser]
default_timeout = "8s"

[run]
honor_exclusive = true
`)

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "http://localhost:8090/", config.Target.BaseURL)
	assert.Equal(t, 8*time.Second, config.Timeouts().Default)
	assert.True(t, config.Run.HonorExclusive)
	assert.Equal(t, "standard_user", config.Credentials.Username, "unset keys keep defaults")
}

func TestLoadFromFilesErrors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromFiles(writeConfig(t, "[target\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SAUCEDEMO_BASE_URL", "http://127.0.0.1:9000/")
	t.Setenv("SAUCEDEMO_USERNAME", "problem_user")
	t.Setenv("SAUCEDEMO_HEADLESS", "false")
	t.Setenv("SAUCEDEMO_LOG_OUTPUT", "console, file")

	config, err := LoadFromFiles(writeConfig(t, `
[target]
base_url = "http://from-file/"
`))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000/", config.Target.BaseURL)
	assert.Equal(t, "problem_user", config.Credentials.Username)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, []string{"console", "file"}, config.Logging.Output)
}

func TestFlagOverridesWin(t *testing.T) {
	t.Setenv("SAUCEDEMO_BASE_URL", "http://from-env/")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	headless := false
	honor := true
	ApplyFlagOverrides(config, FlagOverrides{
		BaseURL:        "http://from-flag/",
		Headless:       &headless,
		LogLevel:       "debug",
		Grep:           "network",
		HonorExclusive: &honor,
	})

	assert.Equal(t, "http://from-flag/", config.Target.BaseURL)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "network", config.Run.Grep)
	assert.True(t, config.Run.HonorExclusive)

	// Zero values leave the config untouched
	ApplyFlagOverrides(config, FlagOverrides{})
	assert.Equal(t, "http://from-flag/", config.Target.BaseURL)
	assert.True(t, config.Run.HonorExclusive)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing base url", func(c *Config) { c.Target.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Target.BaseURL = "saucedemo" }},
		{"missing username", func(c *Config) { c.Credentials.Username = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad duration", func(c *Config) { c.Browser.DefaultTimeout = "soon" }},
		{"negative duration", func(c *Config) { c.Browser.RequestTimeout = "-1s" }},
		{"bad schedule", func(c *Config) { c.Monitor.Schedule = "every day" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@every 15m"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.Error(t, ValidateSchedule("* * *"))
}

func TestTimeoutsUnparsableIsZero(t *testing.T) {
	config := NewDefaultConfig()
	config.Browser.RequestTimeout = "soon"

	timeouts := config.Timeouts()
	assert.Zero(t, timeouts.Request)
	assert.Equal(t, 4*time.Second, timeouts.Default)
}
