package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/saucedemo/internal/common"
)

var (
	// Persistent flags
	configFiles []string // Multiple --config flags supported, later files override earlier ones
	baseURL     string
	headless    bool
	logLevel    string

	// Global state, set by setup before any command runs
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "saucedemo",
	Short: "Browser suite for the SauceDemo storefront",
	Long: `Runs the SauceDemo browser suite: login before every case, then navigation,
querying, cart actions, assertions, aliases and network waits against the inventory page.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	flags.StringVar(&baseURL, "base-url", "", "Storefront URL (overrides config)")
	flags.BoolVar(&headless, "headless", true, "Run the browser headless (overrides config)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(runCmd, listCmd, monitorCmd, serveCmd, versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves configuration (defaults -> files -> .env -> env -> flags),
// then initialises the logger and prints the banner
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("saucedemo.toml"); err == nil {
			configFiles = append(configFiles, "saucedemo.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	overrides := common.FlagOverrides{
		BaseURL:  baseURL,
		LogLevel: logLevel,
	}
	if cmd.Flags().Changed("headless") {
		overrides.Headless = &headless
	}
	if f := cmd.Flags().Lookup("grep"); f != nil && f.Changed {
		overrides.Grep = f.Value.String()
	}
	if cmd.Flags().Changed("honor-exclusive") {
		honor, _ := cmd.Flags().GetBool("honor-exclusive")
		overrides.HonorExclusive = &honor
	}
	common.ApplyFlagOverrides(config, overrides)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	common.InstallCrashHandler(config.Run.ResultsDir)
	logger = common.InitLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Bool("honor_exclusive", config.Run.HonorExclusive).
		Str("grep", config.Run.Grep).
		Msg("Resolved configuration")

	return nil
}
