package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved target
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintColorized("SauceDemo", "Browser suite "+GetVersion(), banner.ColorCyan, banner.ColorWhite)

	logger.Info().
		Str("base_url", config.Target.BaseURL).
		Bool("headless", config.Browser.Headless).
		Str("results_dir", config.Run.ResultsDir).
		Msg("Suite configuration loaded")
}
