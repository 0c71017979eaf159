package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/ternarybob/saucedemo/internal/common"
	"github.com/ternarybob/saucedemo/internal/suite"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the suite on a cron schedule until interrupted",
	Long: `Runs the suite on the schedule from monitor.schedule (or --schedule). A run
that is still in progress when the next tick fires causes that tick to be skipped.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().String("schedule", "", "Cron expression or descriptor, e.g. \"@every 15m\" (overrides config)")
	monitorCmd.Flags().String("grep", "", "Only run cases whose name matches this regexp")
	monitorCmd.Flags().Bool("honor-exclusive", false, "When a case is marked only, run just that case")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	schedule := config.Monitor.Schedule
	if s, _ := cmd.Flags().GetString("schedule"); s != "" {
		schedule = s
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	var running sync.Mutex
	tick := func() {
		if !running.TryLock() {
			logger.Warn().Str("schedule", schedule).Msg("Previous run still in progress, skipping tick")
			return
		}
		defer running.Unlock()
		monitorRun(ctx)
	}

	if _, err := c.AddFunc(schedule, func() {
		common.SafeGo(logger, "monitor-run", tick, nil)
	}); err != nil {
		return fmt.Errorf("failed to schedule suite: %w", err)
	}

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("Monitor started - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")

	c.Stop()

	// Wait for an in-flight run to observe cancellation
	running.Lock()
	running.Unlock()

	logger.Info().Msg("Monitor stopped")
	return nil
}

func monitorRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	report, err := executeSuite(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled run could not start")
		return
	}

	printReport(os.Stdout, report)

	counts := report.Counts()
	if report.Failed() {
		logger.Error().
			Str("run_id", report.RunID).
			Int("passed", counts[suite.StatusPassed]).
			Int("failed", counts[suite.StatusFailed]).
			Str("duration", time.Since(start).Round(time.Millisecond).String()).
			Msg("Scheduled run failed")
		return
	}
	logger.Info().
		Str("run_id", report.RunID).
		Int("passed", counts[suite.StatusPassed]).
		Str("duration", time.Since(start).Round(time.Millisecond).String()).
		Msg("Scheduled run passed")
}
