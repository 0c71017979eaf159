package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/saucedemo/internal/saucedemo"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the suite once",
	Long: `Runs every selected case once against the configured storefront and exits
non-zero when any case fails.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().String("grep", "", "Only run cases whose name matches this regexp")
	runCmd.Flags().Bool("honor-exclusive", false, "When a case is marked only, run just that case")
}

// errCasesFailed makes the process exit non-zero without repeating the report
var errCasesFailed = errors.New("one or more cases failed")

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	selected, err := selectedCount()
	if err != nil {
		return err
	}

	progress := newProgressObserver(selected)
	report, err := executeSuite(ctx, progress)
	progress.finish()
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	if report.Failed() {
		return errCasesFailed
	}
	return nil
}

// selectedCount reports how many cases the current configuration runs
func selectedCount() (int, error) {
	plan, err := saucedemo.Plan(config)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sel := range plan {
		if sel.Run {
			n++
		}
	}
	return n, nil
}
