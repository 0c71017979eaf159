package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/ternarybob/saucedemo/internal/suite"
)

// progressObserver advances a bar as cases finish
type progressObserver struct {
	bar       *progressbar.ProgressBar
	completed int
	failed    int
	total     int
}

func newProgressObserver(total int) *progressObserver {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.CyanString("Running: ")+color.GreenString("[0/%d]", total)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressObserver{bar: bar, total: total}
}

func (p *progressObserver) CaseStarted(info suite.CaseInfo) {}

func (p *progressObserver) CaseFinished(res suite.Result) {
	p.completed++
	if res.Status == suite.StatusFailed {
		p.failed++
	}
	desc := color.CyanString("Running: ") + color.GreenString("[%d/%d]", p.completed, p.total)
	if p.failed > 0 {
		desc += color.RedString(" [failed: %d]", p.failed)
	}
	p.bar.Describe(desc)
	p.bar.Add(1)
}

func (p *progressObserver) finish() {
	p.bar.Finish()
}

// printReport writes one line per declared case and a coloured summary
func printReport(w io.Writer, report *suite.Report) {
	fmt.Fprintln(w)
	for _, res := range report.Results {
		switch res.Status {
		case suite.StatusPassed:
			fmt.Fprintf(w, "%s %s %s\n", color.GreenString("✓"), res.Name, color.WhiteString("(%s)", res.Duration.Round(time.Millisecond)))
		case suite.StatusFailed:
			fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), res.Name)
			fmt.Fprintf(w, "  %s %v\n", color.YellowString("[%s]", res.Kind), res.Err)
			if res.Artifact != "" {
				fmt.Fprintf(w, "  %s\n", color.CyanString("Screenshot: %s", res.Artifact))
			}
		default:
			fmt.Fprintf(w, "%s %s %s\n", color.YellowString("-"), res.Name, color.YellowString("(%s: %s)", res.Status, res.Reason))
		}
	}
	if report.AfterAllErr != nil {
		fmt.Fprintf(w, "%s %v\n", color.RedString("✗"), report.AfterAllErr)
	}

	counts := report.Counts()
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped, %d excluded in %s",
		counts[suite.StatusPassed], counts[suite.StatusFailed],
		counts[suite.StatusSkipped], counts[suite.StatusExcluded],
		report.Duration.Round(time.Millisecond))
	if report.Failed() {
		fmt.Fprintln(w, color.RedString("✗ %s", summary))
	} else {
		fmt.Fprintln(w, color.GreenString("✓ %s", summary))
	}
}
