package suite

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

// RunTest drives the suite from go test: one subtest per declared case,
// skipped and excluded cases reported through t.Skip. The returned report
// mirrors what Run would produce.
func RunTest[S any](t *testing.T, s *Suite[S], opts Options) *Report {
	t.Helper()

	logger := opts.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if opts.RunID != "" {
		logger = logger.WithCorrelationId(opts.RunID)
	}

	ctx := t.Context()
	report := &Report{
		Suite:   s.Name,
		RunID:   opts.RunID,
		Started: time.Now(),
		Results: make([]Result, len(s.Cases)),
	}

	selections := Select(s.Infos(), opts.Select)
	anySelected := false
	for _, sel := range selections {
		if sel.Run {
			anySelected = true
			break
		}
	}

	var beforeAllErr error
	if anySelected {
		beforeAllErr = callHook(ctx, "before all", s.BeforeAll)
		defer func() {
			afterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := callHook(afterCtx, "after all", s.AfterAll); err != nil {
				report.AfterAllErr = err
				t.Errorf("%v", err)
			}
			report.Duration = time.Since(report.Started)
		}()
	}

	for i, sel := range selections {
		t.Run(sel.Info.Name, func(t *testing.T) {
			if !sel.Run {
				report.Results[i] = notRun(sel)
				t.Skipf("%s: %s", sel.Status, sel.Reason)
			}

			notify(opts.Observers, func(o Observer) { o.CaseStarted(sel.Info) })

			var res Result
			if beforeAllErr != nil {
				res = Result{
					Index:  sel.Info.Index,
					Name:   sel.Info.Name,
					Mode:   sel.Info.Mode,
					Status: StatusFailed,
					Kind:   KindHook,
					Err:    beforeAllErr,
				}
			} else {
				res = runCase(t.Context(), s, sel.Info, opts.CaseTimeout, logger)
			}
			report.Results[i] = res

			notify(opts.Observers, func(o Observer) { o.CaseFinished(res) })

			if res.Status == StatusFailed {
				if res.Artifact != "" {
					t.Logf("failure artifact: %s", res.Artifact)
				}
				t.Errorf("[%s] %v", res.Kind, res.Err)
			}
		})
	}

	return report
}
