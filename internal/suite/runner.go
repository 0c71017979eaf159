package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ternarybob/arbor"
)

// Observer is notified as cases start and finish
type Observer interface {
	CaseStarted(info CaseInfo)
	CaseFinished(res Result)
}

// Options controls a run
type Options struct {
	Select      SelectOptions
	CaseTimeout time.Duration // Zero means no per-case deadline beyond ctx
	RunID       string
	Logger      arbor.ILogger
	Observers   []Observer
}

// Run executes the selected cases serially and reports every declared case.
// BeforeAll and AfterAll run only when at least one case is selected.
func Run[S any](ctx context.Context, s *Suite[S], opts Options) *Report {
	logger := opts.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if opts.RunID != "" {
		logger = logger.WithCorrelationId(opts.RunID)
	}

	report := &Report{
		Suite:   s.Name,
		RunID:   opts.RunID,
		Started: time.Now(),
		Results: make([]Result, len(s.Cases)),
	}
	defer func() { report.Duration = time.Since(report.Started) }()

	selections := Select(s.Infos(), opts.Select)
	toRun := 0
	for i, sel := range selections {
		if !sel.Run {
			report.Results[i] = notRun(sel)
			continue
		}
		toRun++
	}

	logger.Info().
		Str("suite", s.Name).
		Int("declared", len(s.Cases)).
		Int("selected", toRun).
		Msg("Suite starting")

	if toRun == 0 {
		return report
	}

	beforeAllErr := callHook(ctx, "before all", s.BeforeAll)
	if beforeAllErr != nil {
		logger.Error().Err(beforeAllErr).Str("suite", s.Name).Msg("before all hook failed")
	}

	for i, sel := range selections {
		if !sel.Run {
			continue
		}
		if ctx.Err() != nil {
			kind := KindCancelled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				kind = KindTimeout
			}
			res := Result{
				Index:  sel.Info.Index,
				Name:   sel.Info.Name,
				Mode:   sel.Info.Mode,
				Status: StatusFailed,
				Kind:   kind,
				Err:    fmt.Errorf("suite stopped before case ran: %w", ctx.Err()),
			}
			report.Results[i] = res
			notify(opts.Observers, func(o Observer) { o.CaseFinished(res) })
			continue
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
			res = runCase(ctx, s, sel.Info, opts.CaseTimeout, logger)
		}
		report.Results[i] = res

		notify(opts.Observers, func(o Observer) { o.CaseFinished(res) })
	}

	// AfterAll runs even when the suite context is done
	afterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := callHook(afterCtx, "after all", s.AfterAll); err != nil {
		report.AfterAllErr = err
		logger.Error().Err(err).Str("suite", s.Name).Msg("after all hook failed")
	}

	counts := report.Counts()
	logger.Info().
		Str("suite", s.Name).
		Int("passed", counts[StatusPassed]).
		Int("failed", counts[StatusFailed]).
		Int("skipped", counts[StatusSkipped]).
		Int("excluded", counts[StatusExcluded]).
		Str("duration", time.Since(report.Started).Round(time.Millisecond).String()).
		Msg("Suite finished")

	return report
}

func notRun(sel Selection) Result {
	return Result{
		Index:  sel.Info.Index,
		Name:   sel.Info.Name,
		Mode:   sel.Info.Mode,
		Status: sel.Status,
		Reason: sel.Reason,
	}
}

func notify(observers []Observer, fn func(o Observer)) {
	for _, o := range observers {
		fn(o)
	}
}

// runCase opens fresh state, runs BeforeEach and the body, then AfterEach and
// the state's close function no matter how the body ended
func runCase[S any](ctx context.Context, s *Suite[S], info CaseInfo, defaultTimeout time.Duration, logger arbor.ILogger) (res Result) {
	c := s.Cases[info.Index]
	res = Result{Index: info.Index, Name: info.Name, Mode: info.Mode}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	caseCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		caseCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Status = StatusFailed
			logger.Error().
				Str("case", info.Name).
				Str("kind", string(res.Kind)).
				Err(res.Err).
				Str("duration", res.Duration.Round(time.Millisecond).String()).
				Msg("Case failed")
		} else {
			res.Status = StatusPassed
			logger.Info().
				Str("case", info.Name).
				Str("duration", res.Duration.Round(time.Millisecond).String()).
				Msg("Case passed")
		}
	}()

	logger.Info().Str("case", info.Name).Str("mode", info.Mode.String()).Msg("Case starting")

	var state S
	closeState := func() {}
	if s.Open != nil {
		var err error
		err = guard(func() error {
			var openErr error
			state, closeState, openErr = s.Open(caseCtx, info)
			return openErr
		})
		if err != nil {
			res.Err = &HookError{Hook: "open", Err: err}
			res.Kind = KindHook
			return res
		}
		if closeState == nil {
			closeState = func() {}
		}
	}
	defer closeState()

	var err error
	if s.BeforeEach != nil {
		if hookErr := guard(func() error { return s.BeforeEach(caseCtx, state) }); hookErr != nil {
			err = &HookError{Hook: "before each", Err: hookErr}
		}
	}
	if err == nil && c.Run != nil {
		err = guard(func() error { return c.Run(caseCtx, state) })
	}
	if err != nil {
		res.Kind = Classify(err, caseCtx.Err())
		if res.Kind == KindTimeout && timeout > 0 && caseCtx.Err() != nil {
			err = fmt.Errorf("case exceeded %s: %w", timeout, err)
		}
	}

	// Cleanup and diagnostics get their own budget; the case deadline may be spent
	cleanupCtx, cancelCleanup := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancelCleanup()

	if err != nil && s.OnFailure != nil {
		res.Artifact = s.OnFailure(cleanupCtx, state, info, err)
	}

	if s.AfterEach != nil {
		if hookErr := guard(func() error { return s.AfterEach(cleanupCtx, state) }); hookErr != nil {
			logger.Warn().Err(hookErr).Str("case", info.Name).Msg("after each hook failed")
			if err == nil {
				err = &HookError{Hook: "after each", Err: hookErr}
				res.Kind = KindHook
			}
		}
	}

	res.Err = err
	return res
}

func callHook(ctx context.Context, name string, hook func(ctx context.Context) error) error {
	if hook == nil {
		return nil
	}
	if err := guard(func() error { return hook(ctx) }); err != nil {
		return &HookError{Hook: name, Err: err}
	}
	return nil
}

// guard converts a panic into a PanicError
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}
