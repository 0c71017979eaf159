package suite

import (
	"time"
)

// Status is the outcome of one case
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"  // Marked Skipped
	StatusExcluded Status = "excluded" // Not selected: another case is exclusive, or the name filter did not match
)

// Result is the outcome of one case
type Result struct {
	Index    int
	Name     string
	Mode     Mode
	Status   Status
	Kind     FailureKind
	Err      error
	Reason   string // Why a case did not run
	Duration time.Duration
	Artifact string // Failure screenshot, when one was taken
}

// Report is the outcome of a suite run
type Report struct {
	Suite       string
	RunID       string
	Started     time.Time
	Duration    time.Duration
	Results     []Result
	AfterAllErr error
}

// Counts tallies results by status
func (r *Report) Counts() map[Status]int {
	counts := map[Status]int{
		StatusPassed:   0,
		StatusFailed:   0,
		StatusSkipped:  0,
		StatusExcluded: 0,
	}
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// Failed reports whether any case failed or the after-all hook errored
func (r *Report) Failed() bool {
	if r.AfterAllErr != nil {
		return true
	}
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Executed returns the names of the cases that actually ran
func (r *Report) Executed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == StatusPassed || res.Status == StatusFailed {
			names = append(names, res.Name)
		}
	}
	return names
}
