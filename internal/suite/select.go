package suite

import (
	"regexp"
)

// SelectOptions controls which declared cases run
type SelectOptions struct {
	Grep           *regexp.Regexp // Nil matches every name
	HonorExclusive bool           // When false, ExclusiveOnly behaves like Normal
}

// Selection is the decision for one case
type Selection struct {
	Info   CaseInfo
	Run    bool
	Status Status // Skipped or Excluded when Run is false
	Reason string
}

// Select decides the executed set. Skipped cases never run. If exclusivity is
// honoured and any case is ExclusiveOnly, only exclusive cases are eligible.
// The name filter then narrows the eligible set.
func Select(infos []CaseInfo, opts SelectOptions) []Selection {
	exclusive := false
	if opts.HonorExclusive {
		for _, info := range infos {
			if info.Mode == ExclusiveOnly {
				exclusive = true
				break
			}
		}
	}

	selections := make([]Selection, len(infos))
	for i, info := range infos {
		sel := Selection{Info: info, Run: true}
		switch {
		case info.Mode == Skipped:
			sel.Run, sel.Status, sel.Reason = false, StatusSkipped, "marked skip"
		case exclusive && info.Mode != ExclusiveOnly:
			sel.Run, sel.Status, sel.Reason = false, StatusExcluded, "another case is marked only"
		case opts.Grep != nil && !opts.Grep.MatchString(info.Name):
			sel.Run, sel.Status, sel.Reason = false, StatusExcluded, "name does not match filter"
		}
		selections[i] = sel
	}
	return selections
}
