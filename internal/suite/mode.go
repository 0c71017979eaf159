package suite

import (
	"fmt"
	"strings"
)

// Mode is a case's execution marker
type Mode int

const (
	// Normal cases run unless another case is exclusive
	Normal Mode = iota
	// ExclusiveOnly cases suppress every non-exclusive case in the suite
	ExclusiveOnly
	// Skipped cases are declared but never run
	Skipped
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case ExclusiveOnly:
		return "only"
	case Skipped:
		return "skip"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, nil
	case "only", "exclusive":
		return ExclusiveOnly, nil
	case "skip", "skipped":
		return Skipped, nil
	default:
		return Normal, fmt.Errorf("unknown case mode %q", s)
	}
}
