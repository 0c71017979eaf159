package browser

import (
	"fmt"
	"regexp"
	"strings"
)

// compileGlob turns a URL glob into an anchored regexp. "**" matches any run
// of characters, "*" any run without a slash, "?" one character other than a slash.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid route pattern %q: %w", pattern, err)
	}
	return re, nil
}

// methodMatches compares HTTP methods case-insensitively; "" and "*" match any
func methodMatches(want, got string) bool {
	return want == "" || want == "*" || strings.EqualFold(want, got)
}
