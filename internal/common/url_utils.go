package common

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL resolves target against base. An absolute target is returned
// unchanged; an empty target yields base. Relative targets are joined onto the
// base path so "inventory.html" and "/inventory.html" behave the same.
func ResolveURL(base, target string) (string, error) {
	if target != "" {
		if u, err := url.Parse(target); err == nil && u.IsAbs() {
			return target, nil
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if !baseURL.IsAbs() {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	if target == "" {
		return baseURL.String(), nil
	}

	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}

	resolved := *baseURL
	resolved.Path = joinPath(baseURL.Path, ref.Path)
	if !strings.HasPrefix(resolved.Path, "/") {
		resolved.Path = "/" + resolved.Path
	}
	resolved.RawQuery = ref.RawQuery
	resolved.Fragment = ref.Fragment
	return resolved.String(), nil
}

// joinPath safely joins path segments, preventing duplicate slashes
func joinPath(segments ...string) string {
	result := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if result == "" {
			result = seg
		} else if result[len(result)-1] == '/' {
			if seg[0] == '/' {
				result += seg[1:]
			} else {
				result += seg
			}
		} else {
			if seg[0] == '/' {
				result += seg
			} else {
				result += "/" + seg
			}
		}
	}
	return result
}
