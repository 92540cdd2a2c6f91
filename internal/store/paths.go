package store

import (
	"fmt"
	"regexp"
	"strings"
)

// Item paths are segments of [A-Za-z0-9._-] joined by single slashes, no
// leading/trailing/double separators. The same grammar guards every store
// entry point so "a/b" and "a/b/" can never become two items.
var pathRe = regexp.MustCompile(`^[A-Za-z0-9._-]+(?:/[A-Za-z0-9._-]+)*$`)

// NormalizePath trims whitespace, drops a trailing slash and validates the
// result. A malformed path is a caller error (ErrInvalidPath), not a store
// fault.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	if !pathRe.MatchString(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return p, nil
}
