package history

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"
)

// PathFilter decides which snapshot paths are fetched.
// A zero PathFilter accepts every path.
type PathFilter struct {
	Include      []string // Glob patterns to include
	Exclude      []string // Glob patterns to exclude
	SkipVendored bool
}

// Validate checks that all patterns are well-formed.
func (f PathFilter) Validate() error {
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %q", p)
		}
	}
	return nil
}

// Matches checks if a path passes the include/exclude filters.
func (f PathFilter) Matches(path string) bool {
	// Normalize path separators
	path = strings.ReplaceAll(path, "\\", "/")

	if f.SkipVendored && enry.IsVendor(path) {
		return false
	}

	// Check exclude patterns first
	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}

	// If no include patterns, accept all
	if len(f.Include) == 0 {
		return true
	}

	for _, pattern := range f.Include {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}

	return false
}
