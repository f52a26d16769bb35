package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Entry describes a matched source file at enumeration time.
type Entry struct {
	Name    string // base name, the identity used for skip checks
	Path    string // full path within the source directory
	Size    int64
	ModTime time.Time
}

// Matcher matches base names against a case-insensitive glob pattern.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// NewMatcher compiles pattern into a case-insensitive matcher.
// The glob syntax is folded by lowercasing both the pattern and the
// candidate names, so "*.h5" matches "REPORT.H5".
func NewMatcher(pattern string) (Matcher, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return Matcher{}, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return Matcher{pattern: pattern, g: g}, nil
}

// Match reports whether a base name satisfies the pattern.
func (m Matcher) Match(name string) bool {
	return m.g.Match(strings.ToLower(name))
}

// Pattern returns the original, uncompiled pattern string.
func (m Matcher) Pattern() string {
	return m.pattern
}

// List enumerates the files in dir whose base names match m.
//
// The listing is non-recursive: subdirectories are neither descended into
// nor reported. Entries come back in filesystem enumeration order. A missing
// or unreadable directory yields zero matches rather than an error, matching
// the tolerance the tool needs for an input root that has not been created
// yet.
func List(dir string, m Matcher) []Entry {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		if !m.Match(de.Name()) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			// Entry vanished between ReadDir and stat; treat as unmatched.
			continue
		}

		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(dir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return entries
}
