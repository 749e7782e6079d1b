package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher matches slash-separated relative paths against include patterns,
// with patterns prefixed by "!" excluding matches.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
	bases   []string
}

// NewMatcher compiles patterns. Leading "./" is ignored.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}

	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		negate := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if pattern == "" {
			continue
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", raw, err)
		}

		if negate {
			m.exclude = append(m.exclude, g)
			continue
		}
		m.include = append(m.include, g)
		m.bases = append(m.bases, extractBaseDir(pattern))
	}

	return m, nil
}

// Empty reports whether the matcher has no include patterns.
func (m *Matcher) Empty() bool {
	return len(m.include) == 0
}

// Match reports whether rel is included and not excluded.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)

	matched := false
	for _, g := range m.include {
		if g.Match(rel) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, g := range m.exclude {
		if g.Match(rel) {
			return false
		}
	}
	return true
}

// Glob returns the absolute paths of regular files under root matching
// patterns, sorted.
func Glob(root string, patterns []string) ([]string, error) {
	m, err := NewMatcher(patterns)
	if err != nil {
		return nil, err
	}
	if m.Empty() {
		return nil, nil
	}

	seen := make(map[string]bool)
	var files []string

	for _, base := range walkRoots(m.bases) {
		start := filepath.Join(root, filepath.FromSlash(base))
		if _, err := os.Stat(start); err != nil {
			continue
		}

		err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if m.Match(rel) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("matching files under %s: %w", start, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// walkRoots drops base directories nested inside other bases.
func walkRoots(bases []string) []string {
	sorted := append([]string(nil), bases...)
	sort.Strings(sorted)

	var roots []string
	for _, base := range sorted {
		nested := false
		for _, root := range roots {
			if root == "." || base == root || strings.HasPrefix(base, root+"/") {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, base)
		}
	}
	return roots
}

// extractBaseDir returns the longest leading directory of pattern that holds
// no wildcard.
func extractBaseDir(pattern string) string {
	parts := strings.Split(pattern, "/")
	var static []string
	for _, part := range parts[:len(parts)-1] {
		if containsWildcard(part) {
			break
		}
		static = append(static, part)
	}
	if len(static) == 0 {
		return "."
	}
	return strings.Join(static, "/")
}

func containsWildcard(part string) bool {
	return strings.ContainsAny(part, "*?[{")
}
