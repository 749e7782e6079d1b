// Package featureflags holds the toggles threaded through every runtime probe.
package featureflags

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// BuildGoSource lets directories of Go source be detected as functions.
	BuildGoSource = "build_go_source"
	// BuildRustSource lets Cargo crates be detected as functions.
	BuildRustSource = "build_rust_source"
	// StrictRuntimeProbes surfaces probe faults instead of skipping the candidate.
	StrictRuntimeProbes = "strict_runtime_probes"
)

// Flags maps a flag name to its value. Unknown names are carried along
// untouched so runtimes can be toggled without changing callers.
type Flags map[string]bool

var defaults = Flags{
	BuildGoSource:       false,
	BuildRustSource:     false,
	StrictRuntimeProbes: false,
}

// Get returns the default flags with overrides applied on top.
func Get(overrides Flags) Flags {
	flags := make(Flags, len(defaults)+len(overrides))
	for name, value := range defaults {
		flags[name] = value
	}
	for name, value := range overrides {
		flags[name] = value
	}
	return flags
}

// Enabled reports whether name is set to true.
func (f Flags) Enabled(name string) bool {
	return f[name]
}

// Names returns the flag names in sorted order.
func (f Flags) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse reads flags written as "name" or "name=bool".
func Parse(values []string) (Flags, error) {
	flags := make(Flags, len(values))
	for _, raw := range values {
		name, value, hasValue := strings.Cut(strings.TrimSpace(raw), "=")
		if name == "" {
			return nil, fmt.Errorf("invalid feature flag %q: missing name", raw)
		}
		if !hasValue {
			flags[name] = true
			continue
		}
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid feature flag %q: %w", raw, err)
		}
		flags[name] = enabled
	}
	return flags, nil
}
