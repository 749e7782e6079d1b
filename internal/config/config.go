// Package config provides configuration management for fnlist.
package config

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Config is the root configuration structure for fnlist.
type Config struct {
	// Functions holds static per-function configuration, in declaration order.
	Functions []FunctionEntry `mapstructure:"functions" json:"functions,omitempty" yaml:"functions,omitempty"`

	// FeatureFlags overrides the built-in feature flag defaults.
	FeatureFlags map[string]bool `mapstructure:"feature_flags" json:"feature_flags,omitempty" yaml:"feature_flags,omitempty"`

	ISC     ISCConfig     `mapstructure:"isc" json:"isc" yaml:"isc"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// FunctionConfig is the static configuration applicable to one function.
type FunctionConfig struct {
	// Schedule is a cron expression or descriptor such as "@daily".
	Schedule string `mapstructure:"schedule" json:"schedule,omitempty" yaml:"schedule,omitempty"`

	// IncludedFiles are extra files packaged with the function. Globs are
	// relative to the base path; a leading "!" excludes.
	IncludedFiles []string `mapstructure:"included_files" json:"included_files,omitempty" yaml:"included_files,omitempty"`

	// ExternalNodeModules are packages left out of dependency tracing.
	ExternalNodeModules []string `mapstructure:"external_node_modules" json:"external_node_modules,omitempty" yaml:"external_node_modules,omitempty"`
}

// FunctionEntry applies a FunctionConfig to every function whose name
// matches Pattern.
type FunctionEntry struct {
	// Pattern is a function name or a glob such as "*" or "cron-*".
	Pattern string `mapstructure:"pattern" json:"pattern" yaml:"pattern"`

	FunctionConfig `mapstructure:",squash" yaml:",inline"`
}

// ISCConfig holds in-source configuration settings.
type ISCConfig struct {
	// HelperModules are the modules whose `schedule` helper is recognized.
	HelperModules []string `mapstructure:"helper_modules" json:"helper_modules" yaml:"helper_modules"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (trace, debug, info, warn, error)
	Level string `mapstructure:"level" json:"level" yaml:"level"`

	// Output format (json, console)
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// ForFunction merges every entry whose pattern matches name, least specific
// first, so an entry naming the function beats a glob and a glob beats "*".
// Entries of equal specificity keep their declaration order. Later entries
// override scalar fields and extend list fields. Entries with invalid
// patterns never match; Validate reports them.
func (c *Config) ForFunction(name string) FunctionConfig {
	var merged FunctionConfig
	if c == nil {
		return merged
	}

	var matching []*FunctionEntry
	for i := range c.Functions {
		if c.Functions[i].Matches(name) {
			matching = append(matching, &c.Functions[i])
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Specificity() < matching[j].Specificity()
	})

	for _, entry := range matching {
		if entry.Schedule != "" {
			merged.Schedule = entry.Schedule
		}
		merged.IncludedFiles = append(merged.IncludedFiles, entry.IncludedFiles...)
		merged.ExternalNodeModules = append(merged.ExternalNodeModules, entry.ExternalNodeModules...)
	}

	return merged
}

// Specificity weighs a pattern by its literal characters.
func (e *FunctionEntry) Specificity() int {
	return len(e.Pattern) - strings.Count(e.Pattern, "*")
}

// Matches reports whether the entry applies to the named function.
func (e *FunctionEntry) Matches(name string) bool {
	if e.Pattern == name {
		return true
	}
	g, err := glob.Compile(e.Pattern)
	if err != nil {
		return false
	}
	return g.Match(name)
}
