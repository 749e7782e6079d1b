package config

import (
	"github.com/watzon/fnlist/internal/featureflags"
)

// ConfigFieldType represents the type of a configuration field.
type ConfigFieldType string

const (
	FieldTypeString      ConfigFieldType = "string"
	FieldTypeBool        ConfigFieldType = "bool"
	FieldTypeStringArray ConfigFieldType = "stringArray"
	FieldTypeBoolMap     ConfigFieldType = "boolMap"
	FieldTypeObjectArray ConfigFieldType = "objectArray"
	FieldTypeObject      ConfigFieldType = "object"
)

// ConfigFieldMeta holds metadata about a configuration field.
type ConfigFieldMeta struct {
	Type        ConfigFieldType `json:"type" yaml:"type"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any             `json:"default,omitempty" yaml:"default,omitempty"`
	Current     any             `json:"current,omitempty" yaml:"current,omitempty"`
	Options     []string        `json:"options,omitempty" yaml:"options,omitempty"`
	Fields      map[string]any  `json:"fields,omitempty" yaml:"fields,omitempty"` // For nested objects
}

// ConfigSectionMeta holds metadata about a configuration section.
type ConfigSectionMeta struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      map[string]any `json:"fields" yaml:"fields"`
}

// GetConfigSchema returns the full configuration schema with metadata and current values.
func GetConfigSchema(current *Config, configPath string) map[string]any {
	defaults := Default()
	if current == nil {
		current = defaults
	}

	sections := map[string]ConfigSectionMeta{
		"functions": {
			Name:        "Functions",
			Description: "Static per-function configuration; matching entries merge in declaration order",
			Fields: map[string]any{
				"pattern": ConfigFieldMeta{
					Type:        FieldTypeString,
					Description: "Function name or glob (\"*\" applies to every function)",
				},
				"schedule": ConfigFieldMeta{
					Type:        FieldTypeString,
					Description: "Cron expression or descriptor; in-source declarations take precedence",
				},
				"included_files": ConfigFieldMeta{
					Type:        FieldTypeStringArray,
					Description: "Extra files to package, as globs relative to the base path (\"!\" excludes)",
				},
				"external_node_modules": ConfigFieldMeta{
					Type:        FieldTypeStringArray,
					Description: "Node modules left out of dependency tracing",
				},
				"entries": ConfigFieldMeta{
					Type:    FieldTypeObjectArray,
					Current: current.Functions,
				},
			},
		},
		"feature_flags": {
			Name:        "Feature flags",
			Description: "Toggles threaded through every runtime probe",
			Fields: map[string]any{
				"flags": ConfigFieldMeta{
					Type:    FieldTypeBoolMap,
					Default: featureflags.Get(nil),
					Current: featureflags.Get(current.FeatureFlags),
					Options: featureflags.Get(nil).Names(),
				},
			},
		},
		"isc": {
			Name:        "In-source configuration",
			Description: "Static analysis of function entry files",
			Fields: map[string]any{
				"helper_modules": ConfigFieldMeta{
					Type:        FieldTypeStringArray,
					Description: "Modules whose schedule() helper is recognized",
					Default:     defaults.ISC.HelperModules,
					Current:     current.ISC.HelperModules,
				},
			},
		},
		"logging": {
			Name:        "Logging",
			Description: "Log output settings",
			Fields: map[string]any{
				"level": ConfigFieldMeta{
					Type:        FieldTypeString,
					Description: "Minimum log level",
					Default:     defaults.Logging.Level,
					Current:     current.Logging.Level,
					Options:     []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"},
				},
				"format": ConfigFieldMeta{
					Type:        FieldTypeString,
					Description: "Log output format",
					Default:     defaults.Logging.Format,
					Current:     current.Logging.Format,
					Options:     []string{"console", "json"},
				},
			},
		},
	}

	return map[string]any{
		"sections": sections,
		"path":     configPath,
	}
}
