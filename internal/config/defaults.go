package config

// Default configuration values.
const (
	DefaultConfigName = "fnlist"
	DefaultEnvPrefix  = "FNLIST"

	// DefaultISCHelperModule exports the `schedule` helper recognized in
	// function source.
	DefaultISCHelperModule = "@netlify/functions"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		FeatureFlags: make(map[string]bool),
		ISC: ISCConfig{
			HelperModules: []string{DefaultISCHelperModule},
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
