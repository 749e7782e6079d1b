package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/watzon/fnlist/internal/schedule"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateFunctions(cfg.Functions)...)
	errs = append(errs, validateISC(&cfg.ISC)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateFunctions(entries []FunctionEntry) ValidationErrors {
	var errs ValidationErrors

	for i, entry := range entries {
		field := fmt.Sprintf("functions[%d]", i)

		if strings.TrimSpace(entry.Pattern) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".pattern",
				Message: "required",
			})
		} else if _, err := glob.Compile(entry.Pattern); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid glob %q: %v", entry.Pattern, err),
			})
		}

		if entry.Schedule != "" {
			if err := schedule.Validate(entry.Schedule); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".schedule",
					Message: fmt.Sprintf("invalid schedule %q: %v", entry.Schedule, err),
				})
			}
		}

		for j, pattern := range entry.IncludedFiles {
			trimmed := strings.TrimPrefix(strings.TrimSpace(pattern), "!")
			if trimmed == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.included_files[%d]", field, j),
					Message: "must not be empty",
				})
				continue
			}
			if _, err := glob.Compile(trimmed, '/'); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.included_files[%d]", field, j),
					Message: fmt.Sprintf("invalid glob %q: %v", pattern, err),
				})
			}
		}
	}

	return errs
}

func validateISC(cfg *ISCConfig) ValidationErrors {
	var errs ValidationErrors

	for i, module := range cfg.HelperModules {
		if strings.TrimSpace(module) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("isc.helper_modules[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, panic",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}
