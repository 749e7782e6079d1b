package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("expected log level %s, got %s", DefaultLogLevel, cfg.Logging.Level)
	}

	if len(cfg.ISC.HelperModules) != 1 || cfg.ISC.HelperModules[0] != DefaultISCHelperModule {
		t.Errorf("expected default helper module, got %v", cfg.ISC.HelperModules)
	}

	if len(cfg.Functions) != 0 {
		t.Errorf("expected no function entries by default, got %d", len(cfg.Functions))
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	cfg.Functions = []FunctionEntry{
		{Pattern: "*", FunctionConfig: FunctionConfig{IncludedFiles: []string{"data/**", "!data/tmp/**"}}},
		{Pattern: "hello", FunctionConfig: FunctionConfig{Schedule: "@daily"}},
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidSchedule(t *testing.T) {
	cfg := Default()
	cfg.Functions = []FunctionEntry{
		{Pattern: "hello", FunctionConfig: FunctionConfig{Schedule: "every day"}},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid schedule")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	found := false
	for _, e := range errs {
		if e.Field == "functions[0].schedule" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected error for functions[0].schedule field")
	}
}

func TestValidate_InvalidPattern(t *testing.T) {
	tests := []struct {
		name  string
		entry FunctionEntry
	}{
		{"empty pattern", FunctionEntry{Pattern: ""}},
		{"bad glob", FunctionEntry{Pattern: "[abc"}},
		{"bad included file", FunctionEntry{Pattern: "*", FunctionConfig: FunctionConfig{IncludedFiles: []string{"data/[x"}}}},
		{"empty included file", FunctionEntry{Pattern: "*", FunctionConfig: FunctionConfig{IncludedFiles: []string{"!"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Functions = []FunctionEntry{tt.entry}
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidate_EmptyHelperModule(t *testing.T) {
	cfg := Default()
	cfg.ISC.HelperModules = []string{" "}

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for empty helper module")
	}
}

func TestForFunction(t *testing.T) {
	cfg := &Config{
		Functions: []FunctionEntry{
			{Pattern: "*", FunctionConfig: FunctionConfig{
				Schedule:      "@weekly",
				IncludedFiles: []string{"shared/**"},
			}},
			{Pattern: "cron-*", FunctionConfig: FunctionConfig{Schedule: "@hourly"}},
			{Pattern: "cron-report", FunctionConfig: FunctionConfig{
				Schedule:            "@daily",
				IncludedFiles:       []string{"reports/**"},
				ExternalNodeModules: []string{"sharp"},
			}},
		},
	}

	tests := []struct {
		name         string
		function     string
		wantSchedule string
		wantIncluded int
		wantExternal int
	}{
		{"global only", "hello", "@weekly", 1, 0},
		{"glob overrides global", "cron-cleanup", "@hourly", 1, 0},
		{"exact name last", "cron-report", "@daily", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.ForFunction(tt.function)
			if got.Schedule != tt.wantSchedule {
				t.Errorf("schedule = %q, want %q", got.Schedule, tt.wantSchedule)
			}
			if len(got.IncludedFiles) != tt.wantIncluded {
				t.Errorf("included_files = %v, want %d entries", got.IncludedFiles, tt.wantIncluded)
			}
			if len(got.ExternalNodeModules) != tt.wantExternal {
				t.Errorf("external_node_modules = %v, want %d entries", got.ExternalNodeModules, tt.wantExternal)
			}
		})
	}
}

func TestForFunction_SpecificBeatsWildcard(t *testing.T) {
	cfg := &Config{
		Functions: []FunctionEntry{
			{Pattern: "hello", FunctionConfig: FunctionConfig{Schedule: "@hourly"}},
			{Pattern: "hel*", FunctionConfig: FunctionConfig{Schedule: "@weekly"}},
			{Pattern: "*", FunctionConfig: FunctionConfig{
				Schedule:      "@daily",
				IncludedFiles: []string{"shared/**"},
			}},
			{Pattern: "?ello", FunctionConfig: FunctionConfig{IncludedFiles: []string{"a/**"}}},
			{Pattern: "h?llo", FunctionConfig: FunctionConfig{IncludedFiles: []string{"b/**"}}},
		},
	}

	got := cfg.ForFunction("hello")
	if got.Schedule != "@hourly" {
		t.Errorf("schedule = %q, want %q", got.Schedule, "@hourly")
	}
	want := []string{"shared/**", "a/**", "b/**"}
	if strings.Join(got.IncludedFiles, ",") != strings.Join(want, ",") {
		t.Errorf("included_files = %v, want %v", got.IncludedFiles, want)
	}

	if got := cfg.ForFunction("world"); got.Schedule != "@daily" {
		t.Errorf("fallback schedule = %q, want %q", got.Schedule, "@daily")
	}
}

func TestForFunction_DoesNotMutateEntries(t *testing.T) {
	cfg := &Config{
		Functions: []FunctionEntry{
			{Pattern: "*", FunctionConfig: FunctionConfig{IncludedFiles: []string{"a"}}},
			{Pattern: "hello", FunctionConfig: FunctionConfig{IncludedFiles: []string{"b"}}},
		},
	}

	_ = cfg.ForFunction("hello")
	_ = cfg.ForFunction("hello")

	if len(cfg.Functions[0].IncludedFiles) != 1 {
		t.Errorf("expected entry to be untouched, got %v", cfg.Functions[0].IncludedFiles)
	}
}

func TestForFunction_NilConfig(t *testing.T) {
	var cfg *Config
	if got := cfg.ForFunction("hello"); got.Schedule != "" {
		t.Errorf("expected empty config, got %+v", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fnlist.yaml")

	content := `
functions:
  - pattern: "*"
    included_files: ["data/**"]
  - pattern: "hello"
    schedule: "@daily"
    external_node_modules: ["aws-sdk"]
feature_flags:
  build_go_source: true
logging:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Functions) != 2 {
		t.Fatalf("expected 2 function entries, got %d", len(cfg.Functions))
	}

	if cfg.Functions[1].Pattern != "hello" || cfg.Functions[1].Schedule != "@daily" {
		t.Errorf("unexpected second entry: %+v", cfg.Functions[1])
	}

	if !cfg.FeatureFlags["build_go_source"] {
		t.Error("expected build_go_source feature flag to be loaded")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	if len(cfg.ISC.HelperModules) != 1 {
		t.Errorf("expected default helper modules, got %v", cfg.ISC.HelperModules)
	}

	fn := cfg.ForFunction("hello")
	if fn.Schedule != "@daily" || len(fn.IncludedFiles) != 1 || len(fn.ExternalNodeModules) != 1 {
		t.Errorf("unexpected merged config: %+v", fn)
	}
}

func TestLoadFromFile_InvalidNamesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fnlist.yaml")

	content := `
functions:
  - pattern: "hello"
    schedule: "sometimes"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors in chain, got %T", err)
	}

	if !strings.Contains(err.Error(), configPath) {
		t.Errorf("expected error to name %s, got %v", configPath, err)
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fnlist.yaml")

	if err := os.WriteFile(configPath, []byte("functions: [\n  - pattern"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), configPath) {
		t.Errorf("expected error to name %s, got %v", configPath, err)
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("FNLIST_LOGGING_LEVEL", "warn")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn from env, got %s", cfg.Logging.Level)
	}
}

func TestGetConfigSchema(t *testing.T) {
	cfg := Default()
	cfg.FeatureFlags["build_go_source"] = true

	schema := GetConfigSchema(cfg, "/tmp/fnlist.yaml")

	if schema["path"] != "/tmp/fnlist.yaml" {
		t.Errorf("expected path in schema, got %v", schema["path"])
	}

	sections, ok := schema["sections"].(map[string]ConfigSectionMeta)
	if !ok {
		t.Fatalf("expected sections map, got %T", schema["sections"])
	}

	for _, name := range []string{"functions", "feature_flags", "isc", "logging"} {
		if _, ok := sections[name]; !ok {
			t.Errorf("expected section %s", name)
		}
	}
}
