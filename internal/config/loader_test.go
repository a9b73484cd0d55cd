package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// clearPlatefinderEnvVars unsets every PLATEFINDER_ variable for the duration of the test.
func clearPlatefinderEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, EnvPrefix+"_") {
			continue
		}
		key, value, _ := strings.Cut(env, "=")
		_ = os.Unsetenv(key)
		t.Cleanup(func() { _ = os.Setenv(key, value) })
	}
}

// chdirTemp moves the test into an empty directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	return tmpDir
}

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.v == nil {
		t.Error("Loader viper instance is nil")
	}
	if len(loader.envFiles) != 1 || loader.envFiles[0] != DotEnvFile {
		t.Errorf("Expected default env file %q, got %v", DotEnvFile, loader.envFiles)
	}
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	clearPlatefinderEnvVars(t)
	chdirTemp(t)

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level %q, got %q", infoLevel, cfg.LogLevel)
	}
	if cfg.Pipeline.MinAspectRatio != 4 || cfg.Pipeline.MaxAspectRatio != 5 {
		t.Errorf("Expected default aspect ratio band, got [%v,%v]", cfg.Pipeline.MinAspectRatio, cfg.Pipeline.MaxAspectRatio)
	}
	if len(cfg.Batch.Include) == 0 {
		t.Error("Expected default include patterns")
	}
}

// TestLoadFromSearchPath tests that platefinder.yaml in the working directory is found.
func TestLoadFromSearchPath(t *testing.T) {
	clearPlatefinderEnvVars(t)
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "platefinder.yaml"), "pipeline:\n  keep: 9\n")

	loader := newTestLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Pipeline.Keep != 9 {
		t.Errorf("Expected keep 9 from file, got %d", cfg.Pipeline.Keep)
	}
	if !strings.HasSuffix(loader.GetConfigFileUsed(), "platefinder.yaml") {
		t.Errorf("Unexpected config file used: %q", loader.GetConfigFileUsed())
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	clearPlatefinderEnvVars(t)
	configFile := filepath.Join(t.TempDir(), "custom.yaml")

	writeFile(t, configFile, `
log_level: debug
verbose: true
pipeline:
  min_aspect_ratio: 3.0
  max_aspect_ratio: 6.5
  clear_border: true
ocr:
  backend: none
  psm: 8
lookup:
  backend: memory
server:
  host: 0.0.0.0
  port: 9090
batch:
  include: ["*.png"]
  exclude: ["skip_*"]
`)

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel || !cfg.Verbose {
		t.Errorf("Global settings not loaded: %q %v", cfg.LogLevel, cfg.Verbose)
	}
	if cfg.Pipeline.MinAspectRatio != 3.0 || cfg.Pipeline.MaxAspectRatio != 6.5 {
		t.Errorf("Aspect ratio band not loaded: [%v,%v]", cfg.Pipeline.MinAspectRatio, cfg.Pipeline.MaxAspectRatio)
	}
	if !cfg.Pipeline.ClearBorder {
		t.Error("Expected clear_border true")
	}
	if cfg.Pipeline.Keep != 5 {
		t.Errorf("Unset keys should keep defaults, got keep %d", cfg.Pipeline.Keep)
	}
	if cfg.OCR.Backend != "none" || cfg.OCR.PageSegMode != 8 {
		t.Errorf("OCR settings not loaded: %+v", cfg.OCR)
	}
	if cfg.Lookup.Backend != "memory" {
		t.Errorf("Expected lookup backend memory, got %q", cfg.Lookup.Backend)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("Server settings not loaded: %+v", cfg.Server)
	}
	if len(cfg.Batch.Include) != 1 || cfg.Batch.Include[0] != "*.png" {
		t.Errorf("Include patterns not loaded: %v", cfg.Batch.Include)
	}
	if len(cfg.Batch.Exclude) != 1 || cfg.Batch.Exclude[0] != "skip_*" {
		t.Errorf("Exclude patterns not loaded: %v", cfg.Batch.Exclude)
	}
}

// TestLoadWithInvalidYAMLFile tests loading from an invalid YAML file.
func TestLoadWithInvalidYAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "platefinder.yaml")
	writeFile(t, configFile, "pipeline:\n  keep: [unclosed\n")

	if _, err := newTestLoader().LoadWithFile(configFile); err == nil {
		t.Error("LoadWithFile() expected error for invalid YAML")
	}
}

// TestLoadWithNonExistentFile tests loading from a non-existent file.
func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile("/nonexistent/platefinder.yaml")
	if err == nil {
		t.Fatal("LoadWithFile() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Unexpected error: %v", err)
	}
}

// TestLoadWithValidationFailure tests that invalid values are rejected.
func TestLoadWithValidationFailure(t *testing.T) {
	clearPlatefinderEnvVars(t)
	configFile := filepath.Join(t.TempDir(), "platefinder.yaml")
	writeFile(t, configFile, "pipeline:\n  min_aspect_ratio: 5\n  max_aspect_ratio: 4\n")

	_, err := newTestLoader().LoadWithFile(configFile)
	if err == nil {
		t.Fatal("LoadWithFile() expected validation error")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Unexpected error: %v", err)
	}
}

// TestLoadWithoutValidation tests that validation can be skipped.
func TestLoadWithoutValidation(t *testing.T) {
	clearPlatefinderEnvVars(t)
	configFile := filepath.Join(t.TempDir(), "platefinder.yaml")
	writeFile(t, configFile, "pipeline:\n  keep: 0\n")

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(configFile)
	if err != nil {
		t.Fatalf("LoadWithFileWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Pipeline.Keep != 0 {
		t.Errorf("Expected keep 0, got %d", cfg.Pipeline.Keep)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject keep 0")
	}
}

// TestLoadWithoutValidationUsesDefaults tests the search path variant without validation.
func TestLoadWithoutValidationUsesDefaults(t *testing.T) {
	clearPlatefinderEnvVars(t)
	chdirTemp(t)

	cfg, err := newTestLoader().LoadWithoutValidation()
	if err != nil {
		t.Fatalf("LoadWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
}

// TestEnvironmentVariableOverride tests environment variable override.
func TestEnvironmentVariableOverride(t *testing.T) {
	clearPlatefinderEnvVars(t)
	chdirTemp(t)

	t.Setenv("PLATEFINDER_LOG_LEVEL", "debug")
	t.Setenv("PLATEFINDER_SERVER_PORT", "9999")
	t.Setenv("PLATEFINDER_VERBOSE", "true")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose true from env")
	}
}

// TestEnvironmentVariableWithUnderscores tests nested keys whose names contain underscores.
func TestEnvironmentVariableWithUnderscores(t *testing.T) {
	clearPlatefinderEnvVars(t)
	chdirTemp(t)

	t.Setenv("PLATEFINDER_PIPELINE_MIN_ASPECT_RATIO", "2.5")
	t.Setenv("PLATEFINDER_PIPELINE_CLEAR_BORDER", "true")
	t.Setenv("PLATEFINDER_LOOKUP_BACKEND", "memory")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Pipeline.MinAspectRatio != 2.5 {
		t.Errorf("Expected min aspect ratio 2.5 from env, got %v", cfg.Pipeline.MinAspectRatio)
	}
	if !cfg.Pipeline.ClearBorder {
		t.Error("Expected clear_border true from env")
	}
	if cfg.Lookup.Backend != "memory" {
		t.Errorf("Expected lookup backend memory from env, got %q", cfg.Lookup.Backend)
	}
}

// TestDotEnvFile tests that .env values are applied and real environment variables win.
func TestDotEnvFile(t *testing.T) {
	clearPlatefinderEnvVars(t)
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, DotEnvFile), "PLATEFINDER_PIPELINE_KEEP=7\nPLATEFINDER_SERVER_PORT=7000\n")
	t.Setenv("PLATEFINDER_SERVER_PORT", "7100")
	t.Cleanup(func() { _ = os.Unsetenv("PLATEFINDER_PIPELINE_KEEP") })

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Pipeline.Keep != 7 {
		t.Errorf("Expected keep 7 from .env, got %d", cfg.Pipeline.Keep)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Expected the environment to win over .env, got port %d", cfg.Server.Port)
	}
}

// TestDotEnvFileMissing tests that a missing env file is not an error.
func TestDotEnvFileMissing(t *testing.T) {
	clearPlatefinderEnvVars(t)
	chdirTemp(t)

	loader := newTestLoader().WithEnvFiles("missing.env")
	if _, err := loader.Load(); err != nil {
		t.Errorf("Load() unexpected error: %v", err)
	}
}

// TestMultipleConfigSourcesPrecedence tests env > file > defaults.
func TestMultipleConfigSourcesPrecedence(t *testing.T) {
	clearPlatefinderEnvVars(t)
	configFile := filepath.Join(t.TempDir(), "platefinder.yaml")
	writeFile(t, configFile, "log_level: warn\nserver:\n  port: 8181\n")
	t.Setenv("PLATEFINDER_SERVER_PORT", "8282")

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != warnLevel {
		t.Errorf("Expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.Server.Port != 8282 {
		t.Errorf("Expected port from env, got %d", cfg.Server.Port)
	}
	if cfg.Server.TimeoutSec != 30 {
		t.Errorf("Expected default timeout, got %d", cfg.Server.TimeoutSec)
	}
}

// TestGetSetConfigValues tests direct access to the underlying values.
func TestGetSetConfigValues(t *testing.T) {
	loader := newTestLoader()
	loader.Set("lookup.path", "plates.yaml")

	if got := loader.GetString("lookup.path"); got != "plates.yaml" {
		t.Errorf("GetString() = %q", got)
	}
	if got := loader.Get("lookup.path"); got != "plates.yaml" {
		t.Errorf("Get() = %v", got)
	}
	if loader.GetViper() == nil {
		t.Error("GetViper() returned nil")
	}
}

// TestGetResolvedConfig tests that defaults show up in the resolved settings.
func TestGetResolvedConfig(t *testing.T) {
	loader := newTestLoader()
	loader.setDefaults()

	settings := loader.GetResolvedConfig()
	if _, ok := settings["pipeline"]; !ok {
		t.Error("Resolved config is missing the pipeline section")
	}
	if _, ok := settings["ocr"]; !ok {
		t.Error("Resolved config is missing the ocr section")
	}
}

// TestGenerateDefaultConfigFile tests generating a default config file.
func TestGenerateDefaultConfigFile(t *testing.T) {
	clearPlatefinderEnvVars(t)
	outputFile := filepath.Join(t.TempDir(), "default.yaml")

	if err := GenerateDefaultConfigFile(outputFile); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() error: %v", err)
	}

	cfg, err := newTestLoader().LoadWithFile(outputFile)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if cfg.Pipeline.Keep != 5 {
		t.Errorf("Generated config lost keep default, got %d", cfg.Pipeline.Keep)
	}
}

// TestGenerateDefaultConfigFileWithEmptyFilename tests default filename.
func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	dir := chdirTemp(t)

	if err := GenerateDefaultConfigFile(""); err != nil {
		t.Fatalf("GenerateDefaultConfigFile(\"\") error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "platefinder.yaml")); err != nil {
		t.Errorf("Default platefinder.yaml was not generated: %v", err)
	}
}

// TestGetConfigSearchPaths tests the search path order.
func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	paths := GetConfigSearchPaths()
	if len(paths) == 0 || paths[0] != "." {
		t.Fatalf("Expected the working directory first, got %v", paths)
	}

	joined := strings.Join(paths, "|")
	for _, want := range []string{"/etc/platefinder", filepath.Join("/xdg", "platefinder")} {
		if !strings.Contains(joined, want) {
			t.Errorf("Search paths %v missing %s", paths, want)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if !strings.Contains(joined, filepath.Join(home, ".platefinder")) {
			t.Errorf("Search paths %v missing home directory entry", paths)
		}
	}
}
