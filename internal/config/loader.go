package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "platefinder"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PLATEFINDER"

	// DotEnvFile is read from the working directory before the environment.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v        *viper.Viper
	envFiles []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper(), envFiles: []string{DotEnvFile}}
}

// NewLoaderWithViper creates a loader backed by v. Tests use a fresh instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envFiles: []string{DotEnvFile}}
}

// WithEnvFiles replaces the list of dotenv files read before the environment.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// Load loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration and any error encountered.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final Validate call.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to the search paths.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml") // Primary format, but viper supports multiple formats
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		switch {
		case configFile != "":
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		case !errors.As(err, &configFileNotFoundError):
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file in the search paths: defaults and env vars only
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// loadDotEnv copies variables from the dotenv files into the process
// environment. Variables that are already set win. Missing files are skipped.
func (l *Loader) loadDotEnv() error {
	for _, file := range l.envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error reading env file %s: %w", file, err)
		}
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()

	// PLATEFINDER_PIPELINE_MIN_ASPECT_RATIO maps to pipeline.min_aspect_ratio
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Localization defaults
	l.v.SetDefault("pipeline.min_aspect_ratio", defaults.Pipeline.MinAspectRatio)
	l.v.SetDefault("pipeline.max_aspect_ratio", defaults.Pipeline.MaxAspectRatio)
	l.v.SetDefault("pipeline.keep", defaults.Pipeline.Keep)
	l.v.SetDefault("pipeline.clear_border", defaults.Pipeline.ClearBorder)
	l.v.SetDefault("pipeline.detector", defaults.Pipeline.Detector)
	l.v.SetDefault("pipeline.resize_width", defaults.Pipeline.ResizeWidth)
	l.v.SetDefault("pipeline.parallel.max_workers", defaults.Pipeline.Parallel.MaxWorkers)

	// OCR defaults
	l.v.SetDefault("ocr.backend", defaults.OCR.Backend)
	l.v.SetDefault("ocr.language", defaults.OCR.Language)
	l.v.SetDefault("ocr.psm", defaults.OCR.PageSegMode)
	l.v.SetDefault("ocr.allowed_characters", defaults.OCR.AllowedCharacters)
	l.v.SetDefault("ocr.region", defaults.OCR.Region)
	l.v.SetDefault("ocr.min_confidence", defaults.OCR.MinConfidence)

	// Lookup defaults
	l.v.SetDefault("lookup.backend", defaults.Lookup.Backend)
	l.v.SetDefault("lookup.path", defaults.Lookup.Path)
	l.v.SetDefault("lookup.dsn", defaults.Lookup.DSN)
	l.v.SetDefault("lookup.table", defaults.Lookup.Table)

	// Output defaults
	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
	l.v.SetDefault("output.overlay_dir", defaults.Output.OverlayDir)

	// Server defaults
	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.overlay_enabled", defaults.Server.OverlayEnabled)
	l.v.SetDefault("server.overlay_color", defaults.Server.OverlayColor)
	l.v.SetDefault("server.max_batch_items", defaults.Server.MaxBatchItems)
	l.v.SetDefault("server.rate_limit_enabled", defaults.Server.RateLimitEnabled)
	l.v.SetDefault("server.requests_per_minute", defaults.Server.RequestsPerMinute)
	l.v.SetDefault("server.requests_per_hour", defaults.Server.RequestsPerHour)
	l.v.SetDefault("server.max_requests_per_day", defaults.Server.MaxRequestsPerDay)
	l.v.SetDefault("server.max_data_per_day", defaults.Server.MaxDataPerDay)

	// Batch defaults
	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)
	l.v.SetDefault("batch.include", defaults.Batch.Include)
	l.v.SetDefault("batch.exclude", defaults.Batch.Exclude)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)

	// Debug defaults
	l.v.SetDefault("debug.enabled", defaults.Debug.Enabled)
	l.v.SetDefault("debug.dir", defaults.Debug.Dir)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+ConfigFileName))
	}

	paths = append(paths, filepath.Join("/etc", ConfigFileName))

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists && configDir != "" {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo() {
	fmt.Printf("Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Printf("Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Printf("Environment prefix: %s\n", EnvPrefix)
}
