//nolint:lll
package config

// Config represents the complete configuration for the platefinder application.
// It includes settings for all commands (image, batch, pdf, serve, lookup) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Localization settings
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Text recognition
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// Plate database
	Lookup LookupConfig `mapstructure:"lookup" yaml:"lookup" json:"lookup"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Intermediate image dumps
	Debug DebugConfig `mapstructure:"debug" yaml:"debug" json:"debug"`
}

// PipelineConfig contains plate localization settings.
type PipelineConfig struct {
	MinAspectRatio float64 `mapstructure:"min_aspect_ratio" yaml:"min_aspect_ratio" json:"min_aspect_ratio"`
	MaxAspectRatio float64 `mapstructure:"max_aspect_ratio" yaml:"max_aspect_ratio" json:"max_aspect_ratio"`
	Keep           int     `mapstructure:"keep" yaml:"keep" json:"keep"`
	ClearBorder    bool    `mapstructure:"clear_border" yaml:"clear_border" json:"clear_border"`
	Detector       string  `mapstructure:"detector" yaml:"detector" json:"detector"`
	ResizeWidth    int     `mapstructure:"resize_width" yaml:"resize_width" json:"resize_width"`

	// Parallel processing
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OCRConfig selects the text recognizer.
type OCRConfig struct {
	Backend           string  `mapstructure:"backend" yaml:"backend" json:"backend"`
	Language          string  `mapstructure:"language" yaml:"language" json:"language"`
	PageSegMode       int     `mapstructure:"psm" yaml:"psm" json:"psm"`
	AllowedCharacters string  `mapstructure:"allowed_characters" yaml:"allowed_characters" json:"allowed_characters"`
	Region            string  `mapstructure:"region" yaml:"region" json:"region"`
	MinConfidence     float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
}

// LookupConfig selects the plate database.
type LookupConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	Table   string `mapstructure:"table" yaml:"table" json:"table"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool   `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	OverlayColor    string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	MaxBatchItems   int    `mapstructure:"max_batch_items" yaml:"max_batch_items" json:"max_batch_items"`

	// Rate limiting
	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// DebugConfig controls the intermediate image dumps.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir" json:"dir"`
}
