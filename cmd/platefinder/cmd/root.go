package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/platefinder/internal/config"
	"github.com/MeKo-Tech/platefinder/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "platefinder",
	Short: "License plate localization, recognition and lookup",
	Long: `platefinder finds the license plate in a photo of a vehicle, reads its
characters and looks the plate up in a vehicle database.

This tool provides:
- Plate localization with a morphological candidate detector
- Aspect ratio selection of the plate among the candidates
- Text recognition through Tesseract or Amazon Rekognition
- Reverse lookup in a JSON, YAML or PostgreSQL plate database
- Batch, PDF and HTTP server modes

Examples:
  platefinder image car.jpg
  platefinder batch photos/ --format csv
  platefinder lookup ABC123
  platefinder serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "platefinder version %s\n", version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME/.platefinder, /etc/platefinder, $XDG_CONFIG_HOME/platefinder)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		slog.SetDefault(newLogger(cmd, globalConfig))
		return nil
	}
}

// newLogger writes JSON records to stderr so stdout carries only results.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	loader := GetConfigLoader()

	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg
	return nil
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			slog.Error("configuration", "error", err)
			def := config.DefaultConfig()
			return &def
		}
	}

	// Reload so values bound after the first load are included
	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		slog.Error("unmarshaling updated configuration", "error", err)
		return globalConfig
	}
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// commandContext returns the context of cmd, which is nil when RunE is
// called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
