package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/fnlist/internal/config"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0-dev"

var (
	cfgFile string
	verbose bool

	// cfg is the configuration loaded before any subcommand runs.
	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fnlist",
	Short: "Discover serverless functions in a source tree",
	Long: `fnlist finds the functions in a project's functions directories and reports,
for each one, its entry file, runtime, extension and schedule.

Supported runtimes:

  - JavaScript and TypeScript files or directories
  - Go executables, and Go source directories with --feature-flag build_go_source
  - Rust executables, and Cargo crates with --feature-flag build_rust_source
  - Pre-built .zip archives

List functions:
  fnlist list netlify/functions

List every file each function needs:
  fnlist files netlify/functions --base-path .`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		return setupLogging(cfg.Logging)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./fnlist.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// initConfig loads the config file and FNLIST_* environment variables.
// A missing config file is not an error.
func initConfig() error {
	loaded, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// setupLogging configures zerolog from the logging config and verbosity.
// Logs always go to stderr so they never mix with command output.
func setupLogging(logging config.LoggingConfig) error {
	level := zerolog.InfoLevel
	if logging.Level != "" {
		parsed, err := zerolog.ParseLevel(logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logging.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	switch logging.Format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "", "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	default:
		return errors.New("invalid log format: " + logging.Format)
	}
	return nil
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("fnlist version %s", version)
}
