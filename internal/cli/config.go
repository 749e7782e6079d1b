package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watzon/fnlist/internal/config"
	"github.com/watzon/fnlist/internal/featureflags"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	Long: `Inspect the configuration fnlist runs with.

The configuration is read from fnlist.yaml in the current directory or
$HOME/.config/fnlist, or from the file given with --config. Any key can be
overridden with an FNLIST_ environment variable, e.g. FNLIST_LOGGING_LEVEL.

Examples:
  fnlist config show
  fnlist config schema --format json
  fnlist config flags`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return encode(cmd.OutOrStdout(), configFormat, cfg)
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration schema with current values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigFilePath(cfgFile)
		if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
			return err
		}
		return encode(cmd.OutOrStdout(), configFormat, config.GetConfigSchema(cfg, path))
	},
}

var configFlagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Print the feature flags in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := featureflags.Get(cfg.FeatureFlags)
		for _, name := range flags.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%t\n", name, flags.Enabled(name))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version())
	},
}

func init() {
	for _, cmd := range []*cobra.Command{configShowCmd, configSchemaCmd} {
		cmd.Flags().StringVarP(&configFormat, "format", "f", formatYAML, "Output format (json, yaml)")
		configCmd.AddCommand(cmd)
	}
	configCmd.AddCommand(configFlagsCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
