package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/fnlist/internal/featureflags"
	"github.com/watzon/fnlist/internal/filter"
	"github.com/watzon/fnlist/internal/listing"
	"github.com/watzon/fnlist/internal/metrics"
)

var (
	listParseISC        bool
	listBasePath        string
	listFeatureFlags    []string
	listFormat          string
	listFilter          string
	listMetricsTextfile string
)

var listCmd = &cobra.Command{
	Use:   "list <dir> [dir...]",
	Short: "List the functions in one or more directories",
	Long: `List every function found in the given functions directories.

Each immediate child of a directory is a candidate. When two candidates
resolve to the same function name, the first one in directory order wins.

Examples:
  fnlist list netlify/functions
  fnlist list netlify/functions internal-functions --parse-isc
  fnlist list netlify/functions --format table
  fnlist list netlify/functions --filter 'runtime == "js" && schedule != ""'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

var filesCmd = &cobra.Command{
	Use:   "files <dir> [dir...]",
	Short: "List the source files of every function",
	Long: `List one entry per file each function needs at run time.

JavaScript functions are expanded by following their static imports,
including installed node_modules packages, plus their included_files.
Archives are always reported as a single file.

Examples:
  fnlist files netlify/functions --base-path .
  fnlist files netlify/functions --filter 'src_file.endsWith(".json")'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFiles,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Show the function at a single path",
	Long: `Resolve a single candidate path, a file or a directory, into a function.

Exits with an error when no runtime recognizes the path.

Example:
  fnlist inspect netlify/functions/hello.ts --parse-isc`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, filesCmd, inspectCmd} {
		cmd.Flags().BoolVar(&listParseISC, "parse-isc", false, "Read in-source configuration from JavaScript entry files")
		cmd.Flags().StringArrayVar(&listFeatureFlags, "feature-flag", nil, "Feature flag as name or name=bool (repeatable)")
		cmd.Flags().StringVarP(&listFormat, "format", "f", formatJSON, "Output format (json, yaml, table)")
		cmd.Flags().StringVar(&listMetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file when done")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{listCmd, filesCmd} {
		cmd.Flags().StringVar(&listFilter, "filter", "", "CEL expression selecting functions")
	}
	filesCmd.Flags().StringVar(&listBasePath, "base-path", "", "Base path for included_files and node_modules lookups")
}

// listOptions builds discovery options from the loaded config and flags.
// Flags given on the command line override feature_flags from the config.
func listOptions() (listing.Options, error) {
	overrides, err := featureflags.Parse(listFeatureFlags)
	if err != nil {
		return listing.Options{}, err
	}

	flags := make(featureflags.Flags, len(cfg.FeatureFlags)+len(overrides))
	for name, value := range cfg.FeatureFlags {
		flags[name] = value
	}
	for name, value := range overrides {
		flags[name] = value
	}

	return listing.Options{
		BasePath:     listBasePath,
		Config:       cfg,
		FeatureFlags: flags,
		ParseISC:     listParseISC,
	}, nil
}

// commandContext is canceled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func writeMetrics() {
	if listMetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(listMetricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", listMetricsTextfile).Msg("Failed to write metrics")
	}
}

func runList(cmd *cobra.Command, args []string) error {
	opts, err := listOptions()
	if err != nil {
		return err
	}
	f, err := filter.Compile(listFilter)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	defer writeMetrics()

	functions, err := listing.ListFunctions(ctx, args, opts)
	if err != nil {
		return fmt.Errorf("listing functions: %w", err)
	}

	functions, err = filter.Apply(f, functions, functionFields)
	if err != nil {
		return err
	}

	log.Debug().Int("count", len(functions)).Msg("Functions listed")
	return renderFunctions(cmd.OutOrStdout(), listFormat, functions)
}

func runFiles(cmd *cobra.Command, args []string) error {
	opts, err := listOptions()
	if err != nil {
		return err
	}
	f, err := filter.Compile(listFilter)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	defer writeMetrics()

	files, err := listing.ListFunctionsFiles(ctx, args, opts)
	if err != nil {
		return fmt.Errorf("listing function files: %w", err)
	}

	files, err = filter.Apply(f, files, func(file listing.ListedFunctionFile) filter.Fields {
		fields := functionFields(file.ListedFunction)
		fields.SrcFile = file.SrcFile
		return fields
	})
	if err != nil {
		return err
	}

	return renderFiles(cmd.OutOrStdout(), listFormat, files)
}

func runInspect(cmd *cobra.Command, args []string) error {
	opts, err := listOptions()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	defer writeMetrics()

	fn, err := listing.ListFunction(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", args[0], err)
	}
	if fn == nil {
		return fmt.Errorf("no function found at %s", args[0])
	}

	return renderFunctions(cmd.OutOrStdout(), listFormat, []listing.ListedFunction{*fn})
}

func functionFields(fn listing.ListedFunction) filter.Fields {
	return filter.Fields{
		Name:      fn.Name,
		Runtime:   string(fn.Runtime),
		Extension: fn.Extension,
		Schedule:  fn.Schedule,
		MainFile:  fn.MainFile,
	}
}
