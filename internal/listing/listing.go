// Package listing discovers functions in source directories and projects
// them into the listing consumed by deploy pipelines.
package listing

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/watzon/fnlist/internal/cache"
	"github.com/watzon/fnlist/internal/config"
	"github.com/watzon/fnlist/internal/featureflags"
	"github.com/watzon/fnlist/internal/fsutil"
	"github.com/watzon/fnlist/internal/isc"
	"github.com/watzon/fnlist/internal/metrics"
	"github.com/watzon/fnlist/internal/runtimes"
)

// Options configure a discovery call.
type Options struct {
	// BasePath anchors included_files globs. Only used when listing files.
	BasePath     string
	Config       *config.Config
	FeatureFlags featureflags.Flags
	// ParseISC enables in-source configuration extraction for JavaScript
	// functions.
	ParseISC bool
}

// ListedFunction is one entry of a function listing.
type ListedFunction struct {
	Name      string        `json:"name" yaml:"name"`
	MainFile  string        `json:"mainFile" yaml:"mainFile"`
	Runtime   runtimes.Type `json:"runtime" yaml:"runtime"`
	Extension string        `json:"extension" yaml:"extension"`
	Schedule  string        `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// ListedFunctionFile is one source file of a listed function.
type ListedFunctionFile struct {
	ListedFunction `yaml:",inline"`
	SrcFile        string `json:"srcFile" yaml:"srcFile"`
}

// augmented is a function with the in-source configuration found for it.
type augmented struct {
	*runtimes.FunctionSource
	inSource *isc.Values
}

// ListFunctions returns the functions found in dirs.
func ListFunctions(ctx context.Context, dirs []string, opts Options) ([]ListedFunction, error) {
	defer startRun("list_functions")()

	functions, err := discover(ctx, dirs, opts, cache.New())
	if err != nil {
		return nil, err
	}

	listed := make([]ListedFunction, len(functions))
	for i, fn := range functions {
		listed[i] = fn.listed()
		metrics.RecordFunctionListed(string(listed[i].Runtime))
	}
	return listed, nil
}

// ListFunction returns the function at path, or nil when no runtime claims it.
func ListFunction(ctx context.Context, path string, opts Options) (*ListedFunction, error) {
	defer startRun("list_function")()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fn, err := runtimes.GetFunctionFromPath(ctx, abs, probeOptions(opts, cache.New()))
	if err != nil || fn == nil {
		return nil, err
	}

	functions, err := augment(ctx, []*runtimes.FunctionSource{fn}, opts)
	if err != nil {
		return nil, err
	}

	listed := functions[0].listed()
	metrics.RecordFunctionListed(string(listed.Runtime))
	return &listed, nil
}

// ListFunctionsFiles returns one entry per source file of every function
// found in dirs.
func ListFunctionsFiles(ctx context.Context, dirs []string, opts Options) ([]ListedFunctionFile, error) {
	defer startRun("list_functions_files")()

	c := cache.New()
	functions, err := discover(ctx, dirs, opts, c)
	if err != nil {
		return nil, err
	}

	srcOpts := runtimes.SourceOptions{
		BasePath:     opts.BasePath,
		Cache:        c,
		FeatureFlags: featureflags.Get(opts.FeatureFlags),
	}

	perFunction := make([][]ListedFunctionFile, len(functions))
	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range functions {
		i, fn := i, fn
		g.Go(func() error {
			files := sourceFiles(gctx, fn.FunctionSource, srcOpts)
			if err := gctx.Err(); err != nil {
				return err
			}

			listed := fn.listed()
			entries := make([]ListedFunctionFile, len(files))
			for j, file := range files {
				entry := listed
				entry.Extension = filepath.Ext(file)
				entries[j] = ListedFunctionFile{ListedFunction: entry, SrcFile: file}
			}
			perFunction[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var listed []ListedFunctionFile
	for i, entries := range perFunction {
		metrics.RecordFunctionListed(string(functions[i].Runtime.Name()))
		listed = append(listed, entries...)
	}
	return listed, nil
}

// discover runs the shared part of the directory based operations: resolve
// and list directories, probe candidates, then augment with in-source
// configuration.
func discover(ctx context.Context, dirs []string, opts Options, c *cache.RuntimeCache) ([]augmented, error) {
	srcDirs, err := fsutil.ResolveFunctionsDirectories(dirs)
	if err != nil {
		return nil, err
	}

	paths, err := fsutil.ListFunctionsDirectories(ctx, srcDirs)
	if err != nil {
		return nil, err
	}
	log.Debug().Strs("dirs", srcDirs).Int("candidates", len(paths)).Msg("Listed candidates")

	functions, err := runtimes.GetFunctionsFromPaths(ctx, paths, probeOptions(opts, c))
	if err != nil {
		return nil, err
	}

	return augment(ctx, functions, opts)
}

// probeOptions builds the probe options of one call. The cache lives exactly
// as long as the call.
func probeOptions(opts Options, c *cache.RuntimeCache) runtimes.ProbeOptions {
	return runtimes.ProbeOptions{
		Cache:        c,
		Config:       opts.Config,
		FeatureFlags: featureflags.Get(opts.FeatureFlags),
	}
}

// augment attaches in-source configuration to JavaScript functions when
// requested. Extraction failures leave the function without it.
func augment(ctx context.Context, functions []*runtimes.FunctionSource, opts Options) ([]augmented, error) {
	result := make([]augmented, len(functions))
	for i, fn := range functions {
		result[i] = augmented{FunctionSource: fn}
	}
	if !opts.ParseISC {
		return result, nil
	}

	var helpers []string
	if opts.Config != nil {
		helpers = opts.Config.ISC.HelperModules
	}
	extractor := isc.NewExtractor(helpers)

	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range functions {
		i, fn := i, fn
		if fn.Runtime.Name() != runtimes.TypeJavaScript {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values, err := extractor.Extract(gctx, fn.MainFile, fn.Name)
			if err != nil {
				metrics.RecordISCFailure()
				log.Warn().Err(err).Str("function", fn.Name).Msg("Ignoring in-source configuration")
				return nil
			}
			result[i].inSource = &values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// sourceFiles expands fn, falling back to its candidate path when expansion
// fails.
func sourceFiles(ctx context.Context, fn *runtimes.FunctionSource, opts runtimes.SourceOptions) []string {
	files, err := runtimes.SourceFiles(ctx, fn, opts)
	if err != nil {
		log.Warn().Err(err).Str("function", fn.Name).Msg("Listing source files failed, using function path")
		return []string{fn.SrcPath}
	}
	return files
}

func (a augmented) listed() ListedFunction {
	return ListedFunction{
		Name:      a.Name,
		MainFile:  a.MainFile,
		Runtime:   a.Runtime.Name(),
		Extension: a.Extension,
		Schedule:  a.schedule(),
	}
}

// schedule picks the first non-empty schedule by precedence: in-source
// configuration, then static configuration.
func (a augmented) schedule() string {
	var candidates []string
	if a.inSource != nil {
		candidates = append(candidates, a.inSource.Schedule)
	}
	candidates = append(candidates, a.Config.Schedule)

	for _, s := range candidates {
		if s != "" {
			return s
		}
	}
	return ""
}

// startRun logs the start of a discovery run under a fresh run ID and
// returns a function recording the run's duration.
func startRun(operation string) func() {
	runID := uuid.NewString()
	log.Debug().Str("run_id", runID).Str("operation", operation).Msg("Discovery started")

	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		metrics.RecordDiscovery(operation, elapsed)
		log.Debug().
			Str("run_id", runID).
			Str("operation", operation).
			Dur("elapsed", elapsed).
			Msg("Discovery finished")
	}
}
