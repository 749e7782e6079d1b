package runtimes

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/watzon/fnlist/internal/featureflags"
)

// registered lists the runtimes in priority order. The first runtime that
// claims a candidate wins.
var registered = []Runtime{
	goRuntime{},
	javaScriptRuntime{},
	rustRuntime{},
	archiveRuntime{},
}

// Runtimes returns the registered runtimes in priority order.
func Runtimes() []Runtime {
	return append([]Runtime(nil), registered...)
}

// ByName returns the registered runtime of the given type.
func ByName(name Type) (Runtime, bool) {
	for _, rt := range registered {
		if rt.Name() == name {
			return rt, true
		}
	}
	return nil, false
}

// GetFunctionFromPath returns the function at path with its static
// configuration attached, or nil when no runtime claims it.
func GetFunctionFromPath(ctx context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
	fn, err := probe(ctx, path, opts)
	if err != nil || fn == nil {
		return nil, err
	}

	fn.Config = opts.Config.ForFunction(fn.Name)
	return fn, nil
}

// GetFunctionsFromPaths probes every path concurrently and returns the
// functions found, in path order. When two paths yield the same name the
// first one is kept.
func GetFunctionsFromPaths(ctx context.Context, paths []string, opts ProbeOptions) ([]*FunctionSource, error) {
	results := make([]*FunctionSource, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn, err := probe(gctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := make(map[string]string, len(results))
	functions := make([]*FunctionSource, 0, len(results))

	for _, fn := range results {
		if fn == nil {
			continue
		}
		if first, ok := kept[fn.Name]; ok {
			log.Warn().
				Str("name", fn.Name).
				Str("path", fn.SrcPath).
				Str("kept", first).
				Msg("Skipping function with duplicate name")
			continue
		}
		kept[fn.Name] = fn.SrcPath

		fn.Config = opts.Config.ForFunction(fn.Name)
		functions = append(functions, fn)
	}

	return functions, nil
}

// probe asks each runtime in priority order whether it claims path. Probe
// faults exclude the candidate unless strict probing is enabled.
func probe(ctx context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
	for _, rt := range registered {
		fn, err := rt.FindFunction(ctx, path, opts)
		if err != nil {
			probeErr := &ProbeError{Path: path, Runtime: rt.Name(), Err: err}
			if opts.FeatureFlags.Enabled(featureflags.StrictRuntimeProbes) {
				return nil, probeErr
			}
			log.Warn().Err(err).
				Str("path", path).
				Str("runtime", string(rt.Name())).
				Msg("Skipping candidate that could not be probed")
			return nil, nil
		}
		if fn != nil {
			return fn, nil
		}
	}
	return nil, nil
}

// SourceFiles returns the files fn needs at run time. Archives and runtimes
// without expansion yield the candidate path alone.
func SourceFiles(ctx context.Context, fn *FunctionSource, opts SourceOptions) ([]string, error) {
	getter, ok := fn.Runtime.(SourceFilesGetter)
	if fn.Extension == ArchiveExtension || !ok {
		return []string{fn.SrcPath}, nil
	}
	return getter.SourceFiles(ctx, fn, opts)
}
