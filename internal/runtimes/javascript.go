package runtimes

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/watzon/fnlist/internal/packagejson"
)

// JavaScriptExtensions are the entry file extensions of the js runtime, in
// lookup order.
var JavaScriptExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

func isJavaScript(path string) bool {
	return slices.Contains(JavaScriptExtensions, filepath.Ext(path))
}

// javaScriptRuntime finds JavaScript and TypeScript functions: a single entry
// file, or a directory holding <dir>.<ext> or index.<ext>.
type javaScriptRuntime struct{}

func (javaScriptRuntime) Name() Type { return TypeJavaScript }

func (javaScriptRuntime) FindFunction(_ context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
	kind, err := statPath(opts.Cache, path)
	if err != nil {
		return nil, err
	}

	var mainFile string
	switch kind {
	case kindFile:
		if !isJavaScript(path) {
			return nil, nil
		}
		mainFile = path
	case kindDir:
		mainFile = findJavaScriptEntry(opts, path)
		if mainFile == "" {
			return nil, nil
		}
	default:
		return nil, nil
	}

	filename := filepath.Base(path)
	name := filename
	if kind == kindFile {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	srcDir := filepath.Dir(mainFile)
	pkg := packagejson.NewResolver(opts.Cache).ResolveIfAvailable(srcDir)

	return &FunctionSource{
		Name:         name,
		MainFile:     mainFile,
		Runtime:      javaScriptRuntime{},
		Extension:    filepath.Ext(mainFile),
		SrcPath:      path,
		SrcDir:       srcDir,
		Filename:     filename,
		ModuleFormat: pkg.ModuleFormatFor(mainFile),
	}, nil
}

func findJavaScriptEntry(opts ProbeOptions, dir string) string {
	for _, base := range []string{filepath.Base(dir), "index"} {
		for _, ext := range JavaScriptExtensions {
			candidate := filepath.Join(dir, base+ext)
			if isFile(opts.Cache, candidate) {
				return candidate
			}
		}
	}
	return ""
}

// SourceFiles traces the static imports of the entry point and adds the
// function's included files.
func (javaScriptRuntime) SourceFiles(ctx context.Context, fn *FunctionSource, opts SourceOptions) ([]string, error) {
	t := newTracer(ctx, fn, opts)
	if err := t.traceFile(fn.MainFile); err != nil {
		return nil, err
	}
	if err := t.addIncludedFiles(fn.Config.IncludedFiles); err != nil {
		return nil, err
	}
	return t.result(), nil
}
