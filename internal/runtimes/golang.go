package runtimes

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/watzon/fnlist/internal/cache"
	"github.com/watzon/fnlist/internal/featureflags"
)

// goRuntime finds compiled Go executables and, behind a feature flag,
// directories of Go source with a main package.
type goRuntime struct{}

func (goRuntime) Name() Type { return TypeGo }

func (goRuntime) FindFunction(_ context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
	kind, err := statPath(opts.Cache, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case kindFile:
		bin, err := detectBinary(opts.Cache, path)
		if err != nil {
			return nil, err
		}
		if !bin.Go {
			return nil, nil
		}
		return binaryFunction(goRuntime{}, path), nil

	case kindDir:
		if !opts.FeatureFlags.Enabled(featureflags.BuildGoSource) {
			return nil, nil
		}
		mainFile, err := findGoMain(opts.Cache, path)
		if err != nil || mainFile == "" {
			return nil, err
		}
		return &FunctionSource{
			Name:      filepath.Base(path),
			MainFile:  mainFile,
			Runtime:   goRuntime{},
			Extension: filepath.Ext(mainFile),
			SrcPath:   path,
			SrcDir:    path,
			Filename:  filepath.Base(path),
		}, nil
	}

	return nil, nil
}

// findGoMain returns the entry of a Go source directory: main.go or
// <dir>.go, provided it declares package main.
func findGoMain(c *cache.RuntimeCache, dir string) (string, error) {
	for _, name := range []string{"main.go", filepath.Base(dir) + ".go"} {
		candidate := filepath.Join(dir, name)
		if !isFile(c, candidate) {
			continue
		}

		isMain, err := cache.Do(c, cache.Key("gopackage", candidate), func() (bool, error) {
			file, err := parser.ParseFile(token.NewFileSet(), candidate, nil, parser.PackageClauseOnly)
			if err != nil {
				return false, err
			}
			return file.Name.Name == "main", nil
		})
		if err != nil {
			return "", err
		}
		if isMain {
			return candidate, nil
		}
	}
	return "", nil
}

// SourceFiles lists the non-test Go files of a source function with its
// module files. Binaries are shipped as they are.
func (goRuntime) SourceFiles(_ context.Context, fn *FunctionSource, _ SourceOptions) ([]string, error) {
	if fn.SrcDir != fn.SrcPath {
		return []string{fn.SrcPath}, nil
	}

	entries, err := os.ReadDir(fn.SrcDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if name == "go.mod" || name == "go.sum" ||
			(strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")) {
			files = append(files, filepath.Join(fn.SrcDir, name))
		}
	}

	sort.Strings(files)
	return files, nil
}

// binaryFunction describes a native executable function.
func binaryFunction(rt Runtime, path string) *FunctionSource {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)

	return &FunctionSource{
		Name:      strings.TrimSuffix(filename, ext),
		MainFile:  path,
		Runtime:   rt,
		Extension: ext,
		SrcPath:   path,
		SrcDir:    filepath.Dir(path),
		Filename:  filename,
	}
}
