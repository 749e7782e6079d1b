package runtimes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/watzon/fnlist/internal/cache"
	"github.com/watzon/fnlist/internal/featureflags"
)

var errNoPackageSection = errors.New("missing [package] section")

// cargoManifest is the subset of Cargo.toml the rust runtime reads.
type cargoManifest struct {
	Package *struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// rustRuntime finds compiled Rust executables and, behind a feature flag,
// Cargo crates.
type rustRuntime struct{}

func (rustRuntime) Name() Type { return TypeRust }

func (rustRuntime) FindFunction(_ context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
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
		if !bin.Rust || bin.Go {
			return nil, nil
		}
		return binaryFunction(rustRuntime{}, path), nil

	case kindDir:
		if !opts.FeatureFlags.Enabled(featureflags.BuildRustSource) {
			return nil, nil
		}
		manifestPath := filepath.Join(path, "Cargo.toml")
		mainFile := filepath.Join(path, "src", "main.rs")
		if !isFile(opts.Cache, manifestPath) || !isFile(opts.Cache, mainFile) {
			return nil, nil
		}
		if _, err := loadCargoManifest(opts.Cache, manifestPath); err != nil {
			return nil, err
		}
		return &FunctionSource{
			Name:      filepath.Base(path),
			MainFile:  mainFile,
			Runtime:   rustRuntime{},
			Extension: filepath.Ext(mainFile),
			SrcPath:   path,
			SrcDir:    path,
			Filename:  filepath.Base(path),
		}, nil
	}

	return nil, nil
}

func loadCargoManifest(c *cache.RuntimeCache, path string) (*cargoManifest, error) {
	return cache.Do(c, cache.Key("cargo", path), func() (*cargoManifest, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var manifest cargoManifest
		if err := toml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if manifest.Package == nil {
			return nil, fmt.Errorf("%s: %w", path, errNoPackageSection)
		}
		return &manifest, nil
	})
}

// SourceFiles lists the crate manifest, lockfile, build script and Rust
// sources. Binaries are shipped as they are.
func (rustRuntime) SourceFiles(_ context.Context, fn *FunctionSource, opts SourceOptions) ([]string, error) {
	if fn.SrcDir != fn.SrcPath {
		return []string{fn.SrcPath}, nil
	}

	var files []string
	for _, name := range []string{"Cargo.toml", "Cargo.lock", "build.rs"} {
		path := filepath.Join(fn.SrcDir, name)
		if isFile(opts.Cache, path) {
			files = append(files, path)
		}
	}

	err := filepath.WalkDir(filepath.Join(fn.SrcDir, "src"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && filepath.Ext(path) == ".rs" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing rust sources: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
