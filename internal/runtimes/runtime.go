// Package runtimes decides which execution runtime, if any, a candidate path
// belongs to.
package runtimes

import (
	"context"
	"fmt"

	"github.com/watzon/fnlist/internal/cache"
	"github.com/watzon/fnlist/internal/config"
	"github.com/watzon/fnlist/internal/featureflags"
	"github.com/watzon/fnlist/internal/packagejson"
)

// Type identifies a runtime in listings.
type Type string

const (
	TypeGo         Type = "go"
	TypeJavaScript Type = "js"
	TypeRust       Type = "rs"
	TypeArchive    Type = "archive"
)

// ArchiveExtension is the extension of pre-built function archives.
const ArchiveExtension = ".zip"

// Runtime probes candidate paths for functions it can run.
type Runtime interface {
	Name() Type
	// FindFunction returns the function at path, or nil when path does not
	// belong to this runtime.
	FindFunction(ctx context.Context, path string, opts ProbeOptions) (*FunctionSource, error)
}

// SourceFilesGetter is implemented by runtimes able to expand a function into
// the files it needs at run time.
type SourceFilesGetter interface {
	SourceFiles(ctx context.Context, fn *FunctionSource, opts SourceOptions) ([]string, error)
}

// FunctionSource is a function found on disk.
type FunctionSource struct {
	// Name is unique within one discovery pass.
	Name string
	// MainFile is the absolute path of the entry point.
	MainFile string
	Runtime  Runtime
	// Extension is the entry file's extension, ".zip" for archives.
	Extension string
	// SrcPath is the candidate path the function was found at.
	SrcPath string
	// SrcDir is the directory holding the entry point.
	SrcDir   string
	Filename string
	// ModuleFormat is only set for JavaScript functions.
	ModuleFormat packagejson.ModuleFormat
	Config       config.FunctionConfig
}

// ProbeOptions are shared by every probe of one discovery pass.
type ProbeOptions struct {
	Cache        *cache.RuntimeCache
	Config       *config.Config
	FeatureFlags featureflags.Flags
}

// SourceOptions configure source-file expansion.
type SourceOptions struct {
	// BasePath anchors included_files globs and bounds node_modules lookups.
	BasePath     string
	Cache        *cache.RuntimeCache
	FeatureFlags featureflags.Flags
}

// ProbeError reports a candidate that could not be probed.
type ProbeError struct {
	Path    string
	Runtime Type
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing %s for %s runtime: %v", e.Path, e.Runtime, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
