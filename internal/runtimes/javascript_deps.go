package runtimes

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/watzon/fnlist/internal/cache"
	"github.com/watzon/fnlist/internal/fsutil"
	"github.com/watzon/fnlist/internal/jsscan"
	"github.com/watzon/fnlist/internal/packagejson"
)

var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// resolveExtensions are tried, in order, for extensionless relative imports.
var resolveExtensions = append(append([]string(nil), JavaScriptExtensions...), ".json")

// tracer collects the files a JavaScript function needs at run time.
type tracer struct {
	ctx      context.Context
	cache    *cache.RuntimeCache
	packages *packagejson.Resolver

	fn       *FunctionSource
	basePath string
	external map[string]bool

	files    map[string]bool
	packaged map[string]bool
}

func newTracer(ctx context.Context, fn *FunctionSource, opts SourceOptions) *tracer {
	external := make(map[string]bool, len(fn.Config.ExternalNodeModules))
	for _, name := range fn.Config.ExternalNodeModules {
		external[name] = true
	}

	basePath := opts.BasePath
	if basePath != "" {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}

	return &tracer{
		ctx:      ctx,
		cache:    opts.Cache,
		packages: packagejson.NewResolver(opts.Cache),
		fn:       fn,
		basePath: basePath,
		external: external,
		files:    make(map[string]bool),
		packaged: make(map[string]bool),
	}
}

func (t *tracer) result() []string {
	files := make([]string, 0, len(t.files))
	for path := range t.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// traceFile adds path and, for JavaScript sources, everything it imports.
func (t *tracer) traceFile(path string) error {
	if t.files[path] {
		return nil
	}
	if err := t.ctx.Err(); err != nil {
		return err
	}
	t.files[path] = true

	if !isJavaScript(path) {
		return nil
	}

	specifiers, err := cache.Do(t.cache, cache.Key("imports", path), func() ([]string, error) {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return jsscan.Imports(src)
	})
	if err != nil {
		return fmt.Errorf("tracing imports of %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, spec := range specifiers {
		switch {
		case isRelativeSpecifier(spec):
			target := t.resolveLocal(dir, spec)
			if target == "" {
				log.Debug().Str("function", t.fn.Name).Str("from", path).Str("import", spec).Msg("Unresolved local import")
				continue
			}
			if err := t.traceFile(target); err != nil {
				return err
			}
		case isBuiltin(spec):
			continue
		default:
			if err := t.addPackage(dir, packageName(spec)); err != nil {
				return err
			}
		}
	}
	return nil
}

func isRelativeSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || filepath.IsAbs(spec)
}

func isBuiltin(spec string) bool {
	if strings.HasPrefix(spec, "node:") {
		return true
	}
	name, _, _ := strings.Cut(spec, "/")
	return nodeBuiltins[name]
}

// packageName strips the subpath from a bare specifier, keeping scopes.
func packageName(spec string) string {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// resolveLocal resolves a relative import the way Node does for files:
// exact match, then added extensions, then an index file.
func (t *tracer) resolveLocal(dir, spec string) string {
	base := spec
	if !filepath.IsAbs(spec) {
		base = filepath.Join(dir, filepath.FromSlash(spec))
	}

	if isFile(t.cache, base) {
		return base
	}
	for _, ext := range resolveExtensions {
		if candidate := base + ext; isFile(t.cache, candidate) {
			return candidate
		}
	}
	for _, ext := range resolveExtensions {
		if candidate := filepath.Join(base, "index"+ext); isFile(t.cache, candidate) {
			return candidate
		}
	}
	return ""
}

// findPackage returns the nearest node_modules/<name> directory at or above
// dir, never looking above the base path.
func (t *tracer) findPackage(dir, name string) string {
	for {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if isDir(t.cache, candidate) {
			return candidate
		}

		if t.basePath != "" && dir == t.basePath {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// addPackage adds an installed package and its runtime dependencies.
func (t *tracer) addPackage(fromDir, name string) error {
	if t.external[name] {
		return nil
	}

	pkgDir := t.findPackage(fromDir, name)
	if pkgDir == "" {
		log.Debug().Str("function", t.fn.Name).Str("package", name).Str("from", fromDir).Msg("Package not installed")
		return nil
	}
	if t.packaged[pkgDir] {
		return nil
	}
	t.packaged[pkgDir] = true

	manifestPath := filepath.Join(pkgDir, packagejson.FileName)
	pkg := &packagejson.PackageJSON{}
	if isFile(t.cache, manifestPath) {
		loaded, err := t.packages.Load(manifestPath)
		if err != nil {
			log.Warn().Err(err).Str("function", t.fn.Name).Str("package", name).Msg("Ignoring unreadable package manifest")
		} else {
			pkg = loaded
		}
	}

	if pkg.IsNative() {
		log.Warn().Str("function", t.fn.Name).Str("package", name).Str("path", pkgDir).Msg("Function depends on a native module")
	}

	files, err := packageFiles(t.cache, pkgDir, pkg)
	if err != nil {
		return fmt.Errorf("listing files of package %s: %w", name, err)
	}
	for _, file := range files {
		t.files[file] = true
	}

	for _, dep := range pkg.RuntimeDependencies() {
		if err := t.addPackage(pkgDir, dep); err != nil {
			return err
		}
	}
	return nil
}

// packageFiles returns the files an installed package ships: its manifest
// and main file plus its "files" allowlist, or every file outside nested
// node_modules when there is no allowlist.
func packageFiles(c *cache.RuntimeCache, pkgDir string, pkg *packagejson.PackageJSON) ([]string, error) {
	return cache.Do(c, cache.Key("pkgfiles", pkgDir), func() ([]string, error) {
		if len(pkg.Files) == 0 {
			return walkPackage(pkgDir)
		}

		patterns := make([]string, 0, 2*len(pkg.Files)+2)
		for _, entry := range pkg.Files {
			entry = strings.TrimSuffix(entry, "/")
			patterns = append(patterns, entry, entry+"/**")
		}
		patterns = append(patterns, packagejson.FileName)
		if pkg.Main != "" {
			patterns = append(patterns, pkg.Main)
		}

		return fsutil.Glob(pkgDir, patterns)
	})
}

func walkPackage(pkgDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(pkgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "node_modules" && path != pkgDir {
			return filepath.SkipDir
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// addIncludedFiles adds files matching the function's included_files globs,
// relative to the base path or, without one, the function's directory.
func (t *tracer) addIncludedFiles(patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}

	root := t.basePath
	if root == "" {
		root = t.fn.SrcDir
	}

	files, err := fsutil.Glob(root, patterns)
	if err != nil {
		return fmt.Errorf("matching included files: %w", err)
	}
	for _, file := range files {
		t.files[file] = true
	}
	return nil
}
