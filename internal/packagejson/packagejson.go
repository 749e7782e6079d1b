// Package packagejson resolves the nearest package.json manifest for a
// directory and exposes the fields runtime probes care about.
package packagejson

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/watzon/fnlist/internal/cache"
)

// FileName is the manifest file looked up while walking upward.
const FileName = "package.json"

// ModuleFormat is the module system a JavaScript file is loaded with.
type ModuleFormat string

const (
	ModuleFormatCommonJS ModuleFormat = "commonjs"
	ModuleFormatESM      ModuleFormat = "esm"
)

// PeerDependencyMeta holds per-peer dependency metadata.
type PeerDependencyMeta struct {
	Optional bool `json:"optional,omitempty"`
}

// PackageJSON is a sanitized, read-only snapshot of a manifest. Values
// returned by a Resolver are shared between callers and must not be mutated.
type PackageJSON struct {
	Name                 string                        `json:"name,omitempty"`
	Version              string                        `json:"version,omitempty"`
	Main                 string                        `json:"main,omitempty"`
	Type                 string                        `json:"type,omitempty"`
	Dependencies         map[string]string             `json:"dependencies,omitempty"`
	PeerDependencies     map[string]string             `json:"peerDependencies,omitempty"`
	PeerDependenciesMeta map[string]PeerDependencyMeta `json:"peerDependenciesMeta,omitempty"`
	OptionalDependencies map[string]string             `json:"optionalDependencies,omitempty"`
	DevDependencies      map[string]string             `json:"devDependencies,omitempty"`
	Files                []string                      `json:"files,omitempty"`
	Gypfile              bool                          `json:"gypfile,omitempty"`
	Binary               bool                          `json:"binary,omitempty"`

	// Path is the manifest this snapshot was read from. Empty when no
	// manifest exists above the queried directory.
	Path string `json:"-"`
}

// ManifestParseError reports a manifest that exists but cannot be read as
// well-formed JSON.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("%s is invalid JSON: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// Dir returns the directory holding the manifest.
func (p *PackageJSON) Dir() string {
	if p.Path == "" {
		return ""
	}
	return filepath.Dir(p.Path)
}

// IsEmpty reports whether no manifest backed this snapshot.
func (p *PackageJSON) IsEmpty() bool {
	return p.Path == ""
}

// IsNative reports whether the package declares a native addon.
func (p *PackageJSON) IsNative() bool {
	return p.Gypfile || p.Binary
}

// RuntimeDependencies returns the sorted names of regular, optional and peer
// dependencies. Dev dependencies are never needed at runtime.
func (p *PackageJSON) RuntimeDependencies() []string {
	seen := make(map[string]bool)
	var names []string

	for _, deps := range []map[string]string{p.Dependencies, p.OptionalDependencies, p.PeerDependencies} {
		for name := range deps {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names
}

// IsOptional reports whether name is an optional or optional-peer dependency.
func (p *PackageJSON) IsOptional(name string) bool {
	if _, ok := p.OptionalDependencies[name]; ok {
		return true
	}
	return p.PeerDependenciesMeta[name].Optional
}

// ModuleFormatFor returns the module format path is loaded with under this
// manifest. Explicit .mjs/.cjs style extensions win over the "type" field.
func (p *PackageJSON) ModuleFormatFor(path string) ModuleFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mjs", ".mts":
		return ModuleFormatESM
	case ".cjs", ".cts":
		return ModuleFormatCommonJS
	}
	if p.Type == "module" {
		return ModuleFormatESM
	}
	return ModuleFormatCommonJS
}

// Parse decodes and sanitizes manifest contents. The document must be a
// well-formed JSON object; individual fields of the wrong shape are dropped.
func Parse(data []byte) (*PackageJSON, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("manifest is not a JSON object")
	}
	return sanitize(raw), nil
}

func sanitize(raw map[string]json.RawMessage) *PackageJSON {
	return &PackageJSON{
		Name:                 stringField(raw["name"]),
		Version:              stringField(raw["version"]),
		Main:                 stringField(raw["main"]),
		Type:                 stringField(raw["type"]),
		Dependencies:         stringMapField(raw["dependencies"]),
		PeerDependencies:     stringMapField(raw["peerDependencies"]),
		PeerDependenciesMeta: peerMetaField(raw["peerDependenciesMeta"]),
		OptionalDependencies: stringMapField(raw["optionalDependencies"]),
		DevDependencies:      stringMapField(raw["devDependencies"]),
		Files:                SanitizeFiles(decodeAny(raw["files"])),
		Gypfile:              boolField(raw["gypfile"]),
		Binary:               boolField(raw["binary"]),
	}
}

// SanitizeFiles keeps the string elements of a list. Anything that is not a
// list yields nil.
func SanitizeFiles(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}

	files := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			files = append(files, s)
		}
	}
	return files
}

func decodeAny(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func stringField(raw json.RawMessage) string {
	s, _ := decodeAny(raw).(string)
	return s
}

func boolField(raw json.RawMessage) bool {
	b, _ := decodeAny(raw).(bool)
	return b
}

func stringMapField(raw json.RawMessage) map[string]string {
	obj, ok := decodeAny(raw).(map[string]any)
	if !ok {
		return nil
	}

	m := make(map[string]string, len(obj))
	for key, value := range obj {
		if s, ok := value.(string); ok {
			m[key] = s
		}
	}
	return m
}

func peerMetaField(raw json.RawMessage) map[string]PeerDependencyMeta {
	obj, ok := decodeAny(raw).(map[string]any)
	if !ok {
		return nil
	}

	m := make(map[string]PeerDependencyMeta, len(obj))
	for name, value := range obj {
		meta, ok := value.(map[string]any)
		if !ok {
			continue
		}
		optional, _ := meta["optional"].(bool)
		m[name] = PeerDependencyMeta{Optional: optional}
	}
	return m
}

// Resolver finds and parses manifests, memoizing directory lookups and
// manifest parses in a runtime cache.
type Resolver struct {
	cache *cache.RuntimeCache

	// ReadFile reads a manifest. Tests replace it to count reads.
	ReadFile func(name string) ([]byte, error)
	// Stat reports whether a manifest candidate exists.
	Stat func(name string) (os.FileInfo, error)
}

// NewResolver creates a resolver backed by c. A nil cache disables memoization.
func NewResolver(c *cache.RuntimeCache) *Resolver {
	return &Resolver{
		cache:    c,
		ReadFile: os.ReadFile,
		Stat:     os.Stat,
	}
}

// Resolve returns the metadata of the nearest manifest at or above dir. A
// missing manifest yields an empty snapshot; a malformed one yields a
// *ManifestParseError.
func (r *Resolver) Resolve(dir string) (*PackageJSON, error) {
	root, err := r.findRoot(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}
	if root == "" {
		return &PackageJSON{}, nil
	}

	return r.Load(filepath.Join(root, FileName))
}

// ResolveIfAvailable is Resolve for callers treating metadata as optional:
// every failure degrades to an empty snapshot.
func (r *Resolver) ResolveIfAvailable(dir string) *PackageJSON {
	pkg, err := r.Resolve(dir)
	if err != nil {
		return &PackageJSON{}
	}
	return pkg
}

// Load reads and parses the manifest at path, once per cache.
func (r *Resolver) Load(path string) (*PackageJSON, error) {
	return cache.Do(r.cache, cache.Key("packagejson", path), func() (*PackageJSON, error) {
		data, err := r.ReadFile(path)
		if err != nil {
			return nil, &ManifestParseError{Path: path, Err: err}
		}

		pkg, err := Parse(data)
		if err != nil {
			return nil, &ManifestParseError{Path: path, Err: err}
		}
		pkg.Path = path
		return pkg, nil
	})
}

// findRoot returns the nearest directory at or above dir holding a manifest,
// or "" when there is none. Each directory is checked once per cache.
func (r *Resolver) findRoot(dir string) (string, error) {
	return cache.Do(r.cache, cache.Key("pkgroot", dir), func() (string, error) {
		info, err := r.Stat(filepath.Join(dir, FileName))
		if err == nil && info.Mode().IsRegular() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		return r.findRoot(parent)
	})
}

// Resolve finds the nearest manifest without memoization.
func Resolve(dir string) (*PackageJSON, error) {
	return NewResolver(nil).Resolve(dir)
}

// ResolveIfAvailable finds the nearest manifest without memoization and never fails.
func ResolveIfAvailable(dir string) *PackageJSON {
	return NewResolver(nil).ResolveIfAvailable(dir)
}
