package runtimes

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/watzon/fnlist/internal/cache"
)

// archiveRuntime finds pre-built zip archives. Archives are never expanded
// into source files.
type archiveRuntime struct{}

func (archiveRuntime) Name() Type { return TypeArchive }

func (archiveRuntime) FindFunction(_ context.Context, path string, opts ProbeOptions) (*FunctionSource, error) {
	// Case-sensitive, like JavaScript extensions.
	if filepath.Ext(path) != ArchiveExtension {
		return nil, nil
	}
	if !isFile(opts.Cache, path) {
		return nil, nil
	}

	if _, err := zipEntries(opts.Cache, path); err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	return &FunctionSource{
		Name:      strings.TrimSuffix(filename, filepath.Ext(filename)),
		MainFile:  path,
		Runtime:   archiveRuntime{},
		Extension: ArchiveExtension,
		SrcPath:   path,
		SrcDir:    filepath.Dir(path),
		Filename:  filename,
	}, nil
}

// zipEntries opens the archive at path and returns its entry count.
func zipEntries(c *cache.RuntimeCache, path string) (int, error) {
	return cache.Do(c, cache.Key("zip", path), func() (int, error) {
		r, err := zip.OpenReader(path)
		if err != nil {
			return 0, err
		}
		defer r.Close()

		return len(r.File), nil
	})
}
