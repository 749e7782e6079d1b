// Package fsutil lists candidate function paths and matches file globs.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// ResolveFunctionsDirectories turns input directories into absolute, cleaned
// paths, dropping duplicates while keeping the first occurrence.
func ResolveFunctionsDirectories(input []string) ([]string, error) {
	dirs := make([]string, 0, len(input))
	seen := make(map[string]bool, len(input))

	for _, dir := range input {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving functions directory %s: %w", dir, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}

	return dirs, nil
}

// ListFunctionsDirectories returns the immediate children of every directory,
// in directory order and then name order. Directories that do not exist are
// skipped. Hidden entries and node_modules are never candidates.
func ListFunctionsDirectories(ctx context.Context, dirs []string) ([]string, error) {
	results := make([][]string, len(dirs))

	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths, err := listDirectory(dir)
			if err != nil {
				return err
			}
			results[i] = paths
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var paths []string
	seen := make(map[string]bool)
	for _, dirPaths := range results {
		for _, path := range dirPaths {
			if seen[path] {
				continue
			}
			seen[path] = true
			paths = append(paths, path)
		}
	}

	return paths, nil
}

func listDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading functions directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	return paths, nil
}
