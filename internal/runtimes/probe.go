package runtimes

import (
	"bytes"
	"debug/buildinfo"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/watzon/fnlist/internal/cache"
)

type fileKind int

const (
	kindMissing fileKind = iota
	kindFile
	kindDir
	kindOther
)

// statPath classifies path, following symlinks. A missing path is not an error.
func statPath(c *cache.RuntimeCache, path string) (fileKind, error) {
	return cache.Do(c, cache.Key("stat", path), func() (fileKind, error) {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return kindMissing, nil
		case err != nil:
			return kindMissing, err
		case info.IsDir():
			return kindDir, nil
		case info.Mode().IsRegular():
			return kindFile, nil
		default:
			return kindOther, nil
		}
	})
}

func isFile(c *cache.RuntimeCache, path string) bool {
	kind, err := statPath(c, path)
	return err == nil && kind == kindFile
}

func isDir(c *cache.RuntimeCache, path string) bool {
	kind, err := statPath(c, path)
	return err == nil && kind == kindDir
}

// binaryInfo describes a native executable.
type binaryInfo struct {
	// Format is "elf", "macho" or "pe"; empty for non-executables.
	Format string
	Go     bool
	Rust   bool
}

var magics = []struct {
	format string
	prefix []byte
}{
	{"elf", []byte("\x7fELF")},
	{"macho", []byte{0xfe, 0xed, 0xfa, 0xce}},
	{"macho", []byte{0xfe, 0xed, 0xfa, 0xcf}},
	{"macho", []byte{0xce, 0xfa, 0xed, 0xfe}},
	{"macho", []byte{0xcf, 0xfa, 0xed, 0xfe}},
	{"macho", []byte{0xca, 0xfe, 0xba, 0xbe}},
	{"pe", []byte("MZ")},
}

var rustMarkers = [][]byte{
	[]byte("rust_begin_unwind"),
	[]byte("/rustc/"),
	[]byte("rust_panic"),
}

// readBuildInfo is replaceable in tests.
var readBuildInfo = func(path string) error {
	_, err := buildinfo.ReadFile(path)
	return err
}

// detectBinary inspects the executable at path once per cache.
func detectBinary(c *cache.RuntimeCache, path string) (binaryInfo, error) {
	return cache.Do(c, cache.Key("binary", path), func() (binaryInfo, error) {
		f, err := os.Open(path)
		if err != nil {
			return binaryInfo{}, err
		}
		defer f.Close()

		header := make([]byte, 4)
		n, err := io.ReadFull(f, header)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return binaryInfo{}, err
		}

		info := binaryInfo{Format: executableFormat(header[:n])}
		if info.Format == "" {
			return info, nil
		}

		if readBuildInfo(path) == nil {
			info.Go = true
			return info, nil
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return binaryInfo{}, err
		}
		info.Rust, err = containsAny(f, rustMarkers)
		if err != nil {
			return binaryInfo{}, err
		}
		return info, nil
	})
}

func executableFormat(header []byte) string {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.prefix) {
			return m.format
		}
	}
	return ""
}

// containsAny streams r looking for any of markers.
func containsAny(r io.Reader, markers [][]byte) (bool, error) {
	longest := 0
	for _, m := range markers {
		longest = max(longest, len(m))
	}

	buf := make([]byte, 0, 256*1024+longest)
	chunk := make([]byte, 256*1024)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		for _, m := range markers {
			if bytes.Contains(buf, m) {
				return true, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		// Keep a tail so markers spanning two reads are still found.
		if keep := longest - 1; len(buf) > keep {
			buf = append(buf[:0], buf[len(buf)-keep:]...)
		}
	}
}
