// Package fs collects local files for upload.
package fs

import (
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// IgnoreFileName is the per-directory ignore file read by Collect.
const IgnoreFileName = ".svignore"

// Source is one regular file selected for upload.
type Source struct {
	Path    string // absolute
	RelPath string // relative to the collection root; the base name for a single file
	Size    int64
	ModTime time.Time
}

// Collector discovers regular files under a path, honoring ignore patterns
// from configuration and from a .svignore at the collection root.
type Collector struct {
	ignore []string
}

// NewCollector creates a Collector with extra ignore patterns from config.
func NewCollector(ignore []string) *Collector {
	return &Collector{ignore: slices.Clone(ignore)}
}

// Collect resolves rawPath. A regular file yields itself. A directory
// yields its regular files, descending into subdirectories when recursive
// is set. Results are sorted by RelPath.
func (c *Collector) Collect(rawPath string, recursive bool) ([]Source, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if err := checkSupported(absPath, info.Mode()); err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []Source{newSource(absPath, filepath.Base(absPath), info)}, nil
	}

	patterns, err := ParseIgnoreFile(filepath.Join(absPath, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(slices.Concat(defaultIgnorePatterns, c.ignore, patterns))

	var sources []Source
	err = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absPath {
			return nil
		}
		rel, err := filepath.Rel(absPath, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		sources = append(sources, newSource(p, rel, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	slices.SortFunc(sources, func(a, b Source) int {
		if a.RelPath < b.RelPath {
			return -1
		}
		if a.RelPath > b.RelPath {
			return 1
		}
		return 0
	})
	return sources, nil
}

func newSource(path, rel string, info fs.FileInfo) Source {
	return Source{
		Path:    path,
		RelPath: filepath.ToSlash(rel),
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}
}

func checkSupported(path string, mode fs.FileMode) error {
	switch {
	case mode&os.ModeSymlink != 0:
		return fmt.Errorf("symlinks not supported: %s", path)
	case mode&os.ModeDevice != 0:
		return fmt.Errorf("device files not supported: %s", path)
	case mode&os.ModeNamedPipe != 0:
		return fmt.Errorf("named pipes not supported: %s", path)
	case mode&os.ModeSocket != 0:
		return fmt.Errorf("sockets not supported: %s", path)
	}
	return nil
}

// ContentType guesses a MIME type from the file extension, falling back to
// sniffing the first bytes of data.
func ContentType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
