// Package workspace finds SysML source files on disk, normalizes their
// encoding, and watches them for changes so a running bridge can push on
// save.
package workspace

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceFile is a model file found by Scan, already normalized to UTF-8.
type SourceFile struct {
	Path     string
	Content  string
	Encoding EncodingResult
}

// Scan walks root and returns every source file matching the configured
// patterns, sorted by path for stable ordering. Unreadable files are
// skipped rather than failing the whole scan.
func Scan(root string, cfg WatcherConfig) ([]SourceFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path != root && shouldIgnore(path, cfg) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIgnore(path, cfg) || !matchesSource(path, cfg) {
			return nil
		}

		content, detected, err := ReadFileAsUTF8(path)
		if err != nil {
			return nil
		}

		files = append(files, SourceFile{
			Path:     path,
			Content:  content,
			Encoding: detected,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func matchesSource(path string, cfg WatcherConfig) bool {
	for _, pattern := range cfg.SourcePatterns {
		if match, _ := doublestar.Match(pattern, filepath.ToSlash(path)); match {
			return true
		}
	}
	return false
}

func shouldIgnore(path string, cfg WatcherConfig) bool {
	basename := filepath.Base(path)

	if !cfg.WatchHidden && strings.HasPrefix(basename, ".") {
		return true
	}

	for _, pattern := range cfg.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, filepath.ToSlash(path)); match {
			return true
		}
	}

	return false
}
