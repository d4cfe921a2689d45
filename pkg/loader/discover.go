package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirilvk/exl-loader/pkg/exl"
)

// DefaultExtension is the suffix of EXL documents.
const DefaultExtension = ".exl"

// DiscoverFiles lists regular files in dir whose name ends in ext, following
// symlinks. The scan is not recursive and the result is sorted by name.
func DiscoverFiles(dir, ext string) ([]string, error) {
	if dir == "" {
		return nil, exl.ErrConfiguration("idir", "Input directory is required")
	}
	if ext == "" {
		ext = DefaultExtension
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, exl.ErrConfiguration("idir", "Unable to read input directory").
			WithContext("path", dir).
			WithCause(err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !matchesExtension(entry.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isRegularFile(entry, path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func matchesExtension(name, ext string) bool {
	return strings.HasSuffix(name, ext)
}

// isRegularFile reports whether entry is a regular file or a symlink that
// resolves to one.
func isRegularFile(entry fs.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
