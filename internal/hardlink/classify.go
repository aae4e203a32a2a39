package hardlink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNotDirectory is returned when a directory was required.
var ErrNotDirectory = errors.New("not a directory")

// HasUnlinkedDescendant reports whether any regular file below dir has a
// hardlink count of exactly one. The search is depth-first and stops at the
// first match. Entries whose metadata cannot be read are logged and treated
// as non-matching.
func HasUnlinkedDescendant(log *slog.Logger, dir string) (bool, error) {
	fi, err := Info(dir)
	if err != nil {
		return false, err
	}
	if fi.Kind != KindDirectory {
		return false, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return searchUnlinked(log, dir), nil
}

// IsUnlinkedFile reports whether path is a regular file with a single link.
func IsUnlinkedFile(path string) (bool, error) {
	fi, err := Info(path)
	if err != nil {
		return false, err
	}
	return fi.Kind == KindFile && fi.Nlink == 1, nil
}

func searchUnlinked(log *slog.Logger, dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("Cannot read directory", "path", dir, "error", err)
		return false
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// ReadDir reports the lstat type, so symlinks never look like dirs here.
		if entry.IsDir() {
			if searchUnlinked(log, path) {
				return true
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		fi, err := Info(path)
		if err != nil {
			log.Warn("Cannot stat entry", "path", path, "error", err)
			continue
		}
		if fi.Kind == KindFile && fi.Nlink == 1 {
			return true
		}
	}
	return false
}
