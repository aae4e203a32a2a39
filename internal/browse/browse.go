// Package browse lists directories for the web client.
package browse

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/voclinx/linkarr/internal/filter"
	"github.com/voclinx/linkarr/internal/hardlink"
	"github.com/voclinx/linkarr/internal/models"
)

var (
	ErrNotExist     = errors.New("does not exist")
	ErrNotDirectory = errors.New("is not a directory")
)

// Browser produces directory listings. Nothing is cached: every call reads
// the filesystem again.
type Browser struct {
	log        *slog.Logger
	hideSystem bool
}

// New creates a Browser. When hideSystem is set, NAS housekeeping folders
// and partial downloads are left out of listings.
func New(log *slog.Logger, hideSystem bool) *Browser {
	return &Browser{
		log:        log.With("component", "browse"),
		hideSystem: hideSystem,
	}
}

// List returns every entry of dir plus a ".." entry for its parent.
func (b *Browser) List(dir string) ([]models.DirEntry, error) {
	abs, err := CheckDir(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	results := make([]models.DirEntry, 0, len(entries)+1)
	for _, entry := range entries {
		if de, ok := b.entryFor(filepath.Join(abs, entry.Name())); ok {
			results = append(results, de)
		}
	}
	return finish(abs, results), nil
}

// Filter returns the entries of dir that still hold data linked only once:
// regular files with a single hardlink and directories containing at least
// one such file. Symlinks are never included.
func (b *Browser) Filter(dir string) ([]models.DirEntry, error) {
	abs, err := CheckDir(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	results := make([]models.DirEntry, 0)
	for _, entry := range entries {
		path := filepath.Join(abs, entry.Name())

		// ReadDir reports the entry's own type, so symlinks fall through.
		var (
			keep bool
			err  error
		)
		switch {
		case entry.Type().IsRegular():
			keep, err = hardlink.IsUnlinkedFile(path)
		case entry.IsDir():
			keep, err = hardlink.HasUnlinkedDescendant(b.log, path)
		}
		if err != nil {
			b.log.Warn("Cannot classify entry", "path", path, "error", err)
			continue
		}
		if !keep {
			continue
		}

		if de, ok := b.entryFor(path); ok {
			results = append(results, de)
		}
	}
	return finish(abs, results), nil
}

// entryFor describes path, following symlinks. Unreadable or hidden
// entries report ok=false.
func (b *Browser) entryFor(path string) (models.DirEntry, bool) {
	info, err := os.Stat(path)
	if err != nil {
		b.log.Warn("Cannot stat entry", "path", path, "error", err)
		return models.DirEntry{}, false
	}

	name := filepath.Base(path)
	if b.hideSystem && filter.Hidden(name, info.IsDir()) {
		return models.DirEntry{}, false
	}

	if info.IsDir() {
		return models.DirEntry{Name: name, Type: models.TypeDirectory, Path: path, Size: "--"}, true
	}
	return models.DirEntry{Name: name, Type: models.TypeFile, Path: path, Size: FormatSize(info.Size())}, true
}

// FormatSize renders a byte count with binary units, e.g. "1.5 KiB".
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(size))
}

// CheckDir returns the absolute form of dir, failing with ErrNotExist or
// ErrNotDirectory when it is not an existing directory.
func CheckDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s %w", abs, ErrNotExist)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s %w", abs, ErrNotDirectory)
	}
	return abs, nil
}

// finish appends the parent entry and sorts by type, then name.
func finish(abs string, results []models.DirEntry) []models.DirEntry {
	if parent := filepath.Dir(abs); parent != abs {
		results = append(results, models.DirEntry{
			Name: "..",
			Type: models.TypeDirectory,
			Path: parent,
			Size: "--",
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	sort.SliceStable(results, func(i, j int) bool { return results[i].Type < results[j].Type })
	return results
}
