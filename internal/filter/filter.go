package filter

import (
	"path/filepath"
	"strings"
)

// Temporary file extensions left behind by download clients.
var tempExtensions = map[string]bool{
	".part":     true,
	".tmp":      true,
	".download": true,
	".!qb":      true,
}

// System directories created by NAS and desktop operating systems.
var systemDirs = map[string]bool{
	"@eaDir":                    true,
	"#recycle":                  true,
	"$RECYCLE.BIN":              true,
	"System Volume Information": true,
	"lost+found":                true,
}

// IsTempFile returns true if the file has a temporary extension.
func IsTempFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return tempExtensions[ext]
}

// IsSystemDir returns true if the directory is housekeeping, not content.
func IsSystemDir(name string) bool {
	base := filepath.Base(name)
	if systemDirs[base] {
		return true
	}
	// .Trash-* directories
	return strings.HasPrefix(base, ".Trash-")
}

// Hidden reports whether an entry should be left out of listings when
// system entries are hidden.
func Hidden(name string, isDir bool) bool {
	if isDir {
		return IsSystemDir(name)
	}
	return IsTempFile(name)
}
