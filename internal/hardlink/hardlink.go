package hardlink

import (
	"golang.org/x/sys/unix"
)

// Kind classifies a filesystem entry as reported by lstat.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// FileInfo holds kind, size, inode, device and hardlink count for an entry.
type FileInfo struct {
	Kind     Kind
	Size     int64
	Nlink    uint64
	Inode    uint64
	DeviceID uint64
}

// Info returns the FileInfo for the given path. Symbolic links are not
// followed: the result describes the link itself.
func Info(path string) (FileInfo, error) {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Kind:     kindOf(stat.Mode),
		Size:     stat.Size,
		Nlink:    uint64(stat.Nlink),
		Inode:    stat.Ino,
		DeviceID: uint64(stat.Dev),
	}, nil
}

// Count returns the number of hardlinks for the given path.
func Count(path string) (uint64, error) {
	fi, err := Info(path)
	if err != nil {
		return 0, err
	}
	return fi.Nlink, nil
}

// SameFile reports whether a and b are hard links to the same inode.
func SameFile(a, b string) (bool, error) {
	fa, err := Info(a)
	if err != nil {
		return false, err
	}
	fb, err := Info(b)
	if err != nil {
		return false, err
	}
	return fa.Inode == fb.Inode && fa.DeviceID == fb.DeviceID, nil
}

func kindOf(mode uint32) Kind {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return KindFile
	case unix.S_IFDIR:
		return KindDirectory
	case unix.S_IFLNK:
		return KindSymlink
	default:
		return KindOther
	}
}
