package event

import "fmt"

// Type identifies the kind of event.
type Type int

const (
	DirCreated Type = iota + 1
	FileLinked
	FileFailed
)

var typeNames = [...]string{
	DirCreated: "DirCreated",
	FileLinked: "FileLinked",
	FileFailed: "FileFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event reports the outcome of one step of a replication job.
type Event struct {
	Type    Type
	Source  string // absolute source path
	Target  string // absolute link or directory path
	Current int    // 1-based file index, zero for DirCreated
	Total   int    // regular files in the job
	Err     error  // set for FileFailed
}

// Progress formats the "k/T" counter of a file event.
func (e Event) Progress() string {
	return fmt.Sprintf("%d/%d", e.Current, e.Total)
}
