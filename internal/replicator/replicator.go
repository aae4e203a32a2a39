// Package replicator mirrors a directory tree under a destination directory
// using hard links for every regular file.
package replicator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/voclinx/linkarr/internal/event"
)

// ErrInvalidArgument is returned when a job precondition does not hold.
var ErrInvalidArgument = errors.New("invalid argument")

// Replicator creates replication jobs.
type Replicator struct {
	log *slog.Logger
}

// New creates a Replicator that logs through log.
func New(log *slog.Logger) *Replicator {
	return &Replicator{log: log.With("component", "replicator")}
}

// Job is a planned replication of one source directory. The plan is taken
// once when the job is created; Total does not change afterwards.
type Job struct {
	Source      string // canonical source directory
	Destination string // canonical destination directory
	Root        string // Destination/<base(Source)>
	Total       int    // regular files to link

	entries []entry
	log     *slog.Logger
}

type entry struct {
	path string
	rel  string
	dir  bool
}

// Replicate validates source and destination and plans a job that links
// every regular file of source into destination/<base(source)>. No
// filesystem change happens until the job's events are consumed.
func (r *Replicator) Replicate(source, destination string) (*Job, error) {
	src, err := resolveDir(source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := resolveDir(destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	root := filepath.Join(dst, filepath.Base(src))
	if root == src {
		return nil, fmt.Errorf("%w: %s would be linked onto itself", ErrInvalidArgument, src)
	}

	job := &Job{
		Source:      src,
		Destination: dst,
		Root:        root,
		log:         r.log.With("source", src, "destination", dst),
	}
	job.plan()
	return job, nil
}

// plan walks the source tree once, in lexical order, recording directories
// and regular files. Unreadable entries are logged and left out.
func (j *Job) plan() {
	_ = filepath.WalkDir(j.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			j.log.Warn("Error accessing path", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(j.Source, path)
		if err != nil {
			j.log.Warn("Cannot compute relative path", "path", path, "error", err)
			return nil
		}

		switch {
		case d.IsDir():
			j.entries = append(j.entries, entry{path: path, rel: rel, dir: true})
		case d.Type().IsRegular():
			j.entries = append(j.entries, entry{path: path, rel: rel})
			j.Total++
		default:
			j.log.Debug("Skipping non-regular entry", "path", path, "type", d.Type().String())
		}
		return nil
	})
}

// Events runs the job lazily. Each regular file is linked just before its
// event is yielded. No further directory or link is made once the consumer
// stops iterating or ctx is done; ctx is checked immediately before each
// one. Every file reached yields exactly one FileLinked or FileFailed event.
// Iterating again replays the whole job.
func (j *Job) Events(ctx context.Context) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		index := 0
		for _, e := range j.entries {
			if err := ctx.Err(); err != nil {
				j.log.Info("Replication stopped", "reason", err, "files_done", index)
				return
			}
			target := filepath.Join(j.Root, e.rel)

			if e.dir {
				if err := os.MkdirAll(target, 0o755); err != nil {
					j.log.Warn("Failed to create directory", "path", target, "error", err)
					continue
				}
				if !yield(event.Event{Type: event.DirCreated, Source: e.path, Target: target, Total: j.Total}) {
					return
				}
				continue
			}

			index++
			ev := event.Event{
				Type:    event.FileLinked,
				Source:  e.path,
				Target:  target,
				Current: index,
				Total:   j.Total,
			}
			if err := LinkFile(e.path, target); err != nil {
				j.log.Warn("Failed to link file", "path", e.path, "target", target, "error", err)
				ev.Type = event.FileFailed
				ev.Err = err
			} else {
				j.log.Debug("Hardlink created", "path", e.path, "target", target)
			}

			if !yield(ev) {
				return
			}
		}
	}
}

// resolveDir returns the canonical absolute form of path, which must be an
// existing directory.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArgument, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrInvalidArgument, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArgument, path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArgument, path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, path)
	}
	return resolved, nil
}
