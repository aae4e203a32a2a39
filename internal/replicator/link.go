package replicator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/voclinx/linkarr/internal/hardlink"
	"github.com/voclinx/linkarr/internal/metrics"
)

// LinkFile makes target a hard link to src. The parent chain of target is
// created as needed and any existing entry at target is replaced. If target
// already is a link to src nothing is changed.
func LinkFile(src, target string) error {
	err := linkFile(src, target)
	if err != nil {
		metrics.LinkFailures.Inc()
		return err
	}
	metrics.LinksCreated.Inc()
	return nil
}

func linkFile(src, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	// Removing target first would destroy src when both name the same inode.
	if same, err := hardlink.SameFile(src, target); err == nil && same {
		return nil
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing target: %w", err)
	}

	if err := os.Link(src, target); err != nil {
		return err
	}
	return nil
}
