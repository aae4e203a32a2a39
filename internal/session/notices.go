package session

import (
	"fmt"

	"github.com/voclinx/linkarr/internal/event"
)

// CompletedNotice is the last notice of a session that processed every source.
const CompletedNotice = "All links completed"

const faultNotice = "Error: internal error, linking aborted"

func fileNotice(index, count int, src string) string {
	return fmt.Sprintf("Processing (%d/%d) linking %s...", index, count, src)
}

func treeNotice(index, count int, ev event.Event) string {
	return fmt.Sprintf("Processing (%d/%d) file (%s) linking %s...", index, count, ev.Progress(), ev.Source)
}

func treeErrorNotice(index, count int, ev event.Event) string {
	return fmt.Sprintf("Error (%d/%d) file (%s) %s: %v", index, count, ev.Progress(), ev.Source, ev.Err)
}

func sourceErrorNotice(index, count int, src string, err error) string {
	return fmt.Sprintf("Error (%d/%d) %s: %v", index, count, src, err)
}

func destinationNotice(dst string) string {
	return fmt.Sprintf("Error: %s is not an existing directory", dst)
}
