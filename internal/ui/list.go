package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotsync/internal/tasks"
)

var (
	_ list.Item = sweepItem{}
)

// sweepItem wraps [tasks.SweepResult] to implement [list.Item].
type sweepItem struct {
	sweep tasks.SweepResult
}

func (i sweepItem) FilterValue() string { return i.sweep.Name }

func (i sweepItem) Title() string {
	switch {
	case i.sweep.Aborted():
		return "✗ " + i.sweep.Name
	case i.sweep.Truncated:
		return "⚠ " + i.sweep.Name
	default:
		return "✓ " + i.sweep.Name
	}
}

func (i sweepItem) Description() string {
	parts := []string{fmt.Sprintf("%d pages", i.sweep.Pages), fmt.Sprintf("%d songs", i.sweep.Songs)}
	if i.sweep.Playlists > 0 {
		parts = append(parts, fmt.Sprintf("%d playlists", i.sweep.Playlists))
	}
	if i.sweep.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", i.sweep.Skipped))
	}
	if i.sweep.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", i.sweep.Failed))
	}
	if i.sweep.Err != nil {
		parts = append(parts, i.sweep.Err.Error())
	}
	return strings.Join(parts, " • ")
}

func sweepItems(result *tasks.SyncResult) []list.Item {
	return []list.Item{
		sweepItem{result.Tracks},
		sweepItem{result.Albums},
		sweepItem{result.Playlists},
	}
}
