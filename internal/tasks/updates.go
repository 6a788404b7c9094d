package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase (0 while unknown)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SyncTracks Phase = iota
	SyncAlbums
	SyncPlaylists
	SyncPlaylistItems
	SyncDone
)

func (p Phase) String() string {
	switch p {
	case SyncTracks:
		return "sync_tracks"
	case SyncAlbums:
		return "sync_albums"
	case SyncPlaylists:
		return "sync_playlists"
	case SyncPlaylistItems:
		return "sync_playlist_items"
	case SyncDone:
		return "sync_done"
	default:
		return ""
	}
}

// pageCount is the number of pages of size needed for total items, at least one.
func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func startSweepUpdate(phase Phase, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   0,
		Message: fmt.Sprintf("Fetching %s from Spotify...", label),
	}
}

func pageUpdate(phase Phase, label string, page, total, size int) ProgressUpdate {
	pages := pageCount(total, size)
	return ProgressUpdate{
		Phase:   phase,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("[%d/%d] %s (%d total)", page, pages, label, total),
	}
}

func playlistUpdate(step, total int, name string, songs int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylistItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d songs)", step, total, name, songs),
	}
}

func sweepFailedUpdate(phase Phase, label string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Message: fmt.Sprintf("✗ %s: %v", label, err),
	}
}

func doneUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synchronized %d songs and %d playlists", result.Songs(), result.Playlists.Playlists),
		Data:    result,
	}
}
