package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spotsync/internal/models"
)

// LibraryAdapter implements tasks.Library over the song and playlist repositories.
//
// Duplicate external ids update the existing row in place.
type LibraryAdapter struct {
	songs     *SongRepository
	playlists *PlaylistRepository
}

// NewLibraryAdapter creates a LibraryAdapter with the given repositories
func NewLibraryAdapter(songs *SongRepository, playlists *PlaylistRepository) *LibraryAdapter {
	return &LibraryAdapter{songs: songs, playlists: playlists}
}

// NewLibrary wires the repositories over db.
func NewLibrary(db *sql.DB) *LibraryAdapter {
	return NewLibraryAdapter(NewSongRepository(db), NewPlaylistRepository(db))
}

// AddSong upserts song and returns its local ID.
func (a *LibraryAdapter) AddSong(ctx context.Context, song models.Song) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored, err := a.songs.Upsert(song)
	if err != nil {
		return "", fmt.Errorf("failed to store song %s: %w", song.ExternalID, err)
	}
	return stored.ID(), nil
}

// AddPlaylist upserts playlist and replaces its membership with songIDs.
func (a *LibraryAdapter) AddPlaylist(ctx context.Context, playlist models.Playlist, songIDs []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored, err := a.playlists.Upsert(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to store playlist %s: %w", playlist.Name, err)
	}

	if err := a.playlists.SetSongs(stored.ID(), songIDs); err != nil {
		return "", err
	}
	return stored.ID(), nil
}
