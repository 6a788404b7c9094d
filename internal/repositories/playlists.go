package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

const playlistColumns = `id, sequence, source, external_id, name, image_url, created_at, updated_at, deleted_at`

// PlaylistRepository persists [models.LibraryPlaylist] rows and their ordered membership.
//
// Handles playlist CRUD operations with soft delete support and source-specific lookups.
type PlaylistRepository struct {
	db    *sql.DB
	songs *SongRepository
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, songs: NewSongRepository(db)}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.LibraryPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.SetID(shared.GenerateID())
	playlist.SetSequence(sequence)
	p := playlist.Playlist()

	query := `
		INSERT INTO playlists (id, sequence, source, external_id, name, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID(),
		sequence,
		p.Source,
		p.ExternalID,
		p.Name,
		p.ImageURL,
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.LibraryPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByExternalID retrieves a playlist by source and external id
func (r *PlaylistRepository) GetByExternalID(source, externalID string) (*models.LibraryPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE source = ? AND external_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, source, externalID))
}

// GetByName retrieves the first playlist with the given name
func (r *PlaylistRepository) GetByName(name string) (*models.LibraryPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE name = ? AND deleted_at IS NULL ORDER BY sequence ASC LIMIT 1`
	return r.scan(r.db.QueryRow(query, name))
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.LibraryPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)
	p := playlist.Playlist()

	query := `
		UPDATE playlists
		SET name = ?, image_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, p.Name, p.ImageURL, now, playlist.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlist.ID()))
}

// Upsert stores playlist keyed by (source, external id), restoring a soft-deleted row if present.
func (r *PlaylistRepository) Upsert(playlist models.Playlist) (*models.LibraryPlaylist, error) {
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var id string
	err := r.db.QueryRow(`SELECT id FROM playlists WHERE source = ? AND external_id = ?`,
		playlist.Source, playlist.ExternalID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		created := models.NewLibraryPlaylist(0, playlist)
		if err := r.Create(created); err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up playlist: %w", err)
	}

	if _, err := r.db.Exec(`UPDATE playlists SET deleted_at = NULL WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to restore playlist: %w", err)
	}

	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	existing.SetPlaylist(playlist)
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// SetSongs replaces the playlist's membership with songIDs, in order.
func (r *PlaylistRepository) SetSongs(playlistID string, songIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM playlist_songs WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist songs: %w", err)
	}

	for i, songID := range songIDs {
		if _, err := tx.Exec(`INSERT INTO playlist_songs (playlist_id, song_id, position) VALUES (?, ?, ?)`,
			playlistID, songID, i); err != nil {
			return fmt.Errorf("failed to add song %s at %d: %w", songID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist songs: %w", err)
	}
	return nil
}

// Songs returns the playlist's songs in playlist order, leaving out soft-deleted songs.
func (r *PlaylistRepository) Songs(playlistID string) ([]*models.LibrarySong, error) {
	query := `
		SELECT s.id, s.sequence, s.source, s.external_id, s.title, s.album, s.artists, s.album_artists, s.album_art_url,
			s.album_art_url_large, s.track_number, s.artist_images, s.album_artist_images, s.created_at, s.updated_at, s.deleted_at
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ? AND s.deleted_at IS NULL
		ORDER BY ps.position ASC
	`
	return r.songs.scanAll(r.db, query, playlistID)
}

// Export returns the playlist with its songs, ready for a formatter.
func (r *PlaylistRepository) Export(playlistID string) (*models.PlaylistExport, error) {
	playlist, err := r.Get(playlistID)
	if err != nil {
		return nil, err
	}

	songs, err := r.Songs(playlistID)
	if err != nil {
		return nil, err
	}

	export := &models.PlaylistExport{Playlist: playlist.Playlist(), Songs: make([]models.Song, 0, len(songs))}
	for _, s := range songs {
		export.Songs = append(export.Songs, s.Song())
	}
	return export, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id))
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
//
// Supported criteria: "source" (string).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.LibraryPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.LibraryPlaylist
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// SongCount returns how many songs the playlist holds.
func (r *PlaylistRepository) SongCount(playlistID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM playlist_songs ps JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ? AND s.deleted_at IS NULL`, playlistID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist songs: %w", err)
	}
	return n, nil
}

// scan reads one row selected with playlistColumns.
func (r *PlaylistRepository) scan(row scanner) (*models.LibraryPlaylist, error) {
	var (
		id, source, externalID, name, imageURL string
		sequence                               int
		createdAt, updatedAt                   time.Time
		deletedAt                              sql.NullTime
	)

	err := row.Scan(&id, &sequence, &source, &externalID, &name, &imageURL, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.NewLibraryPlaylist(sequence, models.Playlist{
		Name:       name,
		Source:     source,
		ExternalID: externalID,
		ImageURL:   imageURL,
	})
	playlist.SetID(id)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}
