package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

const songColumns = `id, sequence, source, external_id, title, album, artists, album_artists, album_art_url,
	album_art_url_large, track_number, artist_images, album_artist_images, created_at, updated_at, deleted_at`

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// SongRepository persists [models.LibrarySong] rows.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Create inserts a new song with a generated ID and sequence.
func (r *SongRepository) Create(song *models.LibrarySong) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	song.SetID(shared.GenerateID())
	song.SetSequence(sequence)

	s := song.Song()
	lists, err := encodeSongLists(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO songs (id, sequence, source, external_id, title, album, artists, album_artists, album_art_url,
			album_art_url_large, track_number, artist_images, album_artist_images, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		song.ID(),
		sequence,
		s.Source,
		s.ExternalID,
		s.Title,
		s.Album,
		lists[0],
		lists[1],
		s.AlbumArtURL,
		s.AlbumArtURLLarge,
		s.TrackNumber,
		lists[2],
		lists[3],
		song.CreatedAt(),
		song.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Get retrieves a song by ID, excluding soft-deleted songs
func (r *SongRepository) Get(id string) (*models.LibrarySong, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByExternalID retrieves a song by source and external id, excluding soft-deleted songs
func (r *SongRepository) GetByExternalID(source, externalID string) (*models.LibrarySong, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE source = ? AND external_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, source, externalID))
}

// Update rewrites a song's metadata.
func (r *SongRepository) Update(song *models.LibrarySong) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	song.SetUpdatedAt(now)

	s := song.Song()
	lists, err := encodeSongLists(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE songs
		SET title = ?, album = ?, artists = ?, album_artists = ?, album_art_url = ?, album_art_url_large = ?,
			track_number = ?, artist_images = ?, album_artist_images = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		s.Title,
		s.Album,
		lists[0],
		lists[1],
		s.AlbumArtURL,
		s.AlbumArtURLLarge,
		s.TrackNumber,
		lists[2],
		lists[3],
		now,
		song.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrSongNotFound, song.ID()))
}

// Upsert stores song keyed by (source, external id). An existing row, including a soft-deleted
// one, is updated in place and restored; otherwise a new row is created.
func (r *SongRepository) Upsert(song models.Song) (*models.LibrarySong, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var id string
	err := r.db.QueryRow(`SELECT id FROM songs WHERE source = ? AND external_id = ?`, song.Source, song.ExternalID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		created := models.NewLibrarySong(0, song)
		if err := r.Create(created); err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up song: %w", err)
	}

	if _, err := r.db.Exec(`UPDATE songs SET deleted_at = NULL WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to restore song: %w", err)
	}

	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	existing.SetSong(song)
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete soft-deletes a song by ID
func (r *SongRepository) Delete(id string) error {
	query := `UPDATE songs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id))
}

// List retrieves all songs matching the given criteria, excluding soft-deleted songs.
//
// Supported criteria: "source" (string), "album" (string).
func (r *SongRepository) List(criteria map[string]any) ([]*models.LibrarySong, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE deleted_at IS NULL`
	args := []any{}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	if album, ok := criteria["album"].(string); ok && album != "" {
		query += " AND album = ?"
		args = append(args, album)
	}

	query += " ORDER BY sequence ASC"

	return r.scanAll(r.db, query, args...)
}

// Count returns the number of songs not soft-deleted.
func (r *SongRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM songs WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

func (r *SongRepository) scanAll(q querier, query string, args ...any) ([]*models.LibrarySong, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.LibrarySong
	for rows.Next() {
		song, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// scan reads one row selected with songColumns.
func (r *SongRepository) scan(row scanner) (*models.LibrarySong, error) {
	var (
		id, source, externalID, title, album string
		artists, albumArtists                string
		artURL, artURLLarge                  string
		artistImages, albumArtistImages      string
		sequence, trackNumber                int
		createdAt, updatedAt                 time.Time
		deletedAt                            sql.NullTime
	)

	err := row.Scan(&id, &sequence, &source, &externalID, &title, &album, &artists, &albumArtists, &artURL,
		&artURLLarge, &trackNumber, &artistImages, &albumArtistImages, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song := models.Song{
		Title:            title,
		Album:            album,
		Source:           source,
		ExternalID:       externalID,
		AlbumArtURL:      artURL,
		AlbumArtURLLarge: artURLLarge,
		TrackNumber:      trackNumber,
	}
	for dst, raw := range map[*[]string]string{
		&song.Artists:           artists,
		&song.AlbumArtists:      albumArtists,
		&song.ArtistImages:      artistImages,
		&song.AlbumArtistImages: albumArtistImages,
	} {
		if *dst, err = decodeList(raw); err != nil {
			return nil, err
		}
	}

	ls := models.NewLibrarySong(sequence, song)
	ls.SetID(id)
	ls.SetCreatedAt(createdAt)
	ls.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		ls.SetDeletedAt(&deletedAt.Time)
	}

	return ls, nil
}

// encodeSongLists returns artists, album artists, artist images and album artist images as JSON.
func encodeSongLists(s models.Song) ([4]string, error) {
	var out [4]string
	for i, values := range [][]string{s.Artists, s.AlbumArtists, s.ArtistImages, s.AlbumArtistImages} {
		encoded, err := encodeList(values)
		if err != nil {
			return out, err
		}
		out[i] = encoded
	}
	return out, nil
}
