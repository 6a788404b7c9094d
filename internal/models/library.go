package models

import "time"

var (
	_ Model = (*LibrarySong)(nil)
	_ Model = (*LibraryPlaylist)(nil)
)

// LibrarySong is a [Song] stored in the local library.
type LibrarySong struct {
	id        string
	sequence  int
	song      Song
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewLibrarySong creates a new, unsaved library entry for song.
func NewLibrarySong(sequence int, song Song) *LibrarySong {
	now := time.Now()
	return &LibrarySong{sequence: sequence, song: song, createdAt: now, updatedAt: now}
}

func (s *LibrarySong) ID() string                { return s.id }
func (s *LibrarySong) SetID(id string)           { s.id = id }
func (s *LibrarySong) Sequence() int             { return s.sequence }
func (s *LibrarySong) SetSequence(seq int)       { s.sequence = seq }
func (s *LibrarySong) Song() Song                { return s.song }
func (s *LibrarySong) SetSong(song Song)         { s.song = song }
func (s *LibrarySong) Source() string            { return s.song.Source }
func (s *LibrarySong) ExternalID() string        { return s.song.ExternalID }
func (s *LibrarySong) Title() string             { return s.song.Title }
func (s *LibrarySong) CreatedAt() time.Time      { return s.createdAt }
func (s *LibrarySong) SetCreatedAt(t time.Time)  { s.createdAt = t }
func (s *LibrarySong) UpdatedAt() time.Time      { return s.updatedAt }
func (s *LibrarySong) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *LibrarySong) DeletedAt() *time.Time     { return s.deletedAt }
func (s *LibrarySong) SetDeletedAt(t *time.Time) { s.deletedAt = t }
func (s *LibrarySong) Validate() error           { return s.song.Validate() }

// LibraryPlaylist is a [Playlist] stored in the local library.
type LibraryPlaylist struct {
	id        string
	sequence  int
	playlist  Playlist
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewLibraryPlaylist creates a new, unsaved library playlist.
func NewLibraryPlaylist(sequence int, playlist Playlist) *LibraryPlaylist {
	now := time.Now()
	return &LibraryPlaylist{sequence: sequence, playlist: playlist, createdAt: now, updatedAt: now}
}

func (p *LibraryPlaylist) ID() string                { return p.id }
func (p *LibraryPlaylist) SetID(id string)           { p.id = id }
func (p *LibraryPlaylist) Sequence() int             { return p.sequence }
func (p *LibraryPlaylist) SetSequence(seq int)       { p.sequence = seq }
func (p *LibraryPlaylist) Playlist() Playlist        { return p.playlist }
func (p *LibraryPlaylist) SetPlaylist(pl Playlist)   { p.playlist = pl }
func (p *LibraryPlaylist) Name() string              { return p.playlist.Name }
func (p *LibraryPlaylist) CreatedAt() time.Time      { return p.createdAt }
func (p *LibraryPlaylist) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *LibraryPlaylist) UpdatedAt() time.Time      { return p.updatedAt }
func (p *LibraryPlaylist) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *LibraryPlaylist) DeletedAt() *time.Time     { return p.deletedAt }
func (p *LibraryPlaylist) SetDeletedAt(t *time.Time) { p.deletedAt = t }
func (p *LibraryPlaylist) Validate() error           { return p.playlist.Validate() }
