// Package repositories implements SQLite persistence for the local library and source documents.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Songs and playlists support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SongRepository] : songs keyed by (source, external id), list columns stored as JSON arrays
//   - [PlaylistRepository] : playlists and their ordered membership in playlist_songs
//   - [SourceRepository] : one persisted configuration document per source class
//   - [LibraryAdapter] : the tasks.Library the synchronizer writes through
//
// Upserts look the row up by (source, external id) including soft-deleted rows, so a song removed
// locally and synced again is restored rather than duplicated.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
