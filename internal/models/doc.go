// Package models defines the local library entities that source synchronization writes into.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): the shapes a source produces
//   - [Song] : One playable track with album, artist and art metadata
//   - [Playlist] : Playlist metadata (name and cover image)
//   - [PlaylistExport] : Playlist with its ordered songs, used by exports
//
// 2. Persistent Entities: database-backed wrappers with IDs, sequence numbers and timestamps
//   - [LibrarySong] : A stored [Song], unique per (source, external id)
//   - [LibraryPlaylist] : A stored [Playlist], unique per (source, external id)
//
// Persistent entities implement [Model]. Songs and playlists are identified across syncs by their
// source name plus the source's own identifier, which is what makes re-running a sync idempotent.
package models
