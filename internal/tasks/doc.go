// Package tasks synchronizes a remote library into the local one with real-time progress reporting.
//
// # Sweeps
//
// [Synchronizer.Run] performs three independent sweeps:
//
//  1. Saved tracks, pages of [PageSize]
//  2. Saved albums, pages of [PageSize]; every track embedded in a saved album becomes a song
//  3. Playlists, pages of [PageSize], each with a sub-sweep over its entries in pages of
//     [PlaylistItemsPageSize]; the playlist is registered with the songs collected
//
// Each sweep starts at offset 0 and continues while total - page_size*pages > 0, so an empty
// library costs one request per sweep.
//
// # Failure Handling
//
// Nothing is raised to the caller; the outcome is recorded in [SyncResult] and logged.
//   - a page refused with a non-success status (or an unreadable body) ends that sweep quietly,
//     keeping everything already stored
//   - a network failure ends that sweep and is logged as an error
//   - a refused playlist-entries page truncates that playlist, which is still registered
//   - items missing album, artists or cover images are skipped
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Idempotence
//
// [Library.AddSong] keys songs by (source, external id), so running a sync twice leaves one row per track.
package tasks
