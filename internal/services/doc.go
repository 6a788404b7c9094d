// Package services implements the Spotify Web API client used by the synchronizer.
//
// # Client
//
// [SpotifyClient] issues authenticated GET requests. The Authorization header is read from an
// [Authorizer] on every request, so a credential replaced by a token refresh is picked up without
// rebuilding the client. An optional token bucket ([WithRateLimit]) paces requests.
//
// # Paging
//
// Listings return one [Page] at a time; callers drive offsets themselves. Limits are clamped to
// [MaxPageSize] (library and playlists) or [MaxPlaylistItemsPageSize] (playlist items).
//
// # Error Handling
//
// Failures are split so callers can tell a refused page from a broken connection:
//   - [*APIError] : non-success status (matches [shared.ErrAPIRequest])
//   - [shared.ErrNetwork] : transport failure or cancelled context
//   - [shared.ErrParse] : success status with a body that is not the expected JSON
package services
