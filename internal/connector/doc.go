// Package connector implements the Spotify source: its lifecycle state machine, interactive PKCE
// login, token refresh on init, and the persisted configuration document.
//
// # Lifecycle
//
//	NEED_INIT --InitSource--> CONNECTING --ok--> READY
//	                              |
//	                              +--failure--> NEED_INIT
//	DOWN --CompleteLogin ok--> READY
//
// DOWN is only entered by restoring a document without a refresh token (or by Logout) and only
// left by a successful interactive login. A failed code exchange leaves the status as it was.
//
// # Concurrency
//
// [Connector.InitSource], [Connector.CompleteLogin] and [Connector.Synchronize] each run on their
// own goroutine and deliver exactly one [Result] on a buffered channel that is then closed.
// Status and identity reads take a read lock; the credential is replaced whole under the
// credential store's lock. Synchronize must not run concurrently with InitSource.
//
// # Notifications
//
// Nothing here talks to a terminal. Status changes, login and auth failures, and sync progress are
// reported through the callback given to [WithEvents].
package connector
