// Package ui implements the terminal sync view using bubbletea's Elm architecture.
//
// The view has two states:
//  1. [SyncView] : a spinner next to the active sweep and a progress bar for its pages
//  2. [ResultView] : the song and playlist totals, the errors that ended sweeps early, and one
//     list entry per sweep
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the synchronizer; the sync function never blocks on a slow terminal.
//
// Keys: esc cancels a running sync, j/k scroll the result list, q quits.
package ui
