package connector

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
)

// Synchronize copies the remote library into the local one on a background goroutine.
//
// It reports [shared.ErrNotReady] unless the connector is READY. The caller must not run it
// concurrently with InitSource.
func (c *Connector) Synchronize(ctx context.Context, progress chan<- tasks.ProgressUpdate) <-chan Result {
	if status := c.Status(); status != Ready {
		return done(Result{Status: status, Err: fmt.Errorf("%w: status %s", shared.ErrNotReady, status)})
	}

	return deliver(func() Result {
		c.emit(Event{Kind: EventSyncStarted, Status: Ready})

		s := tasks.NewSynchronizer(c.api, c.library,
			tasks.WithLogger(shared.WithLogger(c.logger, "component", "synchronizer")))
		res := s.Run(ctx, progress)

		c.emit(Event{
			Kind:    EventSyncFinished,
			Status:  c.Status(),
			Message: fmt.Sprintf("%d songs, %d playlists", res.Songs(), res.Playlists.Playlists),
		})
		return Result{Status: c.Status(), Sync: res}
	})
}
