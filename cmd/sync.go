package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotsync/internal/connector"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync restores the session, connects and copies the remote library into the local one.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		return r.SyncTUI(ctx, cmd)
	}

	c, err := r.ready(ctx)
	if err != nil {
		return err
	}
	return r.runSync(ctx, c, cmd.Bool("json"))
}

// runSync prints progress lines as they arrive, then the summary.
func (r *Runner) runSync(ctx context.Context, c *connector.Connector, asJSON bool) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})

	go func() {
		defer close(printed)
		for update := range progress {
			if !asJSON {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	res := <-c.Synchronize(ctx, progress)
	close(progress)
	<-printed

	if res.Err != nil {
		return res.Err
	}
	if asJSON {
		return r.writeJSON(syncReport(res.Sync), true)
	}

	r.writePlainHeader("Sync complete")
	for _, s := range []tasks.SweepResult{res.Sync.Tracks, res.Sync.Albums, res.Sync.Playlists} {
		r.writePlain("%-14s %3d pages  %5d songs  %3d skipped", s.Name, s.Pages, s.Songs, s.Skipped)
		if s.Err != nil {
			r.writePlain("  ✗ %v", s.Err)
		}
		r.writePlain("\n")
	}
	return r.writePlain("Total: %d songs, %d playlists\n", res.Sync.Songs(), res.Sync.Playlists.Playlists)
}

type sweepReport struct {
	Name      string `json:"name"`
	Pages     int    `json:"pages"`
	Songs     int    `json:"songs"`
	Playlists int    `json:"playlists,omitempty"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

type syncResultReport struct {
	Sweeps    []sweepReport `json:"sweeps"`
	Songs     int           `json:"songs"`
	Playlists int           `json:"playlists"`
	Duration  string        `json:"duration"`
}

func syncReport(res *tasks.SyncResult) syncResultReport {
	report := syncResultReport{
		Songs:     res.Songs(),
		Playlists: res.Playlists.Playlists,
		Duration:  res.Finished.Sub(res.Started).String(),
	}
	for _, s := range []tasks.SweepResult{res.Tracks, res.Albums, res.Playlists} {
		sr := sweepReport{
			Name: s.Name, Pages: s.Pages, Songs: s.Songs, Playlists: s.Playlists,
			Skipped: s.Skipped, Failed: s.Failed, Truncated: s.Truncated,
		}
		if s.Err != nil {
			sr.Error = fmt.Sprint(s.Err)
		}
		report.Sweeps = append(report.Sweeps, sr)
	}
	return report
}
