// package tasks implements the library synchronization run by a connected source.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
)

const (
	// PageSize is the page size for saved tracks, saved albums and playlists.
	PageSize = services.MaxPageSize
	// PlaylistItemsPageSize is the page size of the per-playlist sub-sweep.
	PlaylistItemsPageSize = services.MaxPlaylistItemsPageSize
)

// LibraryAPI is the part of the Web API the synchronizer reads. [services.SpotifyClient] implements it.
type LibraryAPI interface {
	SavedTracks(ctx context.Context, limit, offset int) (*services.Page[services.SavedTrack], error)
	SavedAlbums(ctx context.Context, limit, offset int) (*services.Page[services.SavedAlbum], error)
	UserPlaylists(ctx context.Context, limit, offset int) (*services.Page[services.SimplifiedPlaylist], error)
	PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*services.Page[services.PlaylistTrack], error)
}

// Library is the local store songs and playlists are written to.
//
// AddSong must be idempotent by (source, external id) and return the local handle of the song,
// whether it was created or updated.
type Library interface {
	AddSong(ctx context.Context, song models.Song) (string, error)
	AddPlaylist(ctx context.Context, playlist models.Playlist, songIDs []string) (string, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Name      string
	Pages     int   // pages fetched successfully
	Songs     int   // songs written
	Playlists int   // playlists written
	Skipped   int   // items without album, artists, tracks or cover images
	Failed    int   // items the library refused
	Truncated bool  // a page came back with a non-success status
	Err       error // what stopped the sweep early, if anything
}

// Aborted reports whether the sweep stopped on a network failure.
func (r SweepResult) Aborted() bool {
	return r.Err != nil && !r.Truncated
}

// SyncResult contains the outcome of a full synchronization.
type SyncResult struct {
	Tracks    SweepResult
	Albums    SweepResult
	Playlists SweepResult
	Started   time.Time
	Finished  time.Time
}

// Songs returns the number of songs written across sweeps.
func (r *SyncResult) Songs() int {
	return r.Tracks.Songs + r.Albums.Songs + r.Playlists.Songs
}

// Errors returns the errors that ended sweeps early.
func (r *SyncResult) Errors() []error {
	var errs []error
	for _, s := range []SweepResult{r.Tracks, r.Albums, r.Playlists} {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}
	return errs
}

// Synchronizer copies a user's saved tracks, saved albums and playlists into a [Library].
type Synchronizer struct {
	api     LibraryAPI
	library Library
	source  string
	logger  *log.Logger
}

// Option configures a [Synchronizer].
type Option func(*Synchronizer)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource overrides the source reference stamped on songs and playlists.
func WithSource(source string) Option {
	return func(s *Synchronizer) {
		if source != "" {
			s.source = source
		}
	}
}

// NewSynchronizer creates a Synchronizer reading from api and writing to library.
func NewSynchronizer(api LibraryAPI, library Library, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:     api,
		library: library,
		source:  models.SourceSpotify,
		logger:  shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Synchronizer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs the three sweeps in order. Sweeps are independent: one stopping early never stops
// the next. Failures are logged and recorded in the result, never returned.
func (s *Synchronizer) Run(ctx context.Context, progress chan<- ProgressUpdate) *SyncResult {
	result := &SyncResult{Started: time.Now()}

	result.Tracks = s.syncTracks(ctx, progress)
	result.Albums = s.syncAlbums(ctx, progress)
	result.Playlists = s.syncPlaylists(ctx, progress)

	result.Finished = time.Now()
	s.logger.Info("sync finished",
		"songs", result.Songs(),
		"playlists", result.Playlists.Playlists,
		"skipped", result.Tracks.Skipped+result.Albums.Skipped+result.Playlists.Skipped,
		"duration", result.Finished.Sub(result.Started).Round(time.Millisecond),
	)
	s.sendProgress(progress, doneUpdate(result))
	return result
}

// paginate calls fetch with offsets 0, size, 2*size, ... and keeps going while
// total - size*pages > 0, where total is what the latest page reported.
//
// A fetch error stops the loop and is returned with the number of pages completed.
func paginate(ctx context.Context, size int, fetch func(ctx context.Context, offset int) (int, error)) (int, error) {
	offset, pages := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
		}

		total, err := fetch(ctx, offset)
		if err != nil {
			return pages, err
		}

		pages++
		offset += size
		if total-size*pages <= 0 {
			return pages, nil
		}
	}
}

// isNetwork separates transport failures, which abort a sweep, from refused pages, which truncate it.
func isNetwork(err error) bool {
	return errors.Is(err, shared.ErrNetwork)
}

func (s *Synchronizer) finish(res *SweepResult, phase Phase, progress chan<- ProgressUpdate, err error) {
	if err == nil {
		return
	}

	res.Err = err
	if isNetwork(err) {
		s.logger.Error("sweep aborted", "sweep", res.Name, "pages", res.Pages, "err", err)
	} else {
		res.Truncated = true
		s.logger.Warn("sweep stopped on refused page", "sweep", res.Name, "pages", res.Pages, "err", err)
	}
	s.sendProgress(progress, sweepFailedUpdate(phase, res.Name, err))
}

func (s *Synchronizer) addSong(ctx context.Context, res *SweepResult, song models.Song) (string, bool) {
	id, err := s.library.AddSong(ctx, song)
	if err != nil {
		res.Failed++
		s.logger.Warn("song not stored", "sweep", res.Name, "external_id", song.ExternalID, "err", err)
		return "", false
	}
	res.Songs++
	return id, true
}

func (s *Synchronizer) syncTracks(ctx context.Context, progress chan<- ProgressUpdate) SweepResult {
	res := SweepResult{Name: "tracks"}
	s.sendProgress(progress, startSweepUpdate(SyncTracks, "saved tracks"))

	pages, err := paginate(ctx, PageSize, func(ctx context.Context, offset int) (int, error) {
		page, err := s.api.SavedTracks(ctx, PageSize, offset)
		if err != nil {
			return 0, err
		}

		for _, item := range page.Items {
			song, ok := songFromTrack(item.Track, s.source)
			if !ok {
				res.Skipped++
				continue
			}
			s.addSong(ctx, &res, song)
		}

		s.sendProgress(progress, pageUpdate(SyncTracks, "saved tracks", res.Pages+1, page.Total, PageSize))
		res.Pages++
		return page.Total, nil
	})

	res.Pages = pages
	s.finish(&res, SyncTracks, progress, err)
	s.logger.Debug("tracks synchronized", "songs", res.Songs, "skipped", res.Skipped)
	return res
}

func (s *Synchronizer) syncAlbums(ctx context.Context, progress chan<- ProgressUpdate) SweepResult {
	res := SweepResult{Name: "albums"}
	s.sendProgress(progress, startSweepUpdate(SyncAlbums, "saved albums"))

	pages, err := paginate(ctx, PageSize, func(ctx context.Context, offset int) (int, error) {
		page, err := s.api.SavedAlbums(ctx, PageSize, offset)
		if err != nil {
			return 0, err
		}

		for _, item := range page.Items {
			songs, ok := songsFromAlbum(item.Album, s.source)
			if !ok {
				res.Skipped++
				continue
			}
			for _, song := range songs {
				s.addSong(ctx, &res, song)
			}
		}

		s.sendProgress(progress, pageUpdate(SyncAlbums, "saved albums", res.Pages+1, page.Total, PageSize))
		res.Pages++
		return page.Total, nil
	})

	res.Pages = pages
	s.finish(&res, SyncAlbums, progress, err)
	s.logger.Debug("albums synchronized", "songs", res.Songs, "skipped", res.Skipped)
	return res
}

func (s *Synchronizer) syncPlaylists(ctx context.Context, progress chan<- ProgressUpdate) SweepResult {
	res := SweepResult{Name: "playlists"}
	s.sendProgress(progress, startSweepUpdate(SyncPlaylists, "playlists"))

	pages, err := paginate(ctx, PageSize, func(ctx context.Context, offset int) (int, error) {
		page, err := s.api.UserPlaylists(ctx, PageSize, offset)
		if err != nil {
			return 0, err
		}

		for i, pl := range page.Items {
			if err := s.syncPlaylist(ctx, &res, pl); err != nil {
				return 0, err
			}
			s.sendProgress(progress, playlistUpdate(offset+i+1, page.Total, pl.Name, res.Songs))
		}

		res.Pages++
		return page.Total, nil
	})

	res.Pages = pages
	s.finish(&res, SyncPlaylists, progress, err)
	s.logger.Debug("playlists synchronized", "playlists", res.Playlists, "songs", res.Songs)
	return res
}

// syncPlaylist walks one playlist's entries and registers it. A refused sub-page keeps what was
// collected so far; a network failure is returned and aborts the playlist sweep.
func (s *Synchronizer) syncPlaylist(ctx context.Context, res *SweepResult, pl services.SimplifiedPlaylist) error {
	var songIDs []string

	_, err := paginate(ctx, PlaylistItemsPageSize, func(ctx context.Context, offset int) (int, error) {
		page, err := s.api.PlaylistItems(ctx, pl.ID, PlaylistItemsPageSize, offset)
		if err != nil {
			return 0, err
		}

		for _, entry := range page.Items {
			song, ok := songFromTrack(entry.Track, s.source)
			if !ok {
				res.Skipped++
				continue
			}
			if id, ok := s.addSong(ctx, res, song); ok {
				songIDs = append(songIDs, id)
			}
		}
		return page.Total, nil
	})
	if err != nil {
		if isNetwork(err) {
			return err
		}
		s.logger.Warn("playlist items truncated", "playlist", pl.Name, "songs", len(songIDs), "err", err)
	}

	playlist := models.Playlist{
		Name:       pl.Name,
		Source:     s.source,
		ExternalID: pl.ID,
	}
	if len(pl.Images) > 0 {
		playlist.ImageURL = pl.Images[0].URL
	}

	if _, err := s.library.AddPlaylist(ctx, playlist, songIDs); err != nil {
		res.Failed++
		s.logger.Warn("playlist not stored", "playlist", pl.Name, "err", err)
		return nil
	}
	res.Playlists++
	return nil
}
