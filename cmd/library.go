package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibrarySongs lists the songs in the local library.
func (r *Runner) LibrarySongs(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	songs, err := repositories.NewSongRepository(db).List(map[string]any{"album": cmd.String("album")})
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(songs) {
		songs = songs[:limit]
	}

	if cmd.Bool("json") {
		out := make([]models.Song, len(songs))
		for i, s := range songs {
			out[i] = s.Song()
		}
		return r.writeJSON(out, true)
	}

	if len(songs) == 0 {
		return r.writePlain("No songs yet. Run 'spotsync sync' first.\n")
	}
	for i, s := range songs {
		song := s.Song()
		r.writePlain("%d. %s - %s", i+1, strings.Join(song.Artists, ", "), song.Title)
		if song.Album != "" {
			r.writePlain(" (%s)", song.Album)
		}
		r.writePlain("\n")
	}
	return nil
}

type playlistSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Songs    int    `json:"songs"`
	ImageURL string `json:"image_url,omitempty"`
}

// LibraryPlaylists lists the playlists in the local library.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewPlaylistRepository(db)
	playlists, err := repo.List(nil)
	if err != nil {
		return err
	}

	summaries := make([]playlistSummary, 0, len(playlists))
	for _, p := range playlists {
		n, err := repo.SongCount(p.ID())
		if err != nil {
			return err
		}
		summaries = append(summaries, playlistSummary{ID: p.ID(), Name: p.Name(), Songs: n, ImageURL: p.Playlist().ImageURL})
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}
	if len(summaries) == 0 {
		return r.writePlain("No playlists yet. Run 'spotsync sync' first.\n")
	}
	for _, s := range summaries {
		r.writePlain("%s  %s (%d songs)\n", s.ID, s.Name, s.Songs)
	}
	return nil
}

// LibraryExport writes one playlist, looked up by name or ID, in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewPlaylistRepository(db)
	ref := cmd.String("playlist")
	playlist, err := repo.GetByName(ref)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		playlist, err = repo.Get(ref)
	}
	if err != nil {
		return fmt.Errorf("%w: %q", err, ref)
	}

	export, err := repo.Export(playlist.ID())
	if err != nil {
		return err
	}

	if format == formatter.FormatMarkdown {
		result, err := formatter.WriteMarkdownExport(export, cmd.String("output"), r.httpClient)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d songs to %s\n", len(export.Songs), result.Directory)
	}

	path, err := formatter.WriteExport(export, format, cmd.String("output"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d songs to %s\n", len(export.Songs), path)
}
