// submodule cmd contains command definitions
package main

import (
	"context"
	"strings"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "spotsync",
		Usage:   "Mirror a Spotify library into a local database",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: r.loadConfig,
		After: func(ctx context.Context, cmd *cli.Command) error {
			r.close()
			return nil
		},
		Commands: r.register(),
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and local database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify source lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to Spotify and manage the saved session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser (Authorization Code with PKCE)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Spotify account login for the playback session",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Spotify account password for the playback session",
						Sources:  cli.EnvVars("SPOTSYNC_PASSWORD"),
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "sync",
						Usage: "Synchronize the library after signing in",
						Value: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "init",
				Usage:  "Refresh the saved session and report the connector status",
				Action: r.AuthInit,
			},
			{
				Name:  "status",
				Usage: "Show the saved session without contacting Spotify",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved session",
				Action: r.AuthLogout,
			},
		},
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy saved tracks, saved albums and playlists into the local library",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in an interactive view",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		},
		Action: r.Sync,
	}
}

func libraryCommand(r *Runner) *cli.Command {
	formats := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		formats[i] = string(f)
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse and export the local library",
		Commands: []*cli.Command{
			{
				Name:  "songs",
				Usage: "List songs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "album", Usage: "Only songs from this album"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of songs to print"},
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.LibrarySongs,
			},
			{
				Name:  "playlists",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "export",
				Usage: "Export a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Playlist name or ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (" + strings.Join(formats, ", ") + ")",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (a directory for markdown)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}
