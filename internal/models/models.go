// package models defines the data model for the local music library
package models

import (
	"fmt"
	"time"
)

// SourceSpotify is the source reference stamped on everything the Spotify connector syncs.
const SourceSpotify = "spotify"

// Model defines the base interface for all persistent models in the library.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Song is a track as a source hands it to the library.
type Song struct {
	Title             string   `json:"title"`
	Album             string   `json:"album"`
	Artists           []string `json:"artists"`
	Source            string   `json:"source"`
	ExternalID        string   `json:"external_id"`
	AlbumArtists      []string `json:"album_artists"`
	AlbumArtURL       string   `json:"album_art_url"`
	TrackNumber       int      `json:"track_number"`
	ArtistImages      []string `json:"artist_images"`
	AlbumArtistImages []string `json:"album_artist_images"`
	AlbumArtURLLarge  string   `json:"album_art_url_large"`
}

// Validate checks that the song can be keyed in the library.
func (s Song) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("song title is required")
	}
	if s.Source == "" {
		return fmt.Errorf("song source is required")
	}
	if s.ExternalID == "" {
		return fmt.Errorf("song external id is required")
	}
	return nil
}

// Playlist is a source playlist's metadata.
type Playlist struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Validate checks that the playlist can be keyed in the library.
func (p Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	if p.Source == "" || p.ExternalID == "" {
		return fmt.Errorf("playlist source and external id are required")
	}
	return nil
}

// PlaylistExport represents a playlist with all its songs, in playlist order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Songs    []Song   `json:"songs"`
}
