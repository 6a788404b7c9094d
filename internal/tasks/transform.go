package tasks

import (
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
)

// songFromTrack converts a saved or playlist track. Tracks without an album, artists or album
// images are rejected.
func songFromTrack(t *services.Track, source string) (models.Song, bool) {
	if t == nil || t.Album == nil || t.Artists == nil || len(t.Album.Images) == 0 {
		return models.Song{}, false
	}

	small, large := albumArt(t.Album.Images)
	return models.Song{
		Title:             t.Name,
		Album:             t.Album.Name,
		Artists:           artistNames(t.Artists),
		Source:            source,
		ExternalID:        t.ID,
		AlbumArtists:      artistNames(t.Album.Artists),
		AlbumArtURL:       small,
		TrackNumber:       t.TrackNumber,
		ArtistImages:      artistImages(t.Artists),
		AlbumArtistImages: artistImages(t.Album.Artists),
		AlbumArtURLLarge:  large,
	}, true
}

// songsFromAlbum converts every track embedded in a saved album. Albums without artists, an embedded
// track page or images are rejected.
func songsFromAlbum(a *services.Album, source string) ([]models.Song, bool) {
	if a == nil || a.Artists == nil || a.Tracks == nil || len(a.Images) == 0 {
		return nil, false
	}

	small, large := albumArt(a.Images)
	albumArtists := artistNames(a.Artists)
	albumArtistImages := artistImages(a.Artists)

	songs := make([]models.Song, 0, len(a.Tracks.Items))
	for _, t := range a.Tracks.Items {
		songs = append(songs, models.Song{
			Title:             t.Name,
			Album:             a.Name,
			Artists:           artistNames(t.Artists),
			Source:            source,
			ExternalID:        t.ID,
			AlbumArtists:      albumArtists,
			AlbumArtURL:       small,
			TrackNumber:       t.TrackNumber,
			ArtistImages:      artistImages(t.Artists),
			AlbumArtistImages: albumArtistImages,
			AlbumArtURLLarge:  large,
		})
	}
	return songs, true
}

// albumArt picks the second-to-last image as the small cover and the first as the large one.
// With a single image both are that image. images must not be empty.
func albumArt(images []services.Image) (small, large string) {
	large = images[0].URL
	if len(images) < 2 {
		return large, large
	}
	return images[len(images)-2].URL, large
}

func artistNames(artists []services.Artist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

// artistImages returns each artist's first image URL, for artists that carry images.
func artistImages(artists []services.Artist) []string {
	urls := make([]string, 0, len(artists))
	for _, a := range artists {
		if len(a.Images) > 0 {
			urls = append(urls, a.Images[0].URL)
		}
	}
	return urls
}
