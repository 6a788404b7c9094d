package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	tu "github.com/desertthunder/spotsync/internal/testing"
)

// memoryLibrary keys songs by (source, external id) like the repository-backed library.
type memoryLibrary struct {
	mu        sync.Mutex
	songs     map[string]models.Song
	playlists map[string][]string
	images    map[string]string
	songErr   error
}

func newMemoryLibrary() *memoryLibrary {
	return &memoryLibrary{
		songs:     map[string]models.Song{},
		playlists: map[string][]string{},
		images:    map[string]string{},
	}
}

func (l *memoryLibrary) AddSong(ctx context.Context, song models.Song) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.songErr != nil {
		return "", l.songErr
	}
	key := song.Source + ":" + song.ExternalID
	l.songs[key] = song
	return key, nil
}

func (l *memoryLibrary) AddPlaylist(ctx context.Context, pl models.Playlist, songIDs []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.playlists[pl.Name] = songIDs
	l.images[pl.Name] = pl.ImageURL
	return pl.Source + ":" + pl.ExternalID, nil
}

func savedTracks(prefix string, n int) []tu.JSON {
	album := tu.Album("al-"+prefix, "Album "+prefix, 3)
	items := make([]tu.JSON, 0, n)
	for i := range n {
		items = append(items, tu.SavedTrack(tu.Track(fmt.Sprintf("%s-%03d", prefix, i), "Song", i+1, album)))
	}
	return items
}

func playlistEntries(prefix string, n int) []tu.JSON {
	album := tu.Album("al-"+prefix, "Album "+prefix, 2)
	items := make([]tu.JSON, 0, n)
	for i := range n {
		items = append(items, tu.PlaylistEntry(tu.Track(fmt.Sprintf("%s-%03d", prefix, i), "Song", i+1, album)))
	}
	return items
}

func newTestSynchronizer(t *testing.T, f *tu.SpotifyFixture, lib Library) *Synchronizer {
	t.Helper()
	client := services.NewSpotifyClient(
		services.AuthorizerFunc(func() string { return "Bearer A" }),
		services.WithBaseURL(f.APIURL()),
		services.WithHTTPClient(f.Client()),
	)
	return NewSynchronizer(client, lib)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		size    int
		offsets []int
	}{
		{name: "empty collection fetches once", total: 0, size: 50, offsets: []int{0}},
		{name: "single item", total: 1, size: 50, offsets: []int{0}},
		{name: "exactly one page", total: 50, size: 50, offsets: []int{0}},
		{name: "one over a page", total: 51, size: 50, offsets: []int{0, 50}},
		{name: "several pages", total: 137, size: 50, offsets: []int{0, 50, 100}},
		{name: "playlist items", total: 250, size: 100, offsets: []int{0, 100, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var offsets []int
			pages, err := paginate(context.Background(), tt.size, func(ctx context.Context, offset int) (int, error) {
				offsets = append(offsets, offset)
				return tt.total, nil
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !slices.Equal(offsets, tt.offsets) {
				t.Errorf("expected offsets %v, got %v", tt.offsets, offsets)
			}
			if pages != len(tt.offsets) {
				t.Errorf("expected %d pages, got %d", len(tt.offsets), pages)
			}
		})
	}

	t.Run("stops on error", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		pages, err := paginate(context.Background(), 50, func(ctx context.Context, offset int) (int, error) {
			calls++
			if offset == 50 {
				return 0, boom
			}
			return 500, nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if calls != 2 || pages != 1 {
			t.Errorf("expected 2 calls and 1 page, got %d and %d", calls, pages)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := paginate(ctx, 50, func(ctx context.Context, offset int) (int, error) {
			t.Error("fetch should not be called")
			return 0, nil
		})
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestSynchronizer(t *testing.T) {
	t.Run("empty library fetches one page per sweep", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		for _, path := range []string{"/v1/me/tracks", "/v1/me/albums", "/v1/me/playlists"} {
			if got := len(f.RequestsFor(path)); got != 1 {
				t.Errorf("expected 1 request to %s, got %d", path, got)
			}
		}
		if result.Songs() != 0 || len(result.Errors()) != 0 {
			t.Errorf("expected an empty clean result, got %+v", result)
		}
	})

	t.Run("saved tracks page through the total", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 137)
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		expected := []string{
			"/v1/me/tracks?offset=0&limit=50",
			"/v1/me/tracks?offset=50&limit=50",
			"/v1/me/tracks?offset=100&limit=50",
		}
		if got := f.RequestsFor("/v1/me/tracks"); !slices.Equal(got, expected) {
			t.Errorf("expected requests %v, got %v", expected, got)
		}
		if result.Tracks.Songs != 137 || len(lib.songs) != 137 {
			t.Errorf("expected 137 songs, got %d (library %d)", result.Tracks.Songs, len(lib.songs))
		}
		if result.Tracks.Pages != 3 {
			t.Errorf("expected 3 pages, got %d", result.Tracks.Pages)
		}
	})

	t.Run("songs carry track and album details", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = []tu.JSON{tu.SavedTrack(tu.Track("t1", "First", 4, tu.Album("al1", "Album One", 3)))}
		lib := newMemoryLibrary()

		newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		song, ok := lib.songs["spotify:t1"]
		if !ok {
			t.Fatal("expected song spotify:t1")
		}
		if song.Title != "First" || song.Album != "Album One" || song.TrackNumber != 4 {
			t.Errorf("unexpected song %+v", song)
		}
		if !slices.Equal(song.Artists, []string{"Artist t1"}) {
			t.Errorf("unexpected artists %v", song.Artists)
		}
		if !slices.Equal(song.AlbumArtists, []string{"Album Artist al1"}) {
			t.Errorf("unexpected album artists %v", song.AlbumArtists)
		}
		if song.AlbumArtURL != "https://i.scdn.co/image/al1-320" {
			t.Errorf("expected second-to-last image as small art, got %s", song.AlbumArtURL)
		}
		if song.AlbumArtURLLarge != "https://i.scdn.co/image/al1-640" {
			t.Errorf("expected first image as large art, got %s", song.AlbumArtURLLarge)
		}
	})

	t.Run("tracks without album images are skipped", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = []tu.JSON{
			tu.SavedTrack(tu.Track("t1", "Kept", 1, tu.Album("al1", "A", 1))),
			tu.SavedTrack(tu.Track("t2", "No art", 1, tu.Album("al2", "B", 0))),
			tu.SavedTrack(tu.JSON{"id": "t3", "name": "No album", "artists": []tu.JSON{tu.Artist("a", "A")}}),
			{"added_at": "2024-01-01T00:00:00Z", "track": nil},
		}
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		if len(lib.songs) != 1 {
			t.Errorf("expected 1 song, got %d", len(lib.songs))
		}
		if result.Tracks.Skipped != 3 {
			t.Errorf("expected 3 skipped, got %d", result.Tracks.Skipped)
		}
		song := lib.songs["spotify:t1"]
		if song.AlbumArtURL != song.AlbumArtURLLarge {
			t.Errorf("expected single image for both sizes, got %s and %s", song.AlbumArtURL, song.AlbumArtURLLarge)
		}
	})

	t.Run("saved albums expand into their tracks", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedAlbums = []tu.JSON{
			tu.SavedAlbum(tu.Album("al1", "One", 2), tu.AlbumTrack("a1", "x", 1), tu.AlbumTrack("a2", "y", 2)),
			tu.SavedAlbum(tu.Album("al2", "No art", 0), tu.AlbumTrack("a3", "z", 1)),
			{"added_at": "2024-01-01T00:00:00Z", "album": tu.Album("al3", "No tracks", 1)},
		}
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		if result.Albums.Songs != 2 {
			t.Errorf("expected 2 album songs, got %d", result.Albums.Songs)
		}
		if result.Albums.Skipped != 2 {
			t.Errorf("expected 2 skipped albums, got %d", result.Albums.Skipped)
		}
		if lib.songs["spotify:a2"].Album != "One" {
			t.Errorf("expected album name on embedded track, got %+v", lib.songs["spotify:a2"])
		}
	})

	t.Run("running twice is idempotent", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 60)
		f.Playlists = []tu.JSON{tu.Playlist("p1", "Mix", 1)}
		f.PlaylistItems["p1"] = playlistEntries("t", 10)
		lib := newMemoryLibrary()
		s := newTestSynchronizer(t, f, lib)

		s.Run(context.Background(), nil)
		s.Run(context.Background(), nil)

		if len(lib.songs) != 60 {
			t.Errorf("expected 60 songs, got %d", len(lib.songs))
		}
		if len(lib.playlists) != 1 {
			t.Errorf("expected 1 playlist, got %d", len(lib.playlists))
		}
	})

	t.Run("refused page truncates only that sweep", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 120)
		f.SavedAlbums = []tu.JSON{tu.SavedAlbum(tu.Album("al1", "One", 2), tu.AlbumTrack("a1", "x", 1))}
		f.Fail("/v1/me/tracks?offset=50&limit=50", http.StatusInternalServerError)
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		if !result.Tracks.Truncated {
			t.Error("expected tracks sweep to be truncated")
		}
		if result.Tracks.Aborted() {
			t.Error("a refused page is not an abort")
		}
		if result.Tracks.Songs != 50 {
			t.Errorf("expected 50 songs kept from the first page, got %d", result.Tracks.Songs)
		}
		if got := len(f.RequestsFor("/v1/me/tracks")); got != 2 {
			t.Errorf("expected 2 requests, got %d", got)
		}
		if result.Albums.Songs != 1 {
			t.Errorf("expected albums sweep to run, got %d songs", result.Albums.Songs)
		}
	})

	t.Run("network failure aborts only that sweep", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 10)
		f.Playlists = []tu.JSON{tu.Playlist("p1", "Mix", 1)}
		f.PlaylistItems["p1"] = playlistEntries("p", 3)
		f.Drop("/v1/me/albums")
		lib := newMemoryLibrary()

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		if !result.Albums.Aborted() {
			t.Errorf("expected albums sweep to abort, got %+v", result.Albums)
		}
		if !errors.Is(result.Albums.Err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", result.Albums.Err)
		}
		if result.Tracks.Songs != 10 {
			t.Errorf("expected tracks sweep to complete, got %d", result.Tracks.Songs)
		}
		if result.Playlists.Playlists != 1 {
			t.Errorf("expected playlists sweep to complete, got %d", result.Playlists.Playlists)
		}
		if len(result.Errors()) != 1 {
			t.Errorf("expected 1 error, got %v", result.Errors())
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("sub-sweep pages by one hundred", func(t *testing.T) {
			f := tu.NewSpotifyFixture(t)
			f.Playlists = []tu.JSON{tu.Playlist("p1", "Long", 2), tu.Playlist("p2", "Bare", 0)}
			f.PlaylistItems["p1"] = playlistEntries("l", 150)
			f.PlaylistItems["p2"] = playlistEntries("b", 1)
			lib := newMemoryLibrary()

			result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

			expected := []string{
				"/v1/playlists/p1/tracks?offset=0&limit=100",
				"/v1/playlists/p1/tracks?offset=100&limit=100",
			}
			if got := f.RequestsFor("/v1/playlists/p1/tracks"); !slices.Equal(got, expected) {
				t.Errorf("expected %v, got %v", expected, got)
			}
			if len(lib.playlists["Long"]) != 150 {
				t.Errorf("expected 150 songs in playlist, got %d", len(lib.playlists["Long"]))
			}
			if lib.images["Long"] != "https://i.scdn.co/image/p1-640" {
				t.Errorf("expected first cover image, got %q", lib.images["Long"])
			}
			if lib.images["Bare"] != "" {
				t.Errorf("expected no cover image, got %q", lib.images["Bare"])
			}
			if result.Playlists.Playlists != 2 {
				t.Errorf("expected 2 playlists, got %d", result.Playlists.Playlists)
			}
		})

		t.Run("refused sub-page still registers the playlist", func(t *testing.T) {
			f := tu.NewSpotifyFixture(t)
			f.Playlists = []tu.JSON{tu.Playlist("p1", "Long", 1), tu.Playlist("p2", "Next", 1)}
			f.PlaylistItems["p1"] = playlistEntries("l", 150)
			f.PlaylistItems["p2"] = playlistEntries("n", 5)
			f.Fail("/v1/playlists/p1/tracks?offset=100&limit=100", http.StatusBadGateway)
			lib := newMemoryLibrary()

			result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

			if len(lib.playlists["Long"]) != 100 {
				t.Errorf("expected 100 songs kept, got %d", len(lib.playlists["Long"]))
			}
			if len(lib.playlists["Next"]) != 5 {
				t.Errorf("expected next playlist to sync, got %d", len(lib.playlists["Next"]))
			}
			if result.Playlists.Err != nil {
				t.Errorf("expected playlists sweep to finish, got %v", result.Playlists.Err)
			}
		})

		t.Run("network failure in a sub-sweep aborts the playlist sweep", func(t *testing.T) {
			f := tu.NewSpotifyFixture(t)
			f.Playlists = []tu.JSON{tu.Playlist("p1", "Broken", 1), tu.Playlist("p2", "Never", 1)}
			f.PlaylistItems["p1"] = playlistEntries("l", 3)
			f.PlaylistItems["p2"] = playlistEntries("n", 3)
			f.Drop("/v1/playlists/p1/tracks")
			lib := newMemoryLibrary()

			result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

			if !result.Playlists.Aborted() {
				t.Errorf("expected playlist sweep to abort, got %+v", result.Playlists)
			}
			if len(lib.playlists) != 0 {
				t.Errorf("expected no playlists, got %v", lib.playlists)
			}
			if len(f.RequestsFor("/v1/playlists/p2/tracks")) != 0 {
				t.Error("expected no requests for the second playlist")
			}
		})
	})

	t.Run("library failures are counted and skipped", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 3)
		lib := newMemoryLibrary()
		lib.songErr = errors.New("disk full")

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), nil)

		if result.Tracks.Failed != 3 || result.Tracks.Songs != 0 {
			t.Errorf("expected 3 failures, got %+v", result.Tracks)
		}
	})

	t.Run("reports progress without blocking", func(t *testing.T) {
		f := tu.NewSpotifyFixture(t)
		f.SavedTracks = savedTracks("t", 5)
		lib := newMemoryLibrary()
		progress := make(chan ProgressUpdate, 100)

		result := newTestSynchronizer(t, f, lib).Run(context.Background(), progress)
		close(progress)

		var last ProgressUpdate
		phases := map[Phase]bool{}
		for u := range progress {
			phases[u.Phase] = true
			last = u
		}
		for _, p := range []Phase{SyncTracks, SyncAlbums, SyncPlaylists, SyncDone} {
			if !phases[p] {
				t.Errorf("expected a %s update", p)
			}
		}
		if last.Phase != SyncDone || last.Data != result {
			t.Errorf("expected final update to carry the result, got %+v", last)
		}

		unbuffered := make(chan ProgressUpdate)
		newTestSynchronizer(t, f, lib).Run(context.Background(), unbuffered)
	})
}

func TestAlbumArt(t *testing.T) {
	tests := []struct {
		name  string
		urls  []string
		small string
		large string
	}{
		{name: "one image", urls: []string{"a"}, small: "a", large: "a"},
		{name: "two images", urls: []string{"a", "b"}, small: "a", large: "a"},
		{name: "three images", urls: []string{"a", "b", "c"}, small: "b", large: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := make([]services.Image, 0, len(tt.urls))
			for _, u := range tt.urls {
				images = append(images, services.Image{URL: u})
			}
			small, large := albumArt(images)
			if small != tt.small || large != tt.large {
				t.Errorf("expected (%s, %s), got (%s, %s)", tt.small, tt.large, small, large)
			}
		})
	}
}
