package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// JSON is a loosely typed Spotify object used to build fixtures.
type JSON = map[string]any

// SpotifyFixture is an httptest server that imitates the accounts service and the Web API
// endpoints used by the synchronizer, with real offset/limit/total paging.
type SpotifyFixture struct {
	Server *httptest.Server

	mu sync.Mutex

	User          JSON
	SavedTracks   []JSON
	SavedAlbums   []JSON
	Playlists     []JSON
	PlaylistItems map[string][]JSON

	// AccessToken and RefreshToken are returned by the token endpoint.
	AccessToken  string
	RefreshToken string
	// TokenStatus makes the token endpoint fail with this status when non-zero.
	TokenStatus int

	requests   []string
	tokenForms []url.Values
	failures   map[string]int
	drops      map[string]bool
}

// NewSpotifyFixture starts a fixture that is closed with the test.
func NewSpotifyFixture(t *testing.T) *SpotifyFixture {
	t.Helper()

	f := &SpotifyFixture{
		User:          JSON{"id": "user-1", "display_name": "Test User"},
		PlaylistItems: map[string][]JSON{},
		AccessToken:   "A",
		RefreshToken:  "R",
		failures:      map[string]int{},
		drops:         map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", f.handleToken)
	mux.HandleFunc("/v1/", f.handleAPI)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *SpotifyFixture) URL() string      { return f.Server.URL }
func (f *SpotifyFixture) APIURL() string   { return f.Server.URL + "/v1" }
func (f *SpotifyFixture) TokenURL() string { return f.Server.URL + "/api/token" }
func (f *SpotifyFixture) AuthURL() string  { return f.Server.URL + "/authorize" }
func (f *SpotifyFixture) Client() *http.Client {
	return f.Server.Client()
}

// Fail makes requests whose path and query match key return status. key is either a bare path
// ("/v1/me/tracks") or a path with an offset ("/v1/me/tracks?offset=50").
func (f *SpotifyFixture) Fail(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = status
}

// Drop makes requests matching key fail at the transport level. Keys match as in [SpotifyFixture.Fail].
func (f *SpotifyFixture) Drop(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops[key] = true
}

// Requests returns the API requests received, as "path?offset=N&limit=M" (or just the path).
func (f *SpotifyFixture) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// RequestsFor returns the logged requests for one path.
func (f *SpotifyFixture) RequestsFor(path string) []string {
	var out []string
	for _, r := range f.Requests() {
		if p, _, _ := strings.Cut(r, "?"); p == path {
			out = append(out, r)
		}
	}
	return out
}

// TokenForms returns the forms posted to the token endpoint.
func (f *SpotifyFixture) TokenForms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenForms...)
}

func (f *SpotifyFixture) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, r.PostForm)
	status, access, refresh := f.TokenStatus, f.AccessToken, f.RefreshToken
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Invalid refresh token"}`)
		return
	}

	writeJSON(w, JSON{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    3600,
		"token_type":    "Bearer",
		"scope":         "x",
	})
}

func (f *SpotifyFixture) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	logged := path
	if q.Has("offset") {
		logged = fmt.Sprintf("%s?offset=%d&limit=%d", path, offset, limit)
	}

	f.mu.Lock()
	f.requests = append(f.requests, logged)
	status := f.failures[logged]
	if status == 0 {
		status = f.failures[path]
	}
	drop := f.drops[logged] || f.drops[path]
	f.mu.Unlock()

	if drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"status":%d,"message":"fixture failure"}}`, status)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case path == "/v1/me":
		writeJSON(w, f.User)
	case path == "/v1/me/tracks":
		writeJSON(w, page(f.SavedTracks, path, offset, limit))
	case path == "/v1/me/albums":
		writeJSON(w, page(f.SavedAlbums, path, offset, limit))
	case path == "/v1/me/playlists":
		writeJSON(w, page(f.Playlists, path, offset, limit))
	case strings.HasPrefix(path, "/v1/playlists/") && strings.HasSuffix(path, "/tracks"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/playlists/"), "/tracks")
		items, ok := f.PlaylistItems[id]
		if !ok {
			http.Error(w, `{"error":{"status":404,"message":"Not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, page(items, path, offset, limit))
	default:
		http.NotFound(w, r)
	}
}

func page(items []JSON, path string, offset, limit int) JSON {
	if limit <= 0 {
		limit = 20
	}
	start := min(offset, len(items))
	end := min(start+limit, len(items))

	var next any
	if end < len(items) {
		next = fmt.Sprintf("%s?offset=%d&limit=%d", path, end, limit)
	}

	return JSON{
		"items":  append([]JSON{}, items[start:end]...),
		"offset": offset,
		"limit":  limit,
		"total":  len(items),
		"next":   next,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Images returns n image objects, widest first.
func Images(prefix string, n int) []JSON {
	images := make([]JSON, 0, n)
	for i := range n {
		size := 640 >> i
		images = append(images, JSON{
			"url":    fmt.Sprintf("https://i.scdn.co/image/%s-%d", prefix, size),
			"height": size,
			"width":  size,
		})
	}
	return images
}

// Artist builds an artist object.
func Artist(id, name string) JSON {
	return JSON{"id": id, "name": name, "uri": "spotify:artist:" + id}
}

// Album builds a simplified album with n cover images.
func Album(id, name string, images int) JSON {
	return JSON{
		"id":      id,
		"name":    name,
		"artists": []JSON{Artist("ar-"+id, "Album Artist "+id)},
		"images":  Images(id, images),
		"uri":     "spotify:album:" + id,
	}
}

// Track builds a full track on album.
func Track(id, name string, number int, album JSON) JSON {
	return JSON{
		"id":           id,
		"name":         name,
		"track_number": number,
		"artists":      []JSON{Artist("ar-"+id, "Artist "+id)},
		"album":        album,
		"uri":          "spotify:track:" + id,
	}
}

// SavedTrack wraps a track as a saved-tracks entry.
func SavedTrack(track JSON) JSON {
	return JSON{"added_at": "2024-01-01T00:00:00Z", "track": track}
}

// SavedAlbum wraps album as a saved-albums entry with the given embedded tracks.
func SavedAlbum(album JSON, tracks ...JSON) JSON {
	full := JSON{}
	for k, v := range album {
		full[k] = v
	}
	full["tracks"] = JSON{
		"items":  tracks,
		"offset": 0,
		"limit":  50,
		"total":  len(tracks),
	}
	return JSON{"added_at": "2024-01-01T00:00:00Z", "album": full}
}

// AlbumTrack builds a simplified track as embedded in an album.
func AlbumTrack(id, name string, number int) JSON {
	return JSON{
		"id":           id,
		"name":         name,
		"track_number": number,
		"artists":      []JSON{Artist("ar-"+id, "Artist "+id)},
		"uri":          "spotify:track:" + id,
	}
}

// Playlist builds a simplified playlist with n cover images.
func Playlist(id, name string, images int) JSON {
	return JSON{
		"id":     id,
		"name":   name,
		"owner":  JSON{"id": "user-1", "display_name": "Test User"},
		"images": Images(id, images),
		"uri":    "spotify:playlist:" + id,
	}
}

// PlaylistEntry wraps a track as a playlist item.
func PlaylistEntry(track JSON) JSON {
	return JSON{"added_at": "2024-01-01T00:00:00Z", "is_local": false, "track": track}
}
