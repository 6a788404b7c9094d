// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL = "https://api.spotify.com/v1"

	// MaxPageSize is the largest limit accepted by the library and playlist listings.
	MaxPageSize = 50
	// MaxPlaylistItemsPageSize is the largest limit accepted by the playlist items listing.
	MaxPlaylistItemsPageSize = 100
)

// Page is a Spotify paging object.
type Page[T any] struct {
	Items  []T     `json:"items"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Total  int     `json:"total"`
	Next   *string `json:"next"`
}

// Image is an image resource. Spotify lists images widest first.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// SimplifiedTrack is a track as embedded in an album.
type SimplifiedTrack struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	TrackNumber int      `json:"track_number"`
	DurationMS  int      `json:"duration_ms"`
	Artists     []Artist `json:"artists"`
	URI         string   `json:"uri"`
}

// Track is a full track object. Album and Artists are nil when the response omits them.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	TrackNumber int      `json:"track_number"`
	DurationMS  int      `json:"duration_ms"`
	Artists     []Artist `json:"artists"`
	Album       *Album   `json:"album"`
	URI         string   `json:"uri"`
}

// Album is an album object. Tracks is only present on full album objects.
type Album struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Artists     []Artist               `json:"artists"`
	Images      []Image                `json:"images"`
	ReleaseDate string                 `json:"release_date"`
	TotalTracks int                    `json:"total_tracks"`
	Tracks      *Page[SimplifiedTrack] `json:"tracks"`
	URI         string                 `json:"uri"`
}

// SavedTrack is an entry of the user's saved tracks.
type SavedTrack struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// SavedAlbum is an entry of the user's saved albums.
type SavedAlbum struct {
	AddedAt string `json:"added_at"`
	Album   *Album `json:"album"`
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SimplifiedPlaylist is a playlist as listed by /me/playlists.
type SimplifiedPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []Image           `json:"images"`
	URI         string            `json:"uri"`
}

// PlaylistTrack is one entry of a playlist. Track is nil for removed or local-only items.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	IsLocal bool   `json:"is_local"`
	Track   *Track `json:"track"`
}

// User is the current user's profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	Images      []Image `json:"images"`
}

// SpotifyClient performs authenticated GET requests against the Web API.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
	limiter    *rate.Limiter
}

// ClientOption configures a [SpotifyClient].
type ClientOption func(*SpotifyClient)

// WithHTTPClient sets the transport client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *SpotifyClient) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) ClientOption {
	return func(s *SpotifyClient) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRateLimit waits on a token bucket of rps requests per second before every request.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(s *SpotifyClient) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewSpotifyClient creates a client that authorizes requests through auth.
func NewSpotifyClient(auth Authorizer, opts ...ClientOption) *SpotifyClient {
	c := &SpotifyClient{
		baseURL:    DefaultAPIURL,
		httpClient: http.DefaultClient,
		auth:       auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSpotifyClientFromConfig builds a client from the API and sync settings.
func NewSpotifyClientFromConfig(cfg *shared.Config, auth Authorizer, client *http.Client) *SpotifyClient {
	return NewSpotifyClient(auth,
		WithBaseURL(cfg.Credentials.Spotify.APIURL),
		WithRateLimit(cfg.Sync.RateLimit, cfg.Sync.Burst),
		WithHTTPClient(client),
	)
}

// get performs an authenticated GET of endpoint and decodes the JSON body into result.
//
// Errors:
//   - [*APIError] : non-2xx status
//   - [shared.ErrNetwork] : no response (including a cancelled context)
//   - [shared.ErrParse] : body is not the expected JSON
func (s *SpotifyClient) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", shared.ErrNetwork, err)
		}
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if s.auth != nil {
		if h := s.auth.AuthorizationHeader(); h != "" {
			req.Header.Set("Authorization", h)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body), Path: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty response body from %s", shared.ErrParse, endpoint)
		}
		return fmt.Errorf("%w: failed to decode %s: %v", shared.ErrParse, endpoint, err)
	}
	return nil
}

func pageQuery(limit, offset, max int) url.Values {
	if limit <= 0 || limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyClient) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := s.get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyClient) SavedTracks(ctx context.Context, limit, offset int) (*Page[SavedTrack], error) {
	var page Page[SavedTrack]
	if err := s.get(ctx, "/me/tracks", pageQuery(limit, offset, MaxPageSize), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SavedAlbums retrieves one page of the user's saved albums, each with its embedded track page.
func (s *SpotifyClient) SavedAlbums(ctx context.Context, limit, offset int) (*Page[SavedAlbum], error) {
	var page Page[SavedAlbum]
	if err := s.get(ctx, "/me/albums", pageQuery(limit, offset, MaxPageSize), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UserPlaylists retrieves one page of the user's playlists.
func (s *SpotifyClient) UserPlaylists(ctx context.Context, limit, offset int) (*Page[SimplifiedPlaylist], error) {
	var page Page[SimplifiedPlaylist]
	if err := s.get(ctx, "/me/playlists", pageQuery(limit, offset, MaxPageSize), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistItems retrieves one page of a playlist's entries.
func (s *SpotifyClient) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*Page[PlaylistTrack], error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	var page Page[PlaylistTrack]
	if err := s.get(ctx, endpoint, pageQuery(limit, offset, MaxPlaylistItemsPageSize), &page); err != nil {
		return nil, err
	}
	return &page, nil
}
