package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrNoRefreshToken    = fmt.Errorf("no refresh token available")
	ErrCryptoUnavailable = fmt.Errorf("cannot calculate SHA256 hash")
	ErrPlaybackLogin     = fmt.Errorf("playback login failed")

	// Connector state errors
	ErrNotReady      = fmt.Errorf("source is not ready")
	ErrSourceDown    = fmt.Errorf("source is down, sign in again")
	ErrNoPendingPKCE = fmt.Errorf("no authorization attempt in progress")

	// API and transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNetwork            = fmt.Errorf("network error")
	ErrParse              = fmt.Errorf("could not parse response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrSongNotFound       = fmt.Errorf("song not found")
	ErrSourceNotFound     = fmt.Errorf("source not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
