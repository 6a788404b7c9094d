package services

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/spotsync/internal/shared"
)

// Authorizer supplies the Authorization header for Web API requests.
//
// [auth.CredentialStore] implements it; an empty header sends the request unauthenticated.
type Authorizer interface {
	AuthorizationHeader() string
}

// AuthorizerFunc adapts a plain function to [Authorizer].
type AuthorizerFunc func() string

func (f AuthorizerFunc) AuthorizationHeader() string { return f() }

// APIError is a Web API response with a non-success status.
type APIError struct {
	StatusCode int
	Body       string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Is matches [shared.ErrAPIRequest] and, for 401 responses, [shared.ErrNotAuthenticated].
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	default:
		return false
	}
}
