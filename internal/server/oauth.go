package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/spotsync/internal/connector"
)

// ErrStateMismatch is the error value delivered when the callback state is not the expected one.
const ErrStateMismatch = "state_mismatch"

// OAuthHandler handles the authorization redirect for one login attempt.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	state       string
	resultChan  chan connector.AuthorizationResponse
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler expecting the given state token.
func NewOAuthHandler(state string) *OAuthHandler {
	return &OAuthHandler{
		state:      state,
		resultChan: make(chan connector.AuthorizationResponse, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ParseResponse classifies a redirect query.
func ParseResponse(r *http.Request) connector.AuthorizationResponse {
	q := r.URL.Query()
	resp := connector.AuthorizationResponse{State: q.Get("state")}

	switch {
	case q.Get("error") != "":
		resp.Type = connector.ResponseError
		resp.Error = q.Get("error")
		if desc := q.Get("error_description"); desc != "" {
			resp.Error = fmt.Sprintf("%s - %s", resp.Error, desc)
		}
	case q.Get("code") != "":
		resp.Type = connector.ResponseCode
		resp.Code = q.Get("code")
	case q.Get("access_token") != "":
		resp.Type = connector.ResponseToken
	default:
		resp.Type = connector.ResponseEmpty
	}
	return resp
}

// ServeHTTP handles the callback request.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	resp := ParseResponse(r)
	if resp.State != h.state {
		h.Send(connector.AuthorizationResponse{Type: connector.ResponseError, Error: ErrStateMismatch, State: resp.State})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	h.Send(resp)
	if resp.Type != connector.ResponseCode {
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send delivers the response (only once).
func (h *OAuthHandler) Send(resp connector.AuthorizationResponse) {
	h.once.Do(func() {
		h.resultChan <- resp
		close(h.resultChan)
	})
}

// Result receives exactly one response and is then closed.
func (h *OAuthHandler) Result() <-chan connector.AuthorizationResponse {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Signed in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>spotsync is connected</h1>
        <p>Return to the terminal; your library sync continues there.</p>
    </div>
</body>
</html>
`
