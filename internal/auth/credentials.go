package auth

import (
	"sync"
	"time"
)

const bearerPrefix = "Bearer "

// Credential is the token set returned by the accounts service.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int // seconds, as reported by the token response
	Scope        string
	ObtainedAt   time.Time
}

// Expiry returns when the access token stops being valid. Zero when unknown.
func (c Credential) Expiry() time.Time {
	if c.ExpiresIn <= 0 || c.ObtainedAt.IsZero() {
		return time.Time{}
	}
	return c.ObtainedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}

// CredentialStore holds a connector's current [Credential].
//
// Writers replace the whole credential, so readers never observe an access token paired with a
// refresh token from a different response.
type CredentialStore struct {
	mu   sync.RWMutex
	cred Credential
	now  func() time.Time
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{now: time.Now}
}

// Credential returns a copy of the current credential.
func (s *CredentialStore) Credential() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Replace swaps in c as the current credential.
func (s *CredentialStore) Replace(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = c
}

// SetRefreshToken seeds the store from persisted state. Any access token is dropped.
func (s *CredentialStore) SetRefreshToken(token string) {
	s.Replace(Credential{RefreshToken: token})
}

// Clear forgets every token.
func (s *CredentialStore) Clear() {
	s.Replace(Credential{})
}

// RefreshToken returns the current refresh token.
func (s *CredentialStore) RefreshToken() string {
	return s.Credential().RefreshToken
}

// AccessToken returns the current access token.
func (s *CredentialStore) AccessToken() string {
	return s.Credential().AccessToken
}

// AuthorizationHeader returns the value for the Authorization header, or "" without an access token.
func (s *CredentialStore) AuthorizationHeader() string {
	token := s.AccessToken()
	if token == "" {
		return ""
	}
	return bearerPrefix + token
}

// Valid reports whether there is an access token that has not expired yet.
func (s *CredentialStore) Valid() bool {
	c := s.Credential()
	if c.AccessToken == "" {
		return false
	}
	exp := c.Expiry()
	return exp.IsZero() || s.now().Before(exp)
}
