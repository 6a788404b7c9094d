// Package player holds the playback engine session the connector logs in before it talks to
// the Web API.
//
// Audio streaming is handled by an out-of-process engine; this package only tracks which
// account the engine is signed in with and whether it has been initialized.
package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/shared"
)

// unsetCredential is what a restored document holds in place of a missing login or password.
const unsetCredential = "null"

// DefaultDeviceName is used when the configuration leaves device_name empty.
const DefaultDeviceName = "spotsync"

// Session is the playback engine login state. It is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	device      string
	username    string
	loggedIn    bool
	initialized bool
	logger      *log.Logger
}

// NewSession creates a session for the given device label.
func NewSession(device string, logger *log.Logger) *Session {
	if device == "" {
		device = DefaultDeviceName
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Session{device: device, logger: logger}
}

// NewSessionFromConfig creates a session with the [playback] settings.
func NewSessionFromConfig(cfg shared.PlaybackConfig, logger *log.Logger) *Session {
	return NewSession(cfg.DeviceName, logger)
}

// Login signs the engine in. Logging in again replaces the account and resets initialization.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if username == "" || password == "" || username == unsetCredential || password == unsetCredential {
		return fmt.Errorf("%w: playback account", shared.ErrMissingCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.loggedIn = true
	s.initialized = false
	s.logger.Debug("playback login", "user", username, "device", s.device)
	return nil
}

// Init prepares the engine after a login.
func (s *Session) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return fmt.Errorf("%w: init before login", shared.ErrNotAuthenticated)
	}
	s.initialized = true
	s.logger.Debug("playback initialized", "device", s.device)
	return nil
}

// Logout forgets the account.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.loggedIn = false
	s.initialized = false
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Device() string { return s.device }

// Ready reports whether the engine is logged in and initialized.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn && s.initialized
}
