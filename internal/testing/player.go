package testing

import (
	"context"
	"errors"
	"sync"
)

// ErrLoginRejected is returned by [FakePlayer] when configured to reject logins.
var ErrLoginRejected = errors.New("fake player: login rejected")

// FakePlayer is a test double for the playback engine login.
type FakePlayer struct {
	mu sync.Mutex

	LoginErr error
	InitErr  error

	Logins []string // usernames, in call order
	Inits  int
}

func (p *FakePlayer) Login(ctx context.Context, username, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Logins = append(p.Logins, username)
	return p.LoginErr
}

func (p *FakePlayer) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Inits++
	return p.InitErr
}

// LoginCount returns how many logins were attempted.
func (p *FakePlayer) LoginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Logins)
}

// InitCount returns how many inits were attempted.
func (p *FakePlayer) InitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Inits
}
