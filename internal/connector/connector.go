package connector

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/auth"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
)

// Status is the lifecycle state of a source.
type Status int

const (
	NeedInit Status = iota
	Connecting
	Ready
	Down
)

func (s Status) String() string {
	switch s {
	case NeedInit:
		return "NEED_INIT"
	case Connecting:
		return "CONNECTING"
	case Ready:
		return "READY"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// TokenProvider performs the OAuth grants. [auth.Exchanger] implements it.
type TokenProvider interface {
	AuthCodeURL(state string, ch auth.Challenge) string
	ExchangeCode(ctx context.Context, code, verifier string) (auth.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Credential, error)
}

// PlaybackLogin logs the playback engine in with the account's username and password.
type PlaybackLogin interface {
	Login(ctx context.Context, username, password string) error
	Init(ctx context.Context) error
}

// API is the Web API surface the connector needs. [services.SpotifyClient] implements it.
type API interface {
	tasks.LibraryAPI
	CurrentUser(ctx context.Context) (*services.User, error)
}

// DocumentStore persists configuration documents by source class. [repositories.SourceRepository] implements it.
type DocumentStore interface {
	Save(class string, document []byte) error
	Load(class string) ([]byte, error)
	Delete(class string) error
}

// Identity is the account a connector is signed in as.
type Identity struct {
	DisplayName string
	Username    string
	Password    string
}

// Result is delivered once by every asynchronous connector operation.
type Result struct {
	Status  Status
	Skipped bool  // the operation did not apply in the current status
	Err     error // why the operation failed
	Persist bool  // the caller should persist the configuration document
	Resync  bool  // the caller should run a synchronization
	Sync    *tasks.SyncResult
}

// Deps are the collaborators a [Connector] is built from.
type Deps struct {
	Tokens      TokenProvider
	Player      PlaybackLogin
	API         API
	Library     tasks.Library
	Store       DocumentStore // optional
	Credentials *auth.CredentialStore
}

// Connector is a remote library source: it owns the credential and account identity, moves through
// the lifecycle states and runs synchronizations.
type Connector struct {
	mu       sync.RWMutex
	status   Status
	identity Identity
	pending  *pendingLogin

	creds   *auth.CredentialStore
	tokens  TokenProvider
	player  PlaybackLogin
	api     API
	library tasks.Library
	store   DocumentStore

	generator *auth.Generator
	events    func(Event)
	logger    *log.Logger
}

type pendingLogin struct {
	challenge auth.Challenge
	state     string
}

// Option configures a [Connector].
type Option func(*Connector)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEvents registers the notification callback. It is called synchronously from whichever
// goroutine changed state and must not block.
func WithEvents(fn func(Event)) Option {
	return func(c *Connector) { c.events = fn }
}

// WithGenerator replaces the PKCE generator.
func WithGenerator(g *auth.Generator) Option {
	return func(c *Connector) {
		if g != nil {
			c.generator = g
		}
	}
}

// New creates a connector in NEED_INIT.
func New(deps Deps, opts ...Option) *Connector {
	creds := deps.Credentials
	if creds == nil {
		creds = auth.NewCredentialStore()
	}

	c := &Connector{
		status:    NeedInit,
		creds:     creds,
		tokens:    deps.Tokens,
		player:    deps.Player,
		api:       deps.API,
		library:   deps.Library,
		store:     deps.Store,
		generator: auth.NewGenerator(nil),
		logger:    shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current lifecycle state.
func (c *Connector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Identity returns the account the connector is signed in as.
func (c *Connector) Identity() Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Credentials exposes the credential store, e.g. as the Web API client's authorizer.
func (c *Connector) Credentials() *auth.CredentialStore {
	return c.creds
}

func (c *Connector) setStatus(s Status) {
	c.mu.Lock()
	prev := c.status
	c.status = s
	c.mu.Unlock()

	if prev != s {
		c.logger.Debug("status changed", "from", prev, "to", s)
		c.emit(Event{Kind: EventStatusChanged, Status: s})
	}
}

func (c *Connector) emit(e Event) {
	if c.events != nil {
		c.events(e)
	}
}

// deliver runs fn on its own goroutine and returns a channel that yields its result once.
func deliver(fn func() Result) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- fn()
	}()
	return out
}

// done returns an already-completed result channel.
func done(r Result) <-chan Result {
	out := make(chan Result, 1)
	out <- r
	close(out)
	return out
}
