package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spotsync/internal/auth"
	"github.com/desertthunder/spotsync/internal/shared"
)

// displayNameFallback is recorded when the profile cannot be fetched.
const displayNameFallback = "null"

// ResponseType is the kind of redirect the authorization server sent back.
type ResponseType string

const (
	ResponseCode  ResponseType = "code"
	ResponseToken ResponseType = "token"
	ResponseError ResponseType = "error"
	ResponseEmpty ResponseType = "empty"
)

// AuthorizationResponse is the parsed redirect from the consent page.
type AuthorizationResponse struct {
	Type  ResponseType
	Code  string
	Error string
	State string
}

// AuthRequest is an interactive login waiting for consent.
type AuthRequest struct {
	URL   string
	State string
}

// InitSource brings a NEED_INIT connector to READY: playback login, playback init, then a token
// refresh. Any failure reverts to NEED_INIT. In any other status it reports Skipped.
func (c *Connector) InitSource(ctx context.Context) <-chan Result {
	c.mu.Lock()
	if c.status != NeedInit {
		status := c.status
		c.mu.Unlock()
		return done(Result{Status: status, Skipped: true})
	}
	c.status = Connecting
	id := c.identity
	c.mu.Unlock()

	c.emit(Event{Kind: EventStatusChanged, Status: Connecting})

	return deliver(func() Result {
		return c.initSource(ctx, id)
	})
}

func (c *Connector) initSource(ctx context.Context, id Identity) Result {
	if err := c.loginPlayer(ctx, id.Username, id.Password); err != nil {
		c.setStatus(NeedInit)
		return Result{Status: NeedInit, Err: err}
	}

	cred, err := c.tokens.Refresh(ctx, c.creds.RefreshToken())
	if err != nil {
		c.reportAuthError("token refresh failed", err)
		c.setStatus(NeedInit)
		return Result{Status: NeedInit, Err: err}
	}

	c.creds.Replace(cred)
	c.setStatus(Ready)
	c.logger.Info("source ready", "account", id.DisplayName)

	if err := c.Persist(); err != nil && !errors.Is(err, errNoStore) {
		c.logger.Warn("failed to persist source document", "err", err)
	}
	return Result{Status: Ready, Persist: true}
}

func (c *Connector) loginPlayer(ctx context.Context, username, password string) error {
	if err := c.player.Login(ctx, username, password); err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrPlaybackLogin, err)
		c.logger.Error("playback login failed", "user", username, "err", err)
		c.emit(Event{Kind: EventLoginFailed, Status: c.Status(), Message: "playback login failed", Err: err})
		return err
	}

	if err := c.player.Init(ctx); err != nil {
		err = fmt.Errorf("%w: init: %w", shared.ErrPlaybackLogin, err)
		c.logger.Error("playback init failed", "err", err)
		c.emit(Event{Kind: EventLoginFailed, Status: c.Status(), Message: "playback init failed", Err: err})
		return err
	}
	return nil
}

// reportAuthError logs and emits a token failure with its status and body, or its error kind.
func (c *Connector) reportAuthError(msg string, err error) {
	var authErr *auth.AuthError
	switch {
	case errors.As(err, &authErr):
		c.logger.Error(msg, "status", authErr.StatusCode, "body", authErr.Body)
		msg = fmt.Sprintf("%s (%d): %s", msg, authErr.StatusCode, authErr.Body)
	case errors.Is(err, shared.ErrNetwork):
		c.logger.Error(msg, "kind", "network", "err", err)
	default:
		c.logger.Error(msg, "err", err)
	}
	c.emit(Event{Kind: EventAuthFailed, Status: c.Status(), Message: msg, Err: err})
}

// BeginLogin starts an interactive login: the playback engine is logged in with username and
// password, the pair is stored, and a consent URL with a fresh PKCE challenge is returned.
//
// Status is not changed.
func (c *Connector) BeginLogin(ctx context.Context, username, password string) (*AuthRequest, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password", shared.ErrMissingCredentials)
	}

	if err := c.loginPlayer(ctx, username, password); err != nil {
		return nil, err
	}

	ch, err := c.generator.Generate()
	if err != nil {
		c.reportAuthError("could not create login challenge", err)
		return nil, err
	}

	state := shared.GenerateID()

	c.mu.Lock()
	c.identity.Username = username
	c.identity.Password = password
	c.pending = &pendingLogin{challenge: ch, state: state}
	c.mu.Unlock()

	return &AuthRequest{URL: c.tokens.AuthCodeURL(state, ch), State: state}, nil
}

// CompleteLogin finishes an interactive login with the redirect response.
//
// Error or non-code responses abort without a status change, as does a failed code exchange.
// On success the credential is replaced, the status becomes READY, the display name is fetched
// and the result asks the caller to persist and resync. The pending challenge is discarded on
// every path.
func (c *Connector) CompleteLogin(ctx context.Context, resp AuthorizationResponse) <-chan Result {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	status := c.status
	c.mu.Unlock()

	if resp.Type != ResponseCode || resp.Error != "" {
		err := fmt.Errorf("%w: authorization response %s: %s", shared.ErrAuthFailed, resp.Type, resp.Error)
		c.reportAuthError("authorization refused", err)
		return done(Result{Status: status, Err: err})
	}

	if pending == nil {
		return done(Result{Status: status, Err: shared.ErrNoPendingPKCE})
	}

	if resp.State != "" && resp.State != pending.state {
		err := fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)
		c.reportAuthError("authorization refused", err)
		return done(Result{Status: status, Err: err})
	}

	return deliver(func() Result {
		cred, err := c.tokens.ExchangeCode(ctx, resp.Code, pending.challenge.Verifier)
		if err != nil {
			c.reportAuthError("code exchange failed", err)
			return Result{Status: c.Status(), Err: err}
		}

		c.creds.Replace(cred)
		c.setStatus(Ready)

		name := displayNameFallback
		if user, err := c.api.CurrentUser(ctx); err != nil {
			c.logger.Warn("could not fetch account name", "err", err)
		} else if user.DisplayName != "" {
			name = user.DisplayName
		}

		c.mu.Lock()
		c.identity.DisplayName = name
		c.mu.Unlock()

		c.logger.Info("login complete", "account", name)
		return Result{Status: Ready, Persist: true, Resync: true}
	})
}

// Logout forgets the credential and the persisted document. The connector is DOWN afterwards.
func (c *Connector) Logout() error {
	c.creds.Clear()

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	c.setStatus(Down)

	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(ClassName); err != nil && !errors.Is(err, shared.ErrSourceNotFound) {
		return err
	}
	return nil
}
