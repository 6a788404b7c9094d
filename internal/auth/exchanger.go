package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/oauth2"
)

// Scopes requested on every interactive login, in the order they are sent.
var Scopes = []string{
	"app-remote-control",
	"streaming",
	"playlist-modify-public",
	"playlist-modify-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-follow-modify",
	"user-follow-read",
	"user-library-modify",
	"user-library-read",
	"user-read-email",
	"user-read-private",
	"user-read-recently-played",
	"user-top-read",
	"user-read-playback-position",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// Endpoint describes the accounts service and the registered public client.
type Endpoint struct {
	ClientID    string
	RedirectURI string
	AuthURL     string
	TokenURL    string
}

// EndpointFromConfig reads the accounts settings from the application configuration.
func EndpointFromConfig(cfg shared.SpotifyConfig) Endpoint {
	return Endpoint{
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
		AuthURL:     cfg.AuthURL,
		TokenURL:    cfg.TokenURL,
	}
}

// Exchanger trades authorization codes and refresh tokens for a [Credential].
type Exchanger struct {
	config *oauth2.Config
	client *http.Client
	now    func() time.Time
}

// NewExchanger builds an Exchanger for ep. A nil client uses [http.DefaultClient].
func NewExchanger(ep Endpoint, client *http.Client) *Exchanger {
	return &Exchanger{
		config: &oauth2.Config{
			ClientID:    ep.ClientID,
			RedirectURL: ep.RedirectURI,
			Scopes:      Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.AuthURL,
				TokenURL:  ep.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
		now:    time.Now,
	}
}

// AuthCodeURL returns the consent URL for a login attempt using ch.
//
// state is echoed back to the redirect and may be empty.
func (e *Exchanger) AuthCodeURL(state string, ch Challenge) string {
	return e.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethod),
		oauth2.SetAuthURLParam("code_challenge", ch.Challenge),
		oauth2.SetAuthURLParam("show_dialog", "false"),
	)
}

// ExchangeCode performs the authorization_code grant with the PKCE verifier.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, verifier string) (Credential, error) {
	tok, err := e.config.Exchange(e.context(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Credential{}, convertError(err)
	}
	return e.credential(tok), nil
}

// Refresh performs the refresh_token grant.
//
// When the response omits a refresh token the one sent is kept, so the returned credential always
// carries a usable refresh token.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	if refreshToken == "" {
		return Credential{}, shared.ErrNoRefreshToken
	}

	src := e.config.TokenSource(e.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Credential{}, convertError(err)
	}
	return e.credential(tok), nil
}

func (e *Exchanger) context(ctx context.Context) context.Context {
	if e.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

func (e *Exchanger) credential(tok *oauth2.Token) Credential {
	now := e.now()
	c := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    int(tok.ExpiresIn),
		ObtainedAt:   now,
	}

	if c.ExpiresIn == 0 {
		c.ExpiresIn = extraInt(tok.Extra("expires_in"))
	}
	if c.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		c.ExpiresIn = int(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		c.Scope = scope
	}
	return c
}

// extraInt reads a numeric token field from either a JSON number or a form-encoded string.
func extraInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func convertError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		body := string(rErr.Body)
		if body == "" {
			body = unknownErrorBody
		}
		return &AuthError{StatusCode: status, Body: body}
	}

	var uErr *url.Error
	var nErr net.Error
	if errors.As(err, &uErr) || errors.As(err, &nErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}

	return &AuthError{StatusCode: http.StatusOK, Body: unknownErrorBody, Err: fmt.Errorf("%w: %v", shared.ErrParse, err)}
}
