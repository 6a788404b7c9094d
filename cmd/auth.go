package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/connector"
	"github.com/desertthunder/spotsync/internal/server"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func isMissing(err error) bool {
	return errors.Is(err, shared.ErrSourceNotFound)
}

// AuthLogin signs in interactively: it starts the callback server, opens the consent page and
// completes the PKCE exchange with the redirect it receives.
//
// With port 0 in [server] the redirect URI follows the port the listener was given.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	password := cmd.String("password")

	srv := server.New(r.config.Server.Addr(), nil, shared.WithLogger(r.logger, "component", "server"))
	redirect := ""
	if r.config.Server.Port == 0 {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start callback server: %w", err)
		}
		redirect = fmt.Sprintf("http://%s/callback", srv.Addr())
	}

	c, err := r.connector(connectorOpts{redirectURI: redirect})
	if err != nil {
		return err
	}

	req, err := c.BeginLogin(ctx, username, password)
	if err != nil {
		return err
	}

	handler := server.NewOAuthHandler(req.State)
	srv.SetHandler(server.NewCallbackRouter(handler, r.logger))
	if redirect == "" {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start callback server: %w", err)
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(req.URL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", req.URL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.callbackTimeout)
	resp, err := r.waitForCallback(ctx, srv, handler)
	if err != nil {
		return err
	}

	res := <-c.CompleteLogin(ctx, resp)
	if res.Err != nil {
		return fmt.Errorf("authorization failed: %w", res.Err)
	}

	if res.Persist {
		if err := c.Persist(); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	r.writePlain("✓ Signed in as %s\n", c.Identity().DisplayName)

	if res.Resync && cmd.Bool("sync") {
		return r.runSync(ctx, c, false)
	}
	return nil
}

func (r *Runner) waitForCallback(ctx context.Context, srv *server.Server, handler *server.OAuthHandler) (connector.AuthorizationResponse, error) {
	timeout := time.NewTimer(r.callbackTimeout)
	defer timeout.Stop()

	select {
	case resp := <-handler.Result():
		return resp, nil
	case err, ok := <-srv.Errors():
		if !ok {
			err = errors.New("callback server stopped")
		}
		return connector.AuthorizationResponse{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return connector.AuthorizationResponse{}, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.callbackTimeout)
	case <-ctx.Done():
		return connector.AuthorizationResponse{}, ctx.Err()
	}
}

// AuthInit refreshes the saved session.
func (r *Runner) AuthInit(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connector(connectorOpts{})
	if err != nil {
		return err
	}

	res := <-c.InitSource(ctx)
	switch {
	case res.Err != nil:
		return fmt.Errorf("failed to connect: %w", res.Err)
	case res.Skipped:
		return r.writePlain("Status: %s (nothing to do)\n", res.Status)
	}
	return r.writePlain("✓ Connected as %s\nStatus: %s\n", c.Identity().DisplayName, res.Status)
}

type statusReport struct {
	Status  string `json:"status"`
	Account string `json:"account,omitempty"`
	Login   string `json:"login,omitempty"`
}

// AuthStatus prints the restored connector state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connector(connectorOpts{})
	if err != nil {
		return err
	}

	id := c.Identity()
	report := statusReport{Status: c.Status().String(), Account: id.DisplayName, Login: id.Username}
	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("Spotify")
	r.writePlain("Status: %s\n", report.Status)
	if c.Status() == connector.Down {
		return r.writePlain("Run 'spotsync auth login' to sign in.\n")
	}
	return r.writePlain("Account: %s\nLogin: %s\n", report.Account, report.Login)
}

// AuthLogout forgets the saved session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connector(connectorOpts{})
	if err != nil {
		return err
	}
	if err := c.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}
