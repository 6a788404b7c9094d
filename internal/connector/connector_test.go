package connector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotsync/internal/auth"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	tu "github.com/desertthunder/spotsync/internal/testing"
)

type harness struct {
	conn    *Connector
	fixture *tu.SpotifyFixture
	player  *tu.FakePlayer
	sources *repositories.SourceRepository
	songs   *repositories.SongRepository

	mu     sync.Mutex
	events []Event
}

func (h *harness) record(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *harness) eventsOf(kind EventKind) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, e := range h.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	f := tu.NewSpotifyFixture(t)
	creds := auth.NewCredentialStore()
	h := &harness{
		fixture: f,
		player:  &tu.FakePlayer{},
		sources: repositories.NewSourceRepository(db),
		songs:   repositories.NewSongRepository(db),
	}

	exchanger := auth.NewExchanger(auth.Endpoint{
		ClientID:    "client",
		RedirectURI: "http://127.0.0.1:8888/callback",
		AuthURL:     f.AuthURL(),
		TokenURL:    f.TokenURL(),
	}, f.Client())
	api := services.NewSpotifyClient(creds, services.WithBaseURL(f.APIURL()), services.WithHTTPClient(f.Client()))

	h.conn = New(Deps{
		Tokens:      exchanger,
		Player:      h.player,
		API:         api,
		Library:     repositories.NewLibrary(db),
		Store:       h.sources,
		Credentials: creds,
	}, WithEvents(h.record))
	return h
}

func ptr[T any](v T) *T { return &v }

func restored(t *testing.T, h *harness, refresh string) {
	t.Helper()
	doc := &Document{
		Class:           ClassName,
		AccountName:     ptr("Listener"),
		RefreshToken:    ptr(refresh),
		CacheVersion:    ptr(1),
		AccountLogin:    ptr("user"),
		AccountPassword: ptr("secret"),
	}
	if err := h.conn.Restore(doc); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
}

func TestStatus(t *testing.T) {
	tests := map[Status]string{
		NeedInit:   "NEED_INIT",
		Connecting: "CONNECTING",
		Ready:      "READY",
		Down:       "DOWN",
		Status(42): "UNKNOWN",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("expected %s, got %s", want, s.String())
		}
	}
}

func TestNew(t *testing.T) {
	c := New(Deps{})
	if c.Status() != NeedInit {
		t.Errorf("expected NEED_INIT, got %s", c.Status())
	}
	if c.Credentials() == nil {
		t.Error("expected a credential store")
	}
}

func TestInitSource(t *testing.T) {
	t.Run("refreshes and becomes ready", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")

		res := <-h.conn.InitSource(context.Background())

		if res.Err != nil || res.Status != Ready {
			t.Fatalf("expected READY without error, got %+v", res)
		}
		if h.conn.Status() != Ready {
			t.Errorf("expected READY, got %s", h.conn.Status())
		}
		if h.conn.Credentials().AuthorizationHeader() != "Bearer A" {
			t.Errorf("expected new access token, got %q", h.conn.Credentials().AuthorizationHeader())
		}

		forms := h.fixture.TokenForms()
		if len(forms) != 1 || forms[0].Get("refresh_token") != "R0" || forms[0].Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected token requests %v", forms)
		}
		if h.player.LoginCount() != 1 || h.player.Logins[0] != "user" || h.player.InitCount() != 1 {
			t.Errorf("expected one playback login and init, got %+v", h.player)
		}

		data, err := h.sources.Load(ClassName)
		if err != nil {
			t.Fatalf("expected persisted document: %v", err)
		}
		doc, _ := DecodeDocument(data)
		if *doc.RefreshToken != "R" || *doc.AccountLogin != "user" || *doc.CacheVersion != CacheVersion {
			t.Errorf("unexpected persisted document %s", data)
		}

		var statuses []Status
		for _, e := range h.eventsOf(EventStatusChanged) {
			statuses = append(statuses, e.Status)
		}
		if len(statuses) != 2 || statuses[0] != Connecting || statuses[1] != Ready {
			t.Errorf("expected CONNECTING then READY, got %v", statuses)
		}
	})

	t.Run("skipped unless NEED_INIT", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		<-h.conn.InitSource(context.Background())

		res := <-h.conn.InitSource(context.Background())
		if !res.Skipped || res.Status != Ready {
			t.Errorf("expected skipped while READY, got %+v", res)
		}
		if len(h.fixture.TokenForms()) != 1 {
			t.Error("expected no second refresh")
		}
	})

	t.Run("skipped while DOWN", func(t *testing.T) {
		h := newHarness(t)
		if err := h.conn.Restore(&Document{Class: ClassName}); err != nil {
			t.Fatalf("failed to restore: %v", err)
		}

		res := <-h.conn.InitSource(context.Background())
		if !res.Skipped || res.Status != Down {
			t.Errorf("expected skipped while DOWN, got %+v", res)
		}
		if h.player.LoginCount() != 0 {
			t.Error("expected no playback login")
		}
	})

	t.Run("playback login failure reverts", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		h.player.LoginErr = tu.ErrLoginRejected

		res := <-h.conn.InitSource(context.Background())

		if !errors.Is(res.Err, shared.ErrPlaybackLogin) || !errors.Is(res.Err, tu.ErrLoginRejected) {
			t.Errorf("expected playback login error, got %v", res.Err)
		}
		if h.conn.Status() != NeedInit {
			t.Errorf("expected NEED_INIT, got %s", h.conn.Status())
		}
		if len(h.fixture.TokenForms()) != 0 {
			t.Error("expected no refresh after failed login")
		}
		if len(h.eventsOf(EventLoginFailed)) != 1 {
			t.Error("expected a login failed event")
		}
	})

	t.Run("playback init failure reverts", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		h.player.InitErr = errors.New("no audio device")

		res := <-h.conn.InitSource(context.Background())
		if !errors.Is(res.Err, shared.ErrPlaybackLogin) || h.conn.Status() != NeedInit {
			t.Errorf("expected NEED_INIT with playback error, got %+v", res)
		}
	})

	t.Run("refresh failure reverts and reports status and body", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		h.fixture.TokenStatus = http.StatusBadRequest

		res := <-h.conn.InitSource(context.Background())

		var authErr *auth.AuthError
		if !errors.As(res.Err, &authErr) || authErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 AuthError, got %v", res.Err)
		}
		if h.conn.Status() != NeedInit {
			t.Errorf("expected NEED_INIT, got %s", h.conn.Status())
		}
		events := h.eventsOf(EventAuthFailed)
		if len(events) != 1 || !strings.Contains(events[0].Message, "400") || !strings.Contains(events[0].Message, "invalid_grant") {
			t.Errorf("expected auth failed event with status and body, got %v", events)
		}
		if h.conn.Credentials().AccessToken() != "" {
			t.Error("expected no access token")
		}
	})

	t.Run("refresh network failure reverts", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		h.fixture.Server.Close()

		res := <-h.conn.InitSource(context.Background())
		if !errors.Is(res.Err, shared.ErrNetwork) || h.conn.Status() != NeedInit {
			t.Errorf("expected NEED_INIT with network error, got %+v", res)
		}
	})
}

func beginLogin(t *testing.T, h *harness) *AuthRequest {
	t.Helper()
	req, err := h.conn.BeginLogin(context.Background(), "user", "secret")
	if err != nil {
		t.Fatalf("failed to begin login: %v", err)
	}
	return req
}

func TestBeginLogin(t *testing.T) {
	t.Run("returns the consent URL", func(t *testing.T) {
		h := newHarness(t)
		req := beginLogin(t, h)

		u, err := url.Parse(req.URL)
		if err != nil {
			t.Fatalf("failed to parse URL: %v", err)
		}
		q := u.Query()
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
			t.Errorf("expected PKCE parameters, got %v", q)
		}
		if q.Get("show_dialog") != "false" || q.Get("response_type") != "code" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("state") != req.State {
			t.Errorf("expected state %s, got %s", req.State, q.Get("state"))
		}
		if len(strings.Fields(q.Get("scope"))) != 18 {
			t.Errorf("expected 18 scopes, got %q", q.Get("scope"))
		}

		id := h.conn.Identity()
		if id.Username != "user" || id.Password != "secret" {
			t.Errorf("expected stored credentials, got %+v", id)
		}
		if h.player.LoginCount() != 1 || h.player.InitCount() != 1 {
			t.Error("expected playback login and init")
		}
		if h.conn.Status() != NeedInit {
			t.Errorf("expected status unchanged, got %s", h.conn.Status())
		}
	})

	t.Run("requires credentials", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.conn.BeginLogin(context.Background(), "", ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("playback login failure", func(t *testing.T) {
		h := newHarness(t)
		h.player.LoginErr = tu.ErrLoginRejected

		_, err := h.conn.BeginLogin(context.Background(), "user", "wrong")
		if !errors.Is(err, shared.ErrPlaybackLogin) {
			t.Errorf("expected ErrPlaybackLogin, got %v", err)
		}
		if h.conn.Identity().Username != "" {
			t.Error("expected credentials not to be stored")
		}
	})

	t.Run("unusable random source", func(t *testing.T) {
		h := newHarness(t)
		WithGenerator(auth.NewGenerator(strings.NewReader("")))(h.conn)

		_, err := h.conn.BeginLogin(context.Background(), "user", "secret")
		if !errors.Is(err, shared.ErrCryptoUnavailable) {
			t.Errorf("expected ErrCryptoUnavailable, got %v", err)
		}
		if len(h.eventsOf(EventAuthFailed)) != 1 {
			t.Error("expected an auth failed event")
		}
	})
}

func TestCompleteLogin(t *testing.T) {
	t.Run("exchanges the code and becomes ready", func(t *testing.T) {
		h := newHarness(t)
		if err := h.conn.Restore(&Document{Class: ClassName}); err != nil {
			t.Fatalf("failed to restore: %v", err)
		}
		req := beginLogin(t, h)

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "c1", State: req.State})

		if res.Err != nil || res.Status != Ready || !res.Persist || !res.Resync {
			t.Fatalf("expected READY with persist and resync, got %+v", res)
		}
		if h.conn.Identity().DisplayName != "Test User" {
			t.Errorf("expected display name, got %q", h.conn.Identity().DisplayName)
		}

		forms := h.fixture.TokenForms()
		if len(forms) != 1 || forms[0].Get("code") != "c1" || forms[0].Get("grant_type") != "authorization_code" {
			t.Fatalf("unexpected token requests %v", forms)
		}
		u, _ := url.Parse(req.URL)
		if auth.DeriveChallenge(forms[0].Get("code_verifier")) != u.Query().Get("code_challenge") {
			t.Error("expected the verifier matching the consent challenge")
		}

		again := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "c2"})
		if !errors.Is(again.Err, shared.ErrNoPendingPKCE) {
			t.Errorf("expected the verifier to be discarded, got %v", again.Err)
		}
	})

	t.Run("error response aborts without a status change", func(t *testing.T) {
		h := newHarness(t)
		beginLogin(t, h)

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseError, Error: "access_denied"})
		if !errors.Is(res.Err, shared.ErrAuthFailed) || res.Status != NeedInit {
			t.Errorf("expected auth failure in NEED_INIT, got %+v", res)
		}
		if len(h.fixture.TokenForms()) != 0 {
			t.Error("expected no exchange")
		}

		next := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "c"})
		if !errors.Is(next.Err, shared.ErrNoPendingPKCE) {
			t.Errorf("expected verifier discarded after abort, got %v", next.Err)
		}
	})

	t.Run("token response type is refused", func(t *testing.T) {
		h := newHarness(t)
		beginLogin(t, h)

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseToken, Code: "c"})
		if !errors.Is(res.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Err)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t)
		beginLogin(t, h)

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "c", State: "forged"})
		if !errors.Is(res.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Err)
		}
	})

	t.Run("exchange failure leaves the status unchanged", func(t *testing.T) {
		h := newHarness(t)
		if err := h.conn.Restore(&Document{Class: ClassName}); err != nil {
			t.Fatalf("failed to restore: %v", err)
		}
		req := beginLogin(t, h)
		h.fixture.TokenStatus = http.StatusBadRequest

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "bad", State: req.State})
		if !errors.Is(res.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Err)
		}
		if h.conn.Status() != Down || res.Status != Down {
			t.Errorf("expected DOWN to persist, got %s", h.conn.Status())
		}
	})

	t.Run("profile failure records null", func(t *testing.T) {
		h := newHarness(t)
		h.fixture.Fail("/v1/me", http.StatusInternalServerError)
		req := beginLogin(t, h)

		res := <-h.conn.CompleteLogin(context.Background(), AuthorizationResponse{Type: ResponseCode, Code: "c", State: req.State})
		if res.Err != nil {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if h.conn.Identity().DisplayName != "null" {
			t.Errorf("expected null display name, got %q", h.conn.Identity().DisplayName)
		}
	})
}

func TestSynchronize(t *testing.T) {
	t.Run("requires READY", func(t *testing.T) {
		h := newHarness(t)
		res := <-h.conn.Synchronize(context.Background(), nil)
		if !errors.Is(res.Err, shared.ErrNotReady) {
			t.Errorf("expected ErrNotReady, got %v", res.Err)
		}
	})

	t.Run("fills the local library", func(t *testing.T) {
		h := newHarness(t)
		album := tu.Album("al1", "Album", 2)
		h.fixture.SavedTracks = []tu.JSON{
			tu.SavedTrack(tu.Track("t1", "One", 1, album)),
			tu.SavedTrack(tu.Track("t2", "Two", 2, album)),
		}
		restored(t, h, "R0")
		<-h.conn.InitSource(context.Background())

		res := <-h.conn.Synchronize(context.Background(), nil)
		if res.Err != nil || res.Sync == nil {
			t.Fatalf("expected a sync result, got %+v", res)
		}
		if res.Sync.Songs() != 2 {
			t.Errorf("expected 2 songs, got %d", res.Sync.Songs())
		}
		if n, _ := h.songs.Count(); n != 2 {
			t.Errorf("expected 2 stored songs, got %d", n)
		}

		for _, r := range h.fixture.Requests() {
			if strings.HasPrefix(r, "/v1/me/tracks") {
				return
			}
		}
		t.Error("expected saved tracks to be requested")
	})

	t.Run("emits start and finish events", func(t *testing.T) {
		h := newHarness(t)
		restored(t, h, "R0")
		<-h.conn.InitSource(context.Background())
		<-h.conn.Synchronize(context.Background(), nil)

		if len(h.eventsOf(EventSyncStarted)) != 1 || len(h.eventsOf(EventSyncFinished)) != 1 {
			t.Error("expected sync start and finish events")
		}
	})
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	restored(t, h, "R0")
	<-h.conn.InitSource(context.Background())

	if err := h.conn.Logout(); err != nil {
		t.Fatalf("failed to logout: %v", err)
	}
	if h.conn.Status() != Down {
		t.Errorf("expected DOWN, got %s", h.conn.Status())
	}
	if _, err := h.sources.Load(ClassName); !errors.Is(err, shared.ErrSourceNotFound) {
		t.Errorf("expected document to be deleted, got %v", err)
	}
	if err := h.conn.Logout(); err != nil {
		t.Errorf("expected second logout to succeed, got %v", err)
	}
}
