package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/auth"
	"github.com/desertthunder/spotsync/internal/connector"
	"github.com/desertthunder/spotsync/internal/player"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultCallbackTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config          *shared.Config
	configPath      string
	db              *sql.DB
	ownsDB          bool
	httpClient      *http.Client
	logger          *log.Logger
	output          io.Writer
	openBrowser     func(string) error
	callbackTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config          *shared.Config
	ConfigPath      string
	DB              *sql.DB
	HTTPClient      *http.Client
	Logger          *log.Logger
	Output          io.Writer
	OpenBrowser     func(string) error
	CallbackTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.CallbackTimeout <= 0 {
		opts.CallbackTimeout = defaultCallbackTimeout
	}

	return &Runner{
		config:          opts.Config,
		configPath:      opts.ConfigPath,
		db:              opts.DB,
		httpClient:      opts.HTTPClient,
		logger:          opts.Logger,
		output:          opts.Output,
		openBrowser:     opts.OpenBrowser,
		callbackTimeout: opts.CallbackTimeout,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, libraryCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// loadConfig runs before every command. A config injected through [RunnerOpts] wins; otherwise the
// file named by --config is read, falling back to defaults when it does not exist.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.config != nil {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// database opens the configured database and runs pending migrations. The connection is reused
// for the rest of the command.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownsDB = db, true
	return db, nil
}

func (r *Runner) close() {
	if r.ownsDB && r.db != nil {
		r.db.Close()
		r.db, r.ownsDB = nil, false
	}
}

// connectorOpts tweaks how [Runner.connector] wires the source.
type connectorOpts struct {
	redirectURI string
	session     *player.Session
}

// connector wires the Spotify source to the local library and restores its saved document.
// A missing document leaves the connector DOWN.
func (r *Runner) connector(opts connectorOpts) (*connector.Connector, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	endpoint := auth.EndpointFromConfig(r.config.Credentials.Spotify)
	if opts.redirectURI != "" {
		endpoint.RedirectURI = opts.redirectURI
	}
	if opts.session == nil {
		opts.session = player.NewSessionFromConfig(r.config.Playback, shared.WithLogger(r.logger, "component", "player"))
	}

	creds := auth.NewCredentialStore()
	logger := shared.WithLogger(r.logger, "source", connector.ClassName)

	c := connector.New(connector.Deps{
		Tokens:      auth.NewExchanger(endpoint, r.httpClient),
		Player:      opts.session,
		API:         services.NewSpotifyClientFromConfig(r.config, creds, r.httpClient),
		Library:     repositories.NewLibrary(db),
		Store:       repositories.NewSourceRepository(db),
		Credentials: creds,
	}, connector.WithLogger(logger), connector.WithEvents(func(e connector.Event) {
		logger.Debug("event", "kind", e.Kind, "status", e.Status, "message", e.Message)
	}))

	if err := c.Load(); err != nil && !isMissing(err) {
		return nil, err
	}
	return c, nil
}

// ready restores the connector and brings it to READY.
func (r *Runner) ready(ctx context.Context) (*connector.Connector, error) {
	c, err := r.connector(connectorOpts{})
	if err != nil {
		return nil, err
	}

	switch c.Status() {
	case connector.Down:
		return nil, fmt.Errorf("%w: run 'spotsync auth login' first", shared.ErrSourceDown)
	case connector.NeedInit:
		res := <-c.InitSource(ctx)
		if res.Err != nil {
			return nil, fmt.Errorf("failed to connect: %w", res.Err)
		}
	}
	return c, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
