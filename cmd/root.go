package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/admin"
	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
	"github.com/Duongo16/vtm-apidocs/internal/config"
	"github.com/Duongo16/vtm-apidocs/internal/output"
	"github.com/Duongo16/vtm-apidocs/internal/session"
	"github.com/Duongo16/vtm-apidocs/internal/version"
)

type rootOptions struct {
	ConfigPath string

	DocsURL  string
	UsersURL string
	Token    string
	Timeout  time.Duration

	Pretty   bool
	NoPretty bool

	Debug bool
	Trace bool

	Status  bool
	Headers bool

	RetryNonIdempotent bool
}

type appState struct {
	opts rootOptions

	cfg      *config.Config
	logger   *slog.Logger
	client   *apihttp.Client
	printer  *output.Printer
	sessions session.Store

	docs  *admin.Docs
	auth  *admin.Auth
	users *admin.Users
}

func (a *appState) initFromFlags(cmd *cobra.Command) error {
	if a.opts.Pretty && a.opts.NoPretty {
		return fmt.Errorf("cannot set both --pretty and --no-pretty")
	}

	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.PrinterOptions{
		ForcePretty:  a.opts.Pretty,
		ForceCompact: a.opts.NoPretty,
		PrintStatus:  a.opts.Status,
		PrintHeaders: a.opts.Headers,
	})

	level := slog.LevelWarn
	if a.opts.Debug || a.opts.Trace {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.opts.ConfigPath, config.Overrides{
		DocsURL:  a.opts.DocsURL,
		UsersURL: a.opts.UsersURL,
		Timeout:  a.opts.Timeout,
		Token:    a.opts.Token,
	}, os.Getenv)
	if err != nil {
		return err
	}
	a.cfg = cfg

	path := cfg.SessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
	}
	a.sessions = session.Store{Path: path}

	token := cfg.Token
	if token == "" {
		token = a.savedToken()
	}

	httpClient, err := apihttp.NewClient(apihttp.ClientOptions{
		Timeout:            cfg.Timeout,
		Debug:              a.opts.Debug,
		Trace:              a.opts.Trace,
		RetryNonIdempotent: a.opts.RetryNonIdempotent,
		UserAgent:          version.UserAgent(),
		Token:              token,
		Out:                cmd.ErrOrStderr(),
		Logger:             a.logger,
	})
	if err != nil {
		return err
	}
	a.client = httpClient

	a.docs = admin.NewDocs(httpClient, cfg.DocsURL)
	a.docs.ImportTimeout = cfg.ImportTimeout
	a.auth = admin.NewAuth(httpClient, cfg.UsersURL)
	a.users = admin.NewUsers(httpClient, cfg.UsersURL)
	return nil
}

// savedToken returns the token of the stored login, if any.
func (a *appState) savedToken() string {
	sess, err := a.sessions.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			a.logger.Warn("ignoring unreadable session", "path", a.sessions.Path, "err", err)
		}
		return ""
	}
	if sess.Expired(time.Now()) {
		a.logger.Warn("saved session has expired; run apidocs login", "email", sess.User.Email)
	}
	return sess.Token
}

// check prints the service answer behind an APIError before handing the
// error back to cobra.
func (a *appState) check(err error) error {
	var apiErr *admin.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	_ = a.printer.PrintHTTPError(apiErr.Status, nil, apiErr.Body)
	if apiErr.Status == http.StatusUnauthorized {
		fmt.Fprintln(a.printer.Err(), "Not authorized. Run apidocs login or set APIDOCS_TOKEN.")
	}
	return err
}

func (a *appState) contextWithApp(ctx context.Context) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

type appKey struct{}

func appFrom(cmd *cobra.Command) (*appState, error) {
	v := cmd.Context().Value(appKey{})
	if v == nil {
		return nil, errors.New("internal error: app state missing from command context")
	}
	a, ok := v.(*appState)
	if !ok {
		return nil, errors.New("internal error: app state has wrong type")
	}
	return a, nil
}

// runE adapts a command body that needs the app state.
func runE(fn func(cmd *cobra.Command, a *appState, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		return a.check(fn(cmd, a, args))
	}
}

func NewRootCmd() (*cobra.Command, error) {
	app := &appState{}

	root := &cobra.Command{
		Use:   "apidocs",
		Short: "API documentation admin console",
		Long: "API documentation admin console.\n\n" +
			"Manage API documents, their OpenAPI specs and console users.\n\n" +
			"Authentication:\n" +
			"  apidocs login --email you@example.com\n" +
			"  (or export APIDOCS_TOKEN=\"...\")\n\n" +
			"Examples:\n" +
			"  apidocs docs list --state draft\n" +
			"  apidocs docs import --name Pets --file pets.json\n" +
			"  apidocs spec ops 12\n" +
			"  apidocs edit --id 12 op add /pets post\n" +
			"  apidocs edit --file pets.json prop add /pets post --dry-run\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.initFromFlags(cmd); err != nil {
				return err
			}
			cmd.SetContext(app.contextWithApp(cmd.Context()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.opts.ConfigPath, "config", "", "Config file (default $XDG_CONFIG_HOME/apidocs/config.yaml, or set APIDOCS_CONFIG)")
	pf.StringVar(&app.opts.DocsURL, "docs-url", "", "API doc service base URL (or set APIDOCS_DOCS_URL)")
	pf.StringVar(&app.opts.UsersURL, "users-url", "", "User service base URL (or set APIDOCS_USERS_URL)")
	pf.StringVar(&app.opts.Token, "token", "", "Access token sent as the session cookie (or set APIDOCS_TOKEN)")
	pf.DurationVar(&app.opts.Timeout, "timeout", 0, "HTTP client timeout (default 30s)")

	pf.BoolVar(&app.opts.Pretty, "pretty", false, "Force pretty-printed JSON output")
	pf.BoolVar(&app.opts.NoPretty, "no-pretty", false, "Force compact (non-pretty) output")

	pf.BoolVar(&app.opts.Debug, "debug", false, "Log request/response metadata to stderr (redacts auth)")
	pf.BoolVar(&app.opts.Trace, "trace", false, "Log full request/response bodies to stderr (redacts auth headers)")
	pf.BoolVar(&app.opts.Status, "status", false, "Print HTTP status code to stderr")
	pf.BoolVar(&app.opts.Headers, "headers", false, "Print response headers to stderr (redacts auth-related headers)")
	pf.BoolVar(&app.opts.RetryNonIdempotent, "retry-non-idempotent", false, "Allow retries for non-idempotent requests on 429/5xx")

	root.SetVersionTemplate("{{.Version}}\n")
	root.Version = version.Version()

	root.AddCommand(newLoginCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newUsersCmd())
	root.AddCommand(newDocsCmd())
	root.AddCommand(newSpecCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newVersionCmd())

	return root, nil
}
