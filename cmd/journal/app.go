package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/backend"
	"github.com/tbourn/go-journal/internal/config"
	"github.com/tbourn/go-journal/internal/console"
	"github.com/tbourn/go-journal/internal/observability"
	"github.com/tbourn/go-journal/internal/reflection"
	"github.com/tbourn/go-journal/internal/services"
	"github.com/tbourn/go-journal/internal/sysutil"
)

const clientTimeout = 30 * time.Second

// journalBackend is what the terminal client needs from either backend.
type journalBackend interface {
	services.IdentityGateway
	services.EntryStore
	services.ReflectionGenerator
	Confirm(ctx context.Context, token string) error
}

func addApp(topLevel *cobra.Command, c *cli) {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Open the interactive journal.",
		Long: `Open the interactive journal. Without JOURNAL_SERVER_URL the backend
runs in-process over the local database; otherwise the client talks to a
"journal serve" instance.`,
		Example: `
journal app
JOURNAL_SERVER_URL=https://journal.example.com journal app
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runApp(ctx, c.cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	topLevel.AddCommand(cmd)
}

func runApp(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	lg, logFile, err := sysutil.SetupFileLogger(cfg.Client.DataDir, "journal.log")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, "client")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = observability.Shutdown(shutdownOTel, 2*time.Second) }()

	be, closeFn, err := openBackend(ctx, cfg, lg, out)
	if err != nil {
		return err
	}
	defer closeFn()

	prompt := console.NewPrompter(in, out)
	ctrl := services.NewSessionController(be, services.NewEntryRepository(be),
		services.WithLogger(lg.With().Str("component", "session").Logger()),
		services.WithConfirmer(prompt),
		services.WithNotifier(prompt),
		services.WithReflectionGenerator(be),
	)
	app := console.NewApp(ctrl, prompt, out)
	app.ConfirmEmail = be.Confirm
	return app.Run(ctx)
}

// openBackend selects the in-process or the remote backend. Confirmation
// tokens of pending registrations are printed to out since there is no
// mail delivery.
func openBackend(ctx context.Context, cfg config.Config, lg zerolog.Logger, out io.Writer) (journalBackend, func(), error) {
	showToken := func(email, token string) {
		fmt.Fprintf(out, "Confirmation token for %s: %s\n", email, token)
	}

	if cfg.Client.ServerURL != "" {
		r := backend.NewRemote(cfg.Client.ServerURL, cfg.APIBasePath, clientTimeout,
			backend.NewTokenStore(cfg.Client.DataDir, cfg.Client.ServerURL),
			lg.With().Str("component", "remote").Logger())
		r.OnConfirmToken = showToken
		if err := r.Probe(ctx); err != nil {
			lg.Warn().Err(err).Str("server", cfg.Client.ServerURL).Msg("server probe failed")
			fmt.Fprintf(out, "Could not reach %s; requests will fail until it is reachable.\n", cfg.Client.ServerURL)
		}
		return r, func() {}, nil
	}

	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		if secret, err = backend.LocalSecret(cfg.Client.DataDir); err != nil {
			closeStore(db)
			return nil, nil, fmt.Errorf("signing secret: %w", err)
		}
	}

	l := &backend.Local{
		Auth: &auth.Service{
			DB:                  db,
			Secret:              secret,
			TTL:                 cfg.Auth.SessionTTL,
			RequireConfirmation: cfg.Auth.RequireConfirmation,
			Log:                 lg.With().Str("component", "auth").Logger(),
		},
		DB:             db,
		Tokens:         backend.NewTokenStore(cfg.Client.DataDir, "local"),
		Log:            lg.With().Str("component", "local").Logger(),
		OnConfirmToken: showToken,
	}
	if cfg.ReflectionsEnabled() {
		l.Gen = reflection.NewGemini(cfg.GenAI.APIKey, cfg.GenAI.Model, cfg.GenAI.Endpoint, cfg.GenAI.Timeout,
			lg.With().Str("component", "reflection").Logger())
	}
	return l, func() { closeStore(db) }, nil
}
