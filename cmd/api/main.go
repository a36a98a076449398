package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/config"
	"opsdesk.org/internal/httpapi"
	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/notify"
	"opsdesk.org/internal/obs"
	"opsdesk.org/internal/registration"
	"opsdesk.org/internal/store/memstore"
	"opsdesk.org/internal/store/pg"
)

var version = "0.3.0"

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func main() {
	app := &cli.App{
		Name:    "opsdesk-api",
		Usage:   "Admin panel backend: registrations, approvals, role-gated API",
		Version: version,
		Flags:   []cli.Flag{configFileFlag, debugFlag},
		Action:  run,
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String(configFileFlag.Name))
	if err != nil {
		return err
	}
	initLogger(cfg.Debug || c.Bool(debugFlag.Name))

	obs.Init()
	obs.InitBuildInfo(version, "")

	// Store: Postgres when a DSN is configured, in-memory for local demos.
	var (
		store identity.Store
		probe httpapi.ReadyProbe
	)
	if cfg.DB.DSN != "" {
		pgStore, err := pg.Open(cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		store = pgStore
		probe = httpapi.ReadyProbe{Store: pgStore}
		slog.Info("using postgres store")
	} else {
		store = memstore.New()
		slog.Warn("no db.dsn configured, using in-memory store")
	}

	var mailer notify.Sender = notify.Noop{}
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPSender(cfg.SMTP)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer,
		auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Options{
		Store: store,
		Workflow: registration.NewWorkflow(store,
			registration.WithMailer(mailer),
			registration.WithMinPasswordLen(cfg.Registration.PasswordMinLen)),
		Authn:      auth.NewAuthenticator(store, tokens),
		Tokens:     tokens,
		ReadyProbe: probe,
		Version:    version,
	})

	handler := httpapi.RateLimit(api.Handler(), cfg.Server.RateBurst, cfg.Server.RatePerSecond)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	slog.Info("starting opsdesk-api", "version", version, "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	slog.Info("stopped")
	return nil
}
