package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sponsorlink/sponsorlink-web/config"
	"github.com/sponsorlink/sponsorlink-web/internal/bootstrap"
)

// version is stamped at build time (-ldflags "-X main.version=...") and
// busts static asset caches between releases.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	return bootstrap.Run(ctx, bootstrap.RunOptions{
		Config:       &cfg,
		AssetVersion: version,
		Logger:       logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting sponsorlink",
		"version", version,
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"sso", cfg.Auth.OAuth.Enabled || cfg.Auth.DevAuth.SSOEmail != "",
		"roleless_policy", cfg.Gate.RolelessPolicy,
		"dev", cfg.IsDev)
}
