package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sponsorlink/sponsorlink-web/config"
)

// RunOptions carries what the binary knows before wiring starts.
type RunOptions struct {
	Config       *config.AppConfig
	AssetVersion string
	Logger       *slog.Logger
}

// Run connects infrastructure, wires services and serves HTTP until ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	redisClient, err := ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	authCfg := AuthConfig{Auth: cfg.Auth, Logger: logger}
	identity, err := BuildIdentityProvider(ctx, authCfg)
	if err != nil {
		return err
	}
	sso, err := BuildSSOProvider(ctx, authCfg)
	if err != nil {
		return err
	}

	services, err := NewServices(&ServiceDeps{
		Config:      cfg,
		RedisClient: redisClient,
		Identity:    identity,
		SSO:         sso,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return ServeHTTP(ctx, &HTTPServerConfig{
		Config:       cfg,
		Services:     services,
		AssetVersion: opts.AssetVersion,
		Logger:       logger,
	})
}
