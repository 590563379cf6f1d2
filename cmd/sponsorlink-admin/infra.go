package main

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sponsorlink/sponsorlink-web/config"
	"github.com/sponsorlink/sponsorlink-web/internal/bootstrap"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

var errMockIdentity = errors.New("the in-memory identity provider lives inside the server process; set AUTH_MODE=clerk")

// connectRedis opens the store shared with the server.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func connectRedis(cmdCtx *commandContext) (redis.UniversalClient, error) {
	client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func closeRedis(cmdCtx *commandContext, client redis.UniversalClient) {
	if err := client.Close(); err != nil {
		cmdCtx.Logger.Warn("redis close failed", "error", err)
	}
}

// identityProvider builds the hosted provider. Mock mode has nothing to
// inspect from outside the server.
//
//nolint:ireturn // the provider is chosen at runtime.
func identityProvider(cmdCtx *commandContext) (ports.IdentityProvider, error) {
	if cmdCtx.Config.Auth.Mode == config.IdentityModeMock {
		return nil, errMockIdentity
	}
	return bootstrap.BuildIdentityProvider(cmdCtx.Ctx, bootstrap.AuthConfig{
		Auth:   cmdCtx.Config.Auth,
		Logger: cmdCtx.Logger,
	})
}
