package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sponsorlink/sponsorlink-web/config"
	httpx "github.com/sponsorlink/sponsorlink-web/internal/http"
)

const shutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config       *config.AppConfig
	Services     ServiceContainer
	AssetVersion string
	Logger       *slog.Logger
}

// BuildHTTPHandler assembles the router and its middleware.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http: config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	services := httpx.RouterServices{
		Oracle:           cfg.Services.Oracle,
		Accounts:         cfg.Services.Accounts,
		Profiles:         cfg.Services.Profiles,
		Metrics:          cfg.Services.Metrics,
		Guard:            cfg.Services.Guard,
		CookieDomain:     appCfg.HTTP.CookieDomain,
		OrganizerDomain:  appCfg.Signup.OrganizerEmailDomain,
		ResendCooldown:   appCfg.Codes.ResendCooldown,
		Compression:      appCfg.HTTP.CompressionEnabled,
		CompressionLevel: appCfg.HTTP.CompressionLevel,
		AssetVersion:     cfg.AssetVersion,
		IsDev:            appCfg.IsDev,
		Logger:           logger,
	}
	// Interfaces stay nil unless the concrete service exists.
	if cfg.Services.SSO != nil {
		services.SSO = cfg.Services.SSO
	}
	if cfg.Services.Alerts != nil {
		services.Alerts = cfg.Services.Alerts
	}
	if appCfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", appCfg.HTTP.CompressionLevel)
	}
	return httpx.NewRouter(services)
}

func newServer(handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs the server until ctx is cancelled, then shuts it down
// gracefully.
func ServeHTTP(ctx context.Context, cfg *HTTPServerConfig) error {
	handler, err := BuildHTTPHandler(cfg)
	if err != nil {
		return err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	server := newServer(handler, cfg.Config.HTTP.Addr)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return group.Wait()
}
