package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sponsorlink/sponsorlink-web/config"
	"github.com/sponsorlink/sponsorlink-web/internal/adapters/mailer"
	redisadapter "github.com/sponsorlink/sponsorlink-web/internal/adapters/redis"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/notify/slack"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
	"github.com/sponsorlink/sponsorlink-web/internal/service/accountalert"
)

// ServiceContainer holds every service the HTTP layer drives.
type ServiceContainer struct {
	Oracle   *service.SessionOracle
	Accounts *service.AccountService
	Profiles *service.ProfileService
	// SSO is nil when single sign-on is off.
	SSO     *service.SSOService
	Alerts  *accountalert.Service
	Metrics statsd.Sink
	Guard   gate.Guard
}

// ObservabilityContainer groups the metric sink and the support notifier.
type ObservabilityContainer struct {
	Metrics statsd.Sink
	Alerts  *accountalert.Service
}

// ServiceDeps contains the infrastructure services are built on.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Identity    ports.IdentityProvider
	// SSO may be nil.
	SSO    ports.SSOProvider
	Logger *slog.Logger
}

// storeSet is the Redis-backed state the services share.
type storeSet struct {
	sessions *redisadapter.SessionStore
	codes    *redisadapter.CodeStore
	lockout  *redisadapter.LockoutStore
}

func buildStores(client redis.UniversalClient, prefix string) storeSet {
	return storeSet{
		sessions: redisadapter.NewSessionStoreWithPrefix(client, prefix+"session:"),
		codes:    redisadapter.NewCodeStore(client, prefix+"code:"),
		lockout:  redisadapter.NewLockoutStore(client, prefix+"lockout:"),
	}
}

func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	var sink statsd.Sink
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			sink = client
		}
	}

	return ObservabilityContainer{
		Metrics: sink,
		Alerts:  BuildAccountAlerts(logger, cfg.Notifications, sink),
	}
}

// BuildAccountAlerts always returns a notifier; with no sinks it only logs.
func BuildAccountAlerts(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig, sink statsd.Sink) *accountalert.Service {
	alertLogger := logger.With("component", "account_alerts")
	var sinks []accountalert.SinkRegistration

	if cfg.Enabled && cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, accountalert.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	return accountalert.NewService(accountalert.Options{
		Logger: alertLogger,
		Sinks:  sinks,
		Config: accountalert.Config{Cooldown: cfg.Cooldown, Metrics: sink},
	})
}

// buildCodeSender picks the relay when configured, otherwise codes go to the log.
//
//nolint:ireturn // the sender is chosen at runtime.
func buildCodeSender(logger *slog.Logger, cfg config.MailConfig, retryLimit int) (ports.CodeSender, error) {
	if !cfg.RelayEnabled() {
		logger.Warn("mail relay not configured; one-time codes are written to the log")
		return mailer.NewLogSender(logger.With("component", "mailer")), nil
	}
	sender, err := mailer.NewRelaySender(mailer.RelayConfig{
		URL:        cfg.RelayURL,
		Token:      cfg.RelayToken,
		From:       cfg.From,
		Timeout:    cfg.Timeout,
		RetryLimit: retryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("build mail relay: %w", err)
	}
	return sender, nil
}

func buildGuard(cfg config.GateConfig) (gate.Guard, error) {
	policy, err := gate.ParseRolelessPolicy(string(cfg.RolelessPolicy))
	if err != nil {
		return gate.Guard{}, err
	}
	return gate.Guard{Policy: policy, MaxWait: cfg.MaxWait, MaxHops: cfg.MaxHops}, nil
}

// NewServices wires the account, profile and session services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.RedisClient == nil || deps.Identity == nil {
		return ServiceContainer{}, fmt.Errorf("services: config, redis client and identity provider are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	guard, err := buildGuard(cfg.Gate)
	if err != nil {
		return ServiceContainer{}, err
	}
	obs := buildObservability(logger, cfg.Observability)
	stores := buildStores(deps.RedisClient, cfg.Redis.KeyPrefix)
	sender, err := buildCodeSender(logger, cfg.Observability.Mail, cfg.Observability.Notifications.RetryLimit)
	if err != nil {
		return ServiceContainer{}, err
	}

	oracle := service.NewSessionOracle(service.SessionOracleOptions{
		Identity: deps.Identity,
		Sessions: stores.sessions,
		Config: service.SessionOracleConfig{
			FetchTimeout: cfg.Gate.FetchTimeout,
			Logger:       logger.With("component", "session_oracle"),
			Metrics:      obs.Metrics,
		},
	})
	accounts := service.NewAccountService(service.AccountServiceOptions{
		Identity: deps.Identity,
		Deps: service.AccountDeps{
			Sessions: stores.sessions,
			Codes:    stores.codes,
			Lockout:  stores.lockout,
			Sender:   sender,
		},
		Config: service.AccountConfig{
			OrganizerDomain:  cfg.Signup.OrganizerEmailDomain,
			CodeTTL:          cfg.Codes.TTL,
			ResendCooldown:   cfg.Codes.ResendCooldown,
			MaxAttempts:      cfg.Codes.MaxAttempts,
			LockoutThreshold: cfg.Codes.LockoutThreshold,
			LockoutDuration:  cfg.Codes.LockoutDuration,
			SessionTTL:       cfg.Auth.SessionTTL,
			Logger:           logger.With("component", "accounts"),
			Metrics:          obs.Metrics,
		},
	})
	profiles := service.NewProfileService(service.ProfileServiceOptions{
		Identity:        deps.Identity,
		Oracle:          oracle,
		Metrics:         obs.Metrics,
		Logger:          logger.With("component", "profiles"),
		OrganizerDomain: cfg.Signup.OrganizerEmailDomain,
	})

	container := ServiceContainer{
		Oracle:   oracle,
		Accounts: accounts,
		Profiles: profiles,
		Alerts:   obs.Alerts,
		Metrics:  obs.Metrics,
		Guard:    guard,
	}
	if deps.SSO != nil {
		container.SSO = service.NewSSOService(service.SSOServiceOptions{Provider: deps.SSO, Accounts: accounts})
	}
	return container, nil
}
