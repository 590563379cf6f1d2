package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "sponsorlink"

// ObservabilityConfig groups configuration for metrics, support notifications
// and outbound one-time code delivery.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
	Mail          MailConfig `envPrefix:"MAIL_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
	c.Mail.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"sponsorlink"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if strings.TrimSpace(c.Prefix) == "" {
		c.Prefix = defaultObservabilityName
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls support-channel notifications
// about accounts that need manual attention.
type ObservabilityNotificationsConfig struct {
	Enabled    bool                    `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration           `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int                     `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`
	Cooldown   time.Duration           `env:"OBSERVABILITY_NOTIFICATIONS_COOLDOWN"    envDefault:"1h"`
	Slack      SlackNotificationConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_SLACK_"`
}

// Sanitize normalises notification configuration values.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}

	c.Slack.sanitize()

	if !c.Enabled || c.Slack.WebhookURL == "" {
		c.Slack.Enabled = false
	}
}

// SlackNotificationConfig controls Slack webhook fan-out.
type SlackNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"sponsorlink"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		c.Username = defaultObservabilityName
	}
}

// MailConfig selects how one-time codes reach users. With no relay URL the
// codes are written to the log, which is only suitable for development.
type MailConfig struct {
	RelayURL   string        `env:"RELAY_URL"`
	RelayToken string        `env:"RELAY_TOKEN"`
	From       string        `env:"FROM"        envDefault:"no-reply@sponsorlink.local"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"5s"`
}

// Sanitize trims relay settings.
func (c *MailConfig) Sanitize() {
	c.RelayURL = strings.TrimSpace(c.RelayURL)
	c.RelayToken = strings.TrimSpace(c.RelayToken)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

// RelayEnabled reports whether codes are delivered through the relay.
func (c *MailConfig) RelayEnabled() bool { return c.RelayURL != "" }
