// Package accountalert tells the support channel about accounts the
// application cannot route on its own.
package accountalert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sponsorlink/sponsorlink-web/internal/observability/metrics"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/notify"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Config tunes alert deduplication.
type Config struct {
	// Cooldown suppresses repeat alerts for the same user. Zero means 1h.
	Cooldown time.Duration
	Metrics  statsd.Sink
	Now      func() time.Time
}

// Options configures the notifier.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	Config Config
}

// Service dispatches account alerts to all registered sinks, at most once
// per user per cooldown window.
type Service struct {
	logger   *slog.Logger
	sinks    []SinkRegistration
	cooldown time.Duration
	metrics  statsd.Sink
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewService constructs an account alert notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	cooldown := opts.Config.Cooldown
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger:   logger.With("component", "account_alert"),
		sinks:    sinks,
		cooldown: cooldown,
		metrics:  opts.Config.Metrics,
		now:      now,
		sent:     make(map[string]time.Time),
	}
}

// Notify fans the payload out to every sink unless the user was reported
// within the cooldown. It reports whether the alert was dispatched.
func (s *Service) Notify(ctx context.Context, payload notify.AccountAlertPayload) bool {
	dispatched := s.claim(payload.UserID)
	metrics.EmitCorruptAccount(s.metrics, dispatched && len(s.sinks) > 0)
	if !dispatched {
		s.logger.DebugContext(ctx, "account alert suppressed", "user_id", payload.UserID)
		return false
	}
	if len(s.sinks) == 0 {
		s.logger.WarnContext(ctx, "account needs attention",
			"user_id", payload.UserID,
			"state", payload.State,
			"reason", payload.Reason,
		)
		return false
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityWarning
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = s.now().UTC()
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendAccountAlert(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "account alert delivery error",
					"sink", entry.Name,
					"user_id", payload.UserID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
	return true
}

// claim records the alert for userID and reports whether it is outside
// the cooldown window. Expired entries are pruned as a side effect.
func (s *Service) claim(userID string) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, at := range s.sent {
		if now.Sub(at) >= s.cooldown {
			delete(s.sent, id)
		}
	}
	if _, recent := s.sent[userID]; recent {
		return false
	}
	s.sent[userID] = now
	return true
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
