// Package mailer delivers one-time codes to users.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// LogSender writes codes to the log. Development only.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender builds a sender that logs codes at info level.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "mailer")}
}

func (s *LogSender) SendCode(_ context.Context, msg ports.CodeMessage) error {
	s.logger.Info("one-time code issued",
		"to", msg.To,
		"purpose", msg.Purpose,
		"code", msg.Code,
		"expires_at", msg.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

// RelayConfig configures the HTTP mail relay.
type RelayConfig struct {
	URL        string
	Token      string
	From       string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// RelaySender posts rendered messages to an HTTP mail relay.
type RelaySender struct {
	url        string
	token      string
	from       string
	retryLimit int
	client     *http.Client
}

// NewRelaySender validates cfg and builds a relay sender.
func NewRelaySender(cfg RelayConfig) (*RelaySender, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("mail relay url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &RelaySender{
		url:        u,
		token:      cfg.Token,
		from:       cfg.From,
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

type relayMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendCode renders msg and posts it, retrying with linear backoff.
func (s *RelaySender) SendCode(ctx context.Context, msg ports.CodeMessage) error {
	body, err := json.Marshal(s.render(msg))
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}

	attempts := s.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = s.post(ctx, body); lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (s *RelaySender) render(msg ports.CodeMessage) relayMessage {
	greeting := "Hi"
	if msg.FirstName != "" {
		greeting += " " + msg.FirstName
	}

	subject := "Your Sponsorlink verification code"
	action := "verify your email address"
	if msg.Purpose == ports.PurposePasswordReset {
		subject = "Your Sponsorlink password reset code"
		action = "reset your password"
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s,\n\nUse this code to %s: %s\n\n", greeting, action, msg.Code)
	fmt.Fprintf(&text, "The code expires at %s. If you did not request it, you can ignore this email.\n",
		msg.ExpiresAt.UTC().Format("15:04 MST"))

	return relayMessage{From: s.from, To: msg.To, Subject: subject, Text: text.String()}
}

func (s *RelaySender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail relay %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var (
	_ ports.CodeSender = (*LogSender)(nil)
	_ ports.CodeSender = (*RelaySender)(nil)
)
