// Package notify defines support-channel notifications about accounts that
// need manual attention.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AccountAlertPayload describes an account the application cannot route,
// such as a verified user with profile data but no role.
type AccountAlertPayload struct {
	UserID      string
	Email       string
	State       string
	Reason      string
	Fingerprint string
	Path        string
	Severity    string
	OccurredAt  time.Time
	Metadata    map[string]string
}

// Sink describes a destination capable of consuming account alerts.
type Sink interface {
	SendAccountAlert(ctx context.Context, payload AccountAlertPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload AccountAlertPayload) error

// SendAccountAlert implements the Sink interface.
func (f SinkFunc) SendAccountAlert(ctx context.Context, payload AccountAlertPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
