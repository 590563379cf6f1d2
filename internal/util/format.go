package util //nolint:revive // package name util hosts shared formatting helpers

import "time"

// FormatRemaining formats the time left until deadline for display.
// Returns "—" once the deadline has passed, truncates to seconds otherwise.
func FormatRemaining(deadline, now time.Time) string {
	d := deadline.Sub(now)
	switch {
	case deadline.IsZero() || d <= 0:
		return "—"
	case d < time.Second:
		return "<1s"
	default:
		return d.Truncate(time.Second).String()
	}
}
