package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCodeNotFound is returned when no one-time code is outstanding.
var ErrCodeNotFound = errors.New("one-time code not found")

// CodePurpose separates verification codes from password reset codes.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "verify"
	PurposePasswordReset     CodePurpose = "reset"
)

// OneTimeCode is an outstanding code. Only its hash is stored.
type OneTimeCode struct {
	Hash      string    `json:"hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// CodeStore keeps one outstanding code per purpose and subject.
type CodeStore interface {
	// Put replaces any outstanding code for purpose/subject.
	Put(ctx context.Context, purpose CodePurpose, subject string, code OneTimeCode) error
	Get(ctx context.Context, purpose CodePurpose, subject string) (OneTimeCode, error)
	// RecordAttempt increments the failed-attempt counter and returns it.
	RecordAttempt(ctx context.Context, purpose CodePurpose, subject string) (int, error)
	Delete(ctx context.Context, purpose CodePurpose, subject string) error
}

// CodeMessage is a code ready to be delivered to the user.
type CodeMessage struct {
	To        string
	FirstName string
	Purpose   CodePurpose
	Code      string
	ExpiresAt time.Time
}

// CodeSender delivers one-time codes.
type CodeSender interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}
