package auth

// Package auth contains simple hand-written test doubles for account ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SSOProvider  = (*MockSSOProvider)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.CodeStore    = (*MemoryCodeStore)(nil)
	_ ports.LockoutStore = (*MemoryLockoutStore)(nil)
	_ ports.CodeSender   = (*RecordingSender)(nil)
)

// MockSSOProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockSSOProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	mu        sync.Mutex
	callCount int
}

// NewMockSSOProvider creates a MockSSOProvider with sensible defaults.
func NewMockSSOProvider() *MockSSOProvider {
	return &MockSSOProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: defaultIdentity(),
	}
}

func defaultIdentity() domainauth.Identity {
	return domainauth.Identity{
		Subject:       "mock-subject-1",
		Email:         "mock.user@example.com",
		EmailVerified: true,
		FirstName:     "Mock",
		LastName:      "User",
	}
}

func (m *MockSSOProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, n), fmt.Sprintf("%s-%d", noncePrefix, n), nil
}

func (m *MockSSOProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	user := m.DefaultUser
	if user.Email == "" {
		user = defaultIdentity()
	}
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MemoryCodeStore keeps one-time codes in a map.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]ports.OneTimeCode
}

// NewMemoryCodeStore creates an empty MemoryCodeStore.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]ports.OneTimeCode)}
}

func codeKey(purpose ports.CodePurpose, subject string) string {
	return string(purpose) + ":" + strings.ToLower(subject)
}

func (m *MemoryCodeStore) Put(_ context.Context, purpose ports.CodePurpose, subject string, code ports.OneTimeCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code.Attempts = 0
	m.codes[codeKey(purpose, subject)] = code
	return nil
}

func (m *MemoryCodeStore) Get(_ context.Context, purpose ports.CodePurpose, subject string) (ports.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[codeKey(purpose, subject)]
	if !ok {
		return ports.OneTimeCode{}, ports.ErrCodeNotFound
	}
	return code, nil
}

func (m *MemoryCodeStore) RecordAttempt(_ context.Context, purpose ports.CodePurpose, subject string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := codeKey(purpose, subject)
	code, ok := m.codes[key]
	if !ok {
		return 0, ports.ErrCodeNotFound
	}
	code.Attempts++
	m.codes[key] = code
	return code.Attempts, nil
}

func (m *MemoryCodeStore) Delete(_ context.Context, purpose ports.CodePurpose, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, codeKey(purpose, subject))
	return nil
}

// MemoryLockoutStore counts failures in memory. It ignores failure windows.
type MemoryLockoutStore struct {
	mu       sync.Mutex
	failures map[string]int
	locked   map[string]time.Time
	Now      func() time.Time
}

// NewMemoryLockoutStore creates an empty MemoryLockoutStore.
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{
		failures: make(map[string]int),
		locked:   make(map[string]time.Time),
		Now:      time.Now,
	}
}

func (m *MemoryLockoutStore) RecordFailure(_ context.Context, key string, threshold int, lockFor time.Duration) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[key]++
	if threshold < 1 || m.failures[key] < threshold {
		return time.Time{}, nil
	}
	until := m.Now().Add(lockFor)
	m.locked[key] = until
	return until, nil
}

func (m *MemoryLockoutStore) LockedUntil(_ context.Context, key string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.locked[key]
	if !ok || !m.Now().Before(until) {
		return time.Time{}, nil
	}
	return until, nil
}

func (m *MemoryLockoutStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key)
	delete(m.locked, key)
	return nil
}

// Failures returns the failure count recorded for key.
func (m *MemoryLockoutStore) Failures(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[key]
}

// RecordingSender captures every code it is asked to deliver.
type RecordingSender struct {
	mu   sync.Mutex
	sent []ports.CodeMessage
	Err  error
}

func (r *RecordingSender) SendCode(_ context.Context, msg ports.CodeMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *RecordingSender) Sent() []ports.CodeMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.CodeMessage(nil), r.sent...)
}

// Last returns the most recent message, or false when none was sent.
func (r *RecordingSender) Last() (ports.CodeMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return ports.CodeMessage{}, false
	}
	return r.sent[len(r.sent)-1], true
}
