// Package devauth provides an in-memory identity provider for local
// development. It mirrors the refusal codes of the hosted provider so the
// account flows behave the same without network access.
package devauth

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

type record struct {
	user ports.User
	hash []byte
}

// Provider implements ports.IdentityProvider in memory.
type Provider struct {
	mu      sync.RWMutex
	byID    map[string]*record
	byEmail map[string]string
	cost    int
	now     func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithBcryptCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.cost = cost }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider constructs an empty provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		byID:    make(map[string]*record),
		byEmail: make(map[string]string),
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Provider) GetUser(_ context.Context, userID string) (ports.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.byID[userID]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return cloneUser(rec.user), nil
}

func (p *Provider) FindUserByEmail(_ context.Context, email string) (ports.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return cloneUser(p.byID[id].user), nil
}

// CreateUser registers a user. An empty password is allowed only for users
// created from an SSO identity.
func (p *Provider) CreateUser(_ context.Context, in ports.CreateUserInput) (ports.User, error) {
	email := normalizeEmail(in.Email)
	if !looksLikeEmail(email) {
		return ports.User{}, domainauth.Fail(domainauth.CodeParamInvalid, "email")
	}

	var hash []byte
	if in.Password != "" || !in.EmailVerified {
		if err := CheckPassword(in.Password); err != nil {
			return ports.User{}, err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.cost)
		if err != nil {
			return ports.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[email]; exists {
		return ports.User{}, domainauth.Fail(domainauth.CodeIdentifierExists, "email")
	}

	u := ports.User{
		ID:            "user_" + uuid.NewString(),
		Email:         email,
		EmailVerified: in.EmailVerified,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Metadata:      maps.Clone(in.Metadata),
		CreatedAt:     p.now(),
	}
	if u.Metadata == nil {
		u.Metadata = map[string]string{}
	}
	p.byID[u.ID] = &record{user: u, hash: hash}
	p.byEmail[email] = u.ID
	return cloneUser(u), nil
}

func (p *Provider) VerifyPassword(_ context.Context, userID, password string) error {
	p.mu.RLock()
	rec, ok := p.byID[userID]
	var hash []byte
	if ok {
		hash = rec.hash
	}
	p.mu.RUnlock()

	if !ok {
		return ports.ErrUserNotFound
	}
	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return domainauth.Fail(domainauth.CodePasswordIncorrect, "password")
	}
	return nil
}

// UpdateMetadata merges patch into the user's metadata. Empty values delete keys.
func (p *Provider) UpdateMetadata(_ context.Context, userID string, patch map[string]string) (ports.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[userID]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	next := maps.Clone(rec.user.Metadata)
	if next == nil {
		next = map[string]string{}
	}
	for k, v := range patch {
		if v == "" {
			delete(next, k)
			continue
		}
		next[k] = v
	}
	rec.user.Metadata = next
	return cloneUser(rec.user), nil
}

func (p *Provider) MarkEmailVerified(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[userID]
	if !ok {
		return ports.ErrUserNotFound
	}
	rec.user.EmailVerified = true
	return nil
}

func (p *Provider) SetPassword(_ context.Context, userID, password string) error {
	if err := CheckPassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[userID]
	if !ok {
		return ports.ErrUserNotFound
	}
	rec.hash = hash
	return nil
}

// Seed parses "email:password:role" entries and creates verified users.
// Entries for existing emails are skipped.
func (p *Provider) Seed(ctx context.Context, entries []string, roleKey string) error {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("dev auth: seed entry %q must be email:password[:role]", entry)
		}
		in := ports.CreateUserInput{
			Email:         parts[0],
			Password:      parts[1],
			FirstName:     strings.Split(parts[0], "@")[0],
			EmailVerified: true,
		}
		if len(parts) == 3 && parts[2] != "" {
			in.Metadata = map[string]string{roleKey: parts[2]}
		}
		if _, err := p.CreateUser(ctx, in); err != nil {
			if domainauth.HasCode(err, domainauth.CodeIdentifierExists) {
				continue
			}
			return fmt.Errorf("dev auth: seed %s: %w", parts[0], err)
		}
	}
	return nil
}

func cloneUser(u ports.User) ports.User {
	u.Metadata = maps.Clone(u.Metadata)
	return u
}

func looksLikeEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1 && strings.Contains(email[at:], ".") && !strings.ContainsAny(email, " \t")
}

var _ ports.IdentityProvider = (*Provider)(nil)
