package testutil

import (
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// SnapshotBuilder provides a fluent interface for building identity snapshots.
// It starts from a fully loaded, signed in, verified user with no role.
type SnapshotBuilder struct {
	s profile.Snapshot
}

// NewSnapshot starts a builder for a loaded, signed-in, verified user.
func NewSnapshot() *SnapshotBuilder {
	return &SnapshotBuilder{s: profile.Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: true,
		UserID:        "user_test",
		Email:         "someone@example.com",
		RoleFields:    map[string]string{},
	}}
}

// Unverified clears the email verification flag.
func (b *SnapshotBuilder) Unverified() *SnapshotBuilder {
	b.s.EmailVerified = false
	return b
}

// WithRole sets the role.
func (b *SnapshotBuilder) WithRole(r profile.Role) *SnapshotBuilder {
	b.s.Role = r
	return b
}

// WithField sets one role field.
func (b *SnapshotBuilder) WithField(key, value string) *SnapshotBuilder {
	b.s.RoleFields[key] = value
	return b
}

// CompleteOrganizer sets the organizer role with every required field filled.
func (b *SnapshotBuilder) CompleteOrganizer() *SnapshotBuilder {
	return b.WithRole(profile.RoleOrganizer).
		WithField(profile.FieldOrganizationName, "Robotics Club").
		WithField(profile.FieldOfficialTitle, "President")
}

// CompleteSponsor sets the sponsor role with every required field filled.
func (b *SnapshotBuilder) CompleteSponsor() *SnapshotBuilder {
	return b.WithRole(profile.RoleSponsor).
		WithField(profile.FieldCompanyName, "Acme").
		WithField(profile.FieldCompanyDescription, "Widgets").
		WithField(profile.FieldSponsorshipPreferences, "Tech events")
}

// Build returns the snapshot.
func (b *SnapshotBuilder) Build() profile.Snapshot {
	return b.s
}

// UserBuilder provides a fluent interface for building provider users.
type UserBuilder struct {
	u ports.User
}

// NewUser starts a verified user with no metadata.
func NewUser(id, email string) *UserBuilder {
	return &UserBuilder{u: ports.User{
		ID:            id,
		Email:         email,
		EmailVerified: true,
		FirstName:     "Test",
		LastName:      "User",
		Metadata:      map[string]string{},
		CreatedAt:     TestTime(),
	}}
}

// Unverified clears the email verification flag.
func (b *UserBuilder) Unverified() *UserBuilder {
	b.u.EmailVerified = false
	return b
}

// WithMeta sets one metadata key.
func (b *UserBuilder) WithMeta(key, value string) *UserBuilder {
	b.u.Metadata[key] = value
	return b
}

// WithRole stores the role under the metadata role key.
func (b *UserBuilder) WithRole(r profile.Role) *UserBuilder {
	return b.WithMeta(profile.MetadataKeyRole, string(r))
}

// Build returns the user.
func (b *UserBuilder) Build() ports.User {
	return b.u
}
