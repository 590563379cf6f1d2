package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Snapshot is a read-only view of the identity facts for one request.
type Snapshot struct {
	// AuthLoaded and ProfileLoaded report whether the provider answered.
	AuthLoaded    bool
	ProfileLoaded bool

	SignedIn bool
	// UserPresent is false while a freshly signed-in user record has not
	// propagated yet.
	UserPresent   bool
	EmailVerified bool

	Role       Role
	RoleFields map[string]string

	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// PendingSnapshot is the snapshot of a provider that has not answered.
func PendingSnapshot() Snapshot { return Snapshot{} }

// SignedOutSnapshot is the loaded snapshot of an anonymous visitor.
func SignedOutSnapshot() Snapshot {
	return Snapshot{AuthLoaded: true, ProfileLoaded: true}
}

// Field returns the trimmed value of a profile field.
func (s Snapshot) Field(name string) string {
	return strings.TrimSpace(s.RoleFields[name])
}

// DisplayName returns the best available name for greeting the user.
func (s Snapshot) DisplayName() string {
	if name := strings.TrimSpace(s.FirstName); name != "" {
		return name
	}
	return "there"
}

// Fingerprint identifies the classification-relevant content of s. Two
// snapshots with the same fingerprint always classify the same way.
func (s Snapshot) Fingerprint() string {
	var b strings.Builder
	for _, flag := range []bool{s.AuthLoaded, s.ProfileLoaded, s.SignedIn, s.UserPresent, s.EmailVerified} {
		b.WriteString(strconv.FormatBool(flag))
		b.WriteByte('|')
	}
	b.WriteString(s.UserID)
	b.WriteByte('|')
	b.WriteString(string(s.Role))

	keys := make([]string, 0, len(s.RoleFields))
	for k := range s.RoleFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(s.RoleFields[k]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
