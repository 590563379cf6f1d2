package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func readyOrganizer() Snapshot {
	return Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: true,
		Role:          RoleOrganizer,
		RoleFields: map[string]string{
			FieldOrganizationName: "Tech Club",
			FieldOfficialTitle:    "President",
		},
	}
}

func readySponsor() Snapshot {
	return Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: true,
		Role:          RoleSponsor,
		RoleFields: map[string]string{
			FieldCompanyName:            "Acme",
			FieldCompanyDescription:     "Widgets",
			FieldSponsorshipPreferences: "Hackathons",
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   State
	}{
		{name: "ready organizer", mutate: func(*Snapshot) {}, want: Ready(RoleOrganizer)},
		{name: "auth not loaded", mutate: func(s *Snapshot) { s.AuthLoaded = false }, want: Loading()},
		{name: "profile not loaded", mutate: func(s *Snapshot) { s.ProfileLoaded = false }, want: Loading()},
		{name: "signed out", mutate: func(s *Snapshot) { s.SignedIn = false }, want: SignedOut()},
		{name: "user record not propagated", mutate: func(s *Snapshot) { s.UserPresent = false }, want: Loading()},
		{name: "unverified", mutate: func(s *Snapshot) { s.EmailVerified = false }, want: EmailUnverified()},
		{
			name: "new user without role",
			mutate: func(s *Snapshot) {
				s.Role = RoleUnset
				s.RoleFields = nil
			},
			want: Roleless(),
		},
		{
			name:   "fields without role",
			mutate: func(s *Snapshot) { s.Role = RoleUnset },
			want:   Corrupt(),
		},
		{
			name:   "missing official title",
			mutate: func(s *Snapshot) { delete(s.RoleFields, FieldOfficialTitle) },
			want:   ProfileIncomplete(RoleOrganizer),
		},
		{
			name:   "whitespace counts as empty",
			mutate: func(s *Snapshot) { s.RoleFields[FieldOrganizationName] = "   " },
			want:   ProfileIncomplete(RoleOrganizer),
		},
		{
			name:   "bio is optional",
			mutate: func(s *Snapshot) { s.RoleFields[FieldBio] = "" },
			want:   Ready(RoleOrganizer),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := readyOrganizer()
			tt.mutate(&s)
			assert.Equal(t, tt.want, Classify(s))
		})
	}
}

func TestClassify_NotLoadedAlwaysLoading(t *testing.T) {
	for _, authLoaded := range []bool{true, false} {
		for _, profileLoaded := range []bool{true, false} {
			if authLoaded && profileLoaded {
				continue
			}
			for _, base := range []Snapshot{readyOrganizer(), readySponsor(), {}, {SignedIn: true}} {
				base.AuthLoaded = authLoaded
				base.ProfileLoaded = profileLoaded
				assert.Equal(t, Loading(), Classify(base))
			}
		}
	}
}

func TestClassify_SignedOutWhateverElse(t *testing.T) {
	for _, base := range []Snapshot{readyOrganizer(), readySponsor(), {EmailVerified: true, Role: RoleSponsor}} {
		base.AuthLoaded = true
		base.ProfileLoaded = true
		base.SignedIn = false
		assert.Equal(t, SignedOut(), Classify(base))
	}
}

func TestClassify_VerificationPrecedesRole(t *testing.T) {
	s := Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: false,
		Role:          RoleUnset,
	}
	assert.Equal(t, EmailUnverified(), Classify(s))
}

func TestClassify_RequiredFieldRoundTrip(t *testing.T) {
	for _, base := range []Snapshot{readyOrganizer(), readySponsor()} {
		for _, key := range RequiredFields(base.Role) {
			s := base
			s.RoleFields = map[string]string{}
			for k, v := range base.RoleFields {
				s.RoleFields[k] = v
			}
			assert.Equal(t, Ready(base.Role), Classify(s))

			saved := s.RoleFields[key]
			delete(s.RoleFields, key)
			assert.Equal(t, ProfileIncomplete(base.Role), Classify(s), "without %s", key)

			s.RoleFields[key] = saved
			assert.Equal(t, Ready(base.Role), Classify(s), "restored %s", key)
		}
	}
}

func TestClassify_PartialSponsor(t *testing.T) {
	s := readySponsor()
	s.RoleFields = map[string]string{FieldCompanyName: "Acme"}
	assert.Equal(t, ProfileIncomplete(RoleSponsor), Classify(s))
	assert.ElementsMatch(t,
		[]string{FieldCompanyDescription, FieldSponsorshipPreferences},
		MissingFields(RoleSponsor, s.RoleFields),
	)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Organizer ")
	assert.True(t, ok)
	assert.Equal(t, RoleOrganizer, r)

	r, ok = ParseRole("sponsor")
	assert.True(t, ok)
	assert.Equal(t, RoleSponsor, r)

	r, ok = ParseRole("admin")
	assert.False(t, ok)
	assert.Equal(t, RoleUnset, r)
}

func TestSnapshotFingerprint(t *testing.T) {
	a := readyOrganizer()
	b := readyOrganizer()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.RoleFields[FieldOfficialTitle] = "Treasurer"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := readyOrganizer()
	c.EmailVerified = false
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Ready(sponsor)", Ready(RoleSponsor).String())
	assert.Equal(t, "ProfileIncomplete(organizer)", ProfileIncomplete(RoleOrganizer).String())
	assert.Equal(t, "RoleUnset", Roleless().String())
}
