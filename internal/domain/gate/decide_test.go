package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

func organizerSnapshot() profile.Snapshot {
	return profile.Snapshot{
		AuthLoaded:    true,
		ProfileLoaded: true,
		SignedIn:      true,
		UserPresent:   true,
		EmailVerified: true,
		Role:          profile.RoleOrganizer,
		RoleFields: map[string]string{
			profile.FieldOrganizationName: "Tech Club",
			profile.FieldOfficialTitle:    "President",
		},
	}
}

func TestDecide_Table(t *testing.T) {
	organizerOnly := ForRoles(profile.RoleOrganizer)

	tests := []struct {
		name  string
		state profile.State
		req   Requirements
		want  Action
	}{
		{"loading waits on any page", profile.Loading(), Public(), wait()},
		{"loading waits on protected page", profile.Loading(), organizerOnly, wait()},
		{"signed out on protected page", profile.SignedOut(), SignedIn(), navigate(RouteLogin, ReasonSignedOut)},
		{"signed out on public page", profile.SignedOut(), Public(), render(ReasonAllowed)},
		{"unverified needing verification", profile.EmailUnverified(), Verified(), navigate(RouteVerifyEmail, ReasonUnverified)},
		{"unverified on signed-in page", profile.EmailUnverified(), SignedIn(), render(ReasonAllowed)},
		{"role unset on restricted page", profile.Roleless(), organizerOnly, navigate(RouteAccountError, ReasonCorrupt)},
		{"role unset on unrestricted page", profile.Roleless(), Verified(), render(ReasonAllowed)},
		{"corrupt on public page", profile.Corrupt(), Public(), navigate(RouteAccountError, ReasonCorrupt)},
		{"corrupt on restricted page", profile.Corrupt(), organizerOnly, navigate(RouteAccountError, ReasonCorrupt)},
		{
			"incomplete on own restricted page",
			profile.ProfileIncomplete(profile.RoleOrganizer), organizerOnly,
			navigate(RouteCompleteProfile, ReasonIncomplete),
		},
		{"incomplete on unrestricted page", profile.ProfileIncomplete(profile.RoleSponsor), Verified(), render(ReasonAllowed)},
		{
			"incomplete on other role page",
			profile.ProfileIncomplete(profile.RoleSponsor), organizerOnly,
			navigate(RouteSponsorHome, ReasonRoleMismatch),
		},
		{"ready on own page", profile.Ready(profile.RoleOrganizer), organizerOnly, render(ReasonAllowed)},
		{"ready on other role page", profile.Ready(profile.RoleOrganizer), ForRoles(profile.RoleSponsor), navigate(RouteOrganizerHome, ReasonRoleMismatch)},
		{"ready on unrestricted page", profile.Ready(profile.RoleSponsor), Public(), render(ReasonAllowed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.req))
		})
	}
}

func TestDecide_OnboardPolicy(t *testing.T) {
	g := Guard{Policy: RolelessOnboard}
	got := g.Decide(profile.Roleless(), ForRoles(profile.RoleSponsor))
	assert.Equal(t, navigate(RouteCompleteProfile, ReasonRoleUnset), got)

	// Corrupt stays terminal whatever the policy.
	got = g.Decide(profile.Corrupt(), ForRoles(profile.RoleSponsor))
	assert.Equal(t, navigate(RouteAccountError, ReasonCorrupt), got)
}

func TestDecide_HubOnboardsRolelessUnderEitherPolicy(t *testing.T) {
	hub := Dispatch(profile.Roles()...)
	for _, policy := range []RolelessPolicy{RolelessCorrupt, RolelessOnboard} {
		g := Guard{Policy: policy}
		assert.Equal(t, navigate(RouteCompleteProfile, ReasonRoleUnset), g.Decide(profile.Roleless(), hub), policy)
		assert.Equal(t, navigate(RouteAccountError, ReasonCorrupt), g.Decide(profile.Corrupt(), hub), policy)
		assert.Equal(t, render(ReasonAllowed), g.Decide(profile.Ready(profile.RoleSponsor), hub), policy)
	}
}

func TestDecide_Scenarios(t *testing.T) {
	req := ForRoles(profile.RoleOrganizer)

	t.Run("ready organizer renders", func(t *testing.T) {
		got := Decide(profile.Classify(organizerSnapshot()), req)
		assert.Equal(t, ActionRender, got.Kind)
	})

	t.Run("sponsor on organizer page goes to sponsor home", func(t *testing.T) {
		s := organizerSnapshot()
		s.Role = profile.RoleSponsor
		got := Decide(profile.Classify(s), req)
		assert.Equal(t, navigate(RouteSponsorHome, ReasonRoleMismatch), got)
	})

	t.Run("partial sponsor goes to complete-profile", func(t *testing.T) {
		s := organizerSnapshot()
		s.Role = profile.RoleSponsor
		s.RoleFields = map[string]string{profile.FieldCompanyName: "Acme"}
		got := Decide(profile.Classify(s), ForRoles(profile.RoleSponsor))
		assert.Equal(t, navigate(RouteCompleteProfile, ReasonIncomplete), got)
	})

	t.Run("roleless user on restricted page goes to account-error", func(t *testing.T) {
		s := organizerSnapshot()
		s.Role = profile.RoleUnset
		s.RoleFields = nil
		got := Decide(profile.Classify(s), req)
		assert.Equal(t, navigate(RouteAccountError, ReasonCorrupt), got)
	})
}

func TestDecide_SameSnapshotSameDecision(t *testing.T) {
	s := organizerSnapshot()
	s.Role = profile.RoleSponsor
	req := ForRoles(profile.RoleOrganizer)

	first := Decide(profile.Classify(s), req)
	second := Decide(profile.Classify(s), req)
	assert.Equal(t, first, second)
	assert.True(t, first.IsNavigate())
}

func TestParseRolelessPolicy(t *testing.T) {
	p, err := ParseRolelessPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, RolelessCorrupt, p)

	p, err = ParseRolelessPolicy("Onboard")
	assert.NoError(t, err)
	assert.Equal(t, RolelessOnboard, p)

	_, err = ParseRolelessPolicy("ignore")
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	assert.Equal(t, "/auth/login", RouteLogin.Path())
	assert.Equal(t, RouteSponsorHome, HomeFor(profile.RoleSponsor))
	assert.Equal(t, RouteCompleteProfile, HomeFor(profile.RoleUnset))

	r, ok := RouteForPath("/organizer/home")
	assert.True(t, ok)
	assert.Equal(t, RouteOrganizerHome, r)

	_, ok = RouteForPath("/nope")
	assert.False(t, ok)
}
