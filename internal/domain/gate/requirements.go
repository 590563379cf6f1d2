package gate

import (
	"slices"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

// Requirements declares what a page needs from the visitor. The zero value
// describes a public page.
type Requirements struct {
	RequireAuth     bool
	RequireVerified bool
	// AllowedRoles restricts the page to the listed roles. Empty accepts any.
	AllowedRoles []profile.Role
	// OnboardRoleless sends a roleless visitor to pick a role even when the
	// guard's policy treats them as corrupt.
	OnboardRoleless bool
}

// Public is the requirement set of pages anyone may view.
func Public() Requirements { return Requirements{} }

// SignedIn requires a session but nothing else.
func SignedIn() Requirements { return Requirements{RequireAuth: true} }

// Verified requires a session with a verified email.
func Verified() Requirements { return Requirements{RequireAuth: true, RequireVerified: true} }

// ForRoles requires a verified session belonging to one of roles.
func ForRoles(roles ...profile.Role) Requirements {
	return Requirements{RequireAuth: true, RequireVerified: true, AllowedRoles: roles}
}

// Dispatch is the requirement set of the post-login hub: any of roles may
// pass, and a visitor who has not chosen a role yet is onboarded.
func Dispatch(roles ...profile.Role) Requirements {
	r := ForRoles(roles...)
	r.OnboardRoleless = true
	return r
}

// Restricted reports whether the page accepts only specific roles.
func (r Requirements) Restricted() bool { return len(r.AllowedRoles) > 0 }

// Allows reports whether role may view the page.
func (r Requirements) Allows(role profile.Role) bool {
	return !r.Restricted() || slices.Contains(r.AllowedRoles, role)
}
