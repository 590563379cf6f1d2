// Package gate decides, per page, whether a user in a given profile state may
// see the page or must be sent to a corrective route.
package gate

import "github.com/sponsorlink/sponsorlink-web/internal/domain/profile"

// Route names a page the guard may navigate to.
type Route string

const (
	RouteLogin           Route = "login"
	RouteSignup          Route = "signup"
	RouteVerifyEmail     Route = "verify-email"
	RouteCompleteProfile Route = "complete-profile"
	RouteAccountError    Route = "account-error"
	RouteOrganizerHome   Route = "organizer-home"
	RouteSponsorHome     Route = "sponsor-home"
)

var routePaths = map[Route]string{ //nolint:gochecknoglobals // fixed route table
	RouteLogin:           "/auth/login",
	RouteSignup:          "/auth/signup",
	RouteVerifyEmail:     "/auth/verify-email",
	RouteCompleteProfile: "/auth/complete-profile",
	RouteAccountError:    "/auth/account-error",
	RouteOrganizerHome:   "/organizer/home",
	RouteSponsorHome:     "/sponsor/home",
}

// Path returns the URL path of r, or "/" for an unknown route.
func (r Route) Path() string {
	if p, ok := routePaths[r]; ok {
		return p
	}
	return "/"
}

// RouteForPath returns the route served at path, if any.
func RouteForPath(path string) (Route, bool) {
	for r, p := range routePaths {
		if p == path {
			return r, true
		}
	}
	return "", false
}

// HomeFor returns the landing route of a role. Unassigned roles have no home
// and are sent to complete their profile.
func HomeFor(role profile.Role) Route {
	switch role {
	case profile.RoleOrganizer:
		return RouteOrganizerHome
	case profile.RoleSponsor:
		return RouteSponsorHome
	default:
		return RouteCompleteProfile
	}
}
