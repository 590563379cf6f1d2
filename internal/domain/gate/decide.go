package gate

import (
	"fmt"
	"strings"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

// RolelessPolicy settles how role-restricted pages treat a verified user
// with no role at all.
type RolelessPolicy string

const (
	// RolelessCorrupt treats the user as corrupt and sends them to
	// account-error. Role-restricted pages assume an established user.
	RolelessCorrupt RolelessPolicy = "corrupt"
	// RolelessOnboard sends the user to pick a role on complete-profile.
	RolelessOnboard RolelessPolicy = "onboard"
)

// ParseRolelessPolicy validates a configured policy name. Empty selects
// RolelessCorrupt.
func ParseRolelessPolicy(raw string) (RolelessPolicy, error) {
	switch p := RolelessPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return RolelessCorrupt, nil
	case RolelessCorrupt, RolelessOnboard:
		return p, nil
	default:
		return "", fmt.Errorf("invalid roleless policy %q (valid options: corrupt, onboard)", raw)
	}
}

// Decide applies the decision table with the default roleless policy.
func Decide(state profile.State, req Requirements) Action {
	return Guard{}.Decide(state, req)
}

// Decide maps a profile state and page requirements onto an action. Rows are
// evaluated top to bottom and it never fails.
func (g Guard) Decide(state profile.State, req Requirements) Action {
	switch state.Kind {
	case profile.KindLoading:
		return wait()

	case profile.KindSignedOut:
		if req.RequireAuth {
			return navigate(RouteLogin, ReasonSignedOut)
		}

	case profile.KindEmailUnverified:
		if req.RequireVerified {
			return navigate(RouteVerifyEmail, ReasonUnverified)
		}

	case profile.KindRoleUnset:
		if req.Restricted() {
			if g.Policy == RolelessOnboard || req.OnboardRoleless {
				return navigate(RouteCompleteProfile, ReasonRoleUnset)
			}
			return navigate(RouteAccountError, ReasonCorrupt)
		}

	case profile.KindCorrupt:
		return navigate(RouteAccountError, ReasonCorrupt)

	case profile.KindProfileIncomplete, profile.KindReady:
		// A role mismatch is not corruption: the user goes to their own home,
		// whose guard then deals with an incomplete profile.
		if !req.Allows(state.Role) {
			return navigate(HomeFor(state.Role), ReasonRoleMismatch)
		}
		if state.Kind == profile.KindProfileIncomplete && req.Restricted() {
			return navigate(RouteCompleteProfile, ReasonIncomplete)
		}
	}

	return render(ReasonAllowed)
}
