package gate

import (
	"time"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
)

// Guard carries the policy knobs of the redirect guard. The zero value uses
// RolelessCorrupt and applies no wait cap or hop limit.
type Guard struct {
	Policy RolelessPolicy
	// MaxWait caps how long a visitor may sit on the loading placeholder.
	MaxWait time.Duration
	// MaxHops caps consecutive guard redirects within one navigation chain.
	MaxHops int
}

// Visit describes the request the guard is deciding for.
type Visit struct {
	// Current is the route being guarded, empty for pages outside the route table.
	Current Route
	// WaitingSince is when the visitor first saw the loading placeholder.
	WaitingSince time.Time
	// Hops counts guard redirects already issued in this chain.
	Hops int
	Now  time.Time
}

// Evaluate decides for one request. On top of Decide it
//   - forces a signed-out fallback once the wait cap is exceeded,
//   - never navigates to the page being guarded,
//   - breaks redirect chains longer than MaxHops.
func (g Guard) Evaluate(state profile.State, req Requirements, v Visit) Action {
	action := g.Decide(state, req)
	if action.Kind == ActionWait && g.waitExpired(v) {
		action = navigate(RouteLogin, ReasonWaitExpired)
		action.SignOut = true
	}
	if !action.IsNavigate() {
		return action
	}

	if v.Current != "" && action.Target == v.Current {
		self := render(ReasonSelfTarget)
		self.SignOut = action.SignOut
		return self
	}
	if g.MaxHops > 0 && v.Hops >= g.MaxHops {
		if v.Current == RouteAccountError {
			return render(ReasonLoop)
		}
		return navigate(RouteAccountError, ReasonLoop)
	}
	return action
}

func (g Guard) waitExpired(v Visit) bool {
	if g.MaxWait <= 0 || v.WaitingSince.IsZero() {
		return false
	}
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Sub(v.WaitingSince) >= g.MaxWait
}
