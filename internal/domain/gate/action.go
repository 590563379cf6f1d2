package gate

// ActionKind is what the guard tells a page to do.
type ActionKind uint8

const (
	// ActionRender lets the page render.
	ActionRender ActionKind = iota
	// ActionWait shows a loading placeholder and suspends the decision.
	ActionWait
	// ActionNavigate sends the visitor to Action.Target.
	ActionNavigate
)

func (k ActionKind) String() string {
	switch k {
	case ActionRender:
		return "render"
	case ActionWait:
		return "wait"
	case ActionNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// Reason explains a decision for logs and metrics.
type Reason string

const (
	ReasonAllowed      Reason = "allowed"
	ReasonLoading      Reason = "loading"
	ReasonSignedOut    Reason = "signed_out"
	ReasonUnverified   Reason = "email_unverified"
	ReasonRoleUnset    Reason = "role_unset"
	ReasonCorrupt      Reason = "corrupt"
	ReasonIncomplete   Reason = "profile_incomplete"
	ReasonRoleMismatch Reason = "role_mismatch"
	ReasonWaitExpired  Reason = "wait_expired"
	ReasonSelfTarget   Reason = "self_target"
	ReasonLoop         Reason = "redirect_loop"
)

// Action is a single guard decision.
type Action struct {
	Kind   ActionKind
	Target Route
	Reason Reason
	// SignOut asks the caller to drop the visitor's session before navigating.
	SignOut bool
}

func render(reason Reason) Action { return Action{Kind: ActionRender, Reason: reason} }

func wait() Action { return Action{Kind: ActionWait, Reason: ReasonLoading} }

func navigate(target Route, reason Reason) Action {
	return Action{Kind: ActionNavigate, Target: target, Reason: reason}
}

// IsNavigate reports whether the action redirects.
func (a Action) IsNavigate() bool { return a.Kind == ActionNavigate }

func (a Action) String() string {
	if a.Kind == ActionNavigate {
		return a.Kind.String() + "(" + string(a.Target) + ")"
	}
	return a.Kind.String()
}
