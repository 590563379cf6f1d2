package profile

// Kind enumerates the closed set of profile states.
type Kind uint8

const (
	KindLoading Kind = iota
	KindSignedOut
	KindEmailUnverified
	KindRoleUnset
	KindProfileIncomplete
	KindReady
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "Loading"
	case KindSignedOut:
		return "SignedOut"
	case KindEmailUnverified:
		return "EmailUnverified"
	case KindRoleUnset:
		return "RoleUnset"
	case KindProfileIncomplete:
		return "ProfileIncomplete"
	case KindReady:
		return "Ready"
	case KindCorrupt:
		return "Corrupt"
	default:
		return "Unknown"
	}
}

// State is the classifier output. Role is set only for ProfileIncomplete and
// Ready.
type State struct {
	Kind Kind
	Role Role
}

func Loading() State { return State{Kind: KindLoading} }
func SignedOut() State { return State{Kind: KindSignedOut} }
func EmailUnverified() State { return State{Kind: KindEmailUnverified} }
func Roleless() State { return State{Kind: KindRoleUnset} }
func ProfileIncomplete(role Role) State { return State{Kind: KindProfileIncomplete, Role: role} }
func Ready(role Role) State { return State{Kind: KindReady, Role: role} }
func Corrupt() State { return State{Kind: KindCorrupt} }

// Is reports whether s has kind k.
func (s State) Is(k Kind) bool { return s.Kind == k }

func (s State) String() string {
	if s.Kind == KindProfileIncomplete || s.Kind == KindReady {
		return s.Kind.String() + "(" + s.Role.String() + ")"
	}
	return s.Kind.String()
}
