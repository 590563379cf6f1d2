package profile

// Classify maps a snapshot onto its profile state. It is total and has no
// side effects; the first matching rule wins. The verification check must
// stay ahead of the role check: a fresh unverified account has no role yet
// and has to land on EmailUnverified.
func Classify(s Snapshot) State {
	switch {
	case !s.AuthLoaded || !s.ProfileLoaded:
		return Loading()
	case !s.SignedIn:
		return SignedOut()
	case !s.UserPresent:
		return Loading()
	case !s.EmailVerified:
		return EmailUnverified()
	case !s.Role.Valid():
		// Profile fields without a role mean a role was written and later lost.
		if hasAnyRoleField(s.RoleFields) {
			return Corrupt()
		}
		return Roleless()
	case len(MissingFields(s.Role, s.RoleFields)) > 0:
		return ProfileIncomplete(s.Role)
	default:
		return Ready(s.Role)
	}
}
