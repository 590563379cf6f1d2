// Package profile derives a user's marketplace readiness from the identity
// facts reported by the identity provider.
package profile

import "strings"

// Role is the marketplace side a user represents.
type Role string

const (
	RoleUnset     Role = ""
	RoleOrganizer Role = "organizer"
	RoleSponsor   Role = "sponsor"
)

// MetadataKeyRole is the provider metadata key holding the user's role.
const MetadataKeyRole = "userType"

// Profile field names as stored in provider metadata.
const (
	FieldOrganizationName       = "organizationName"
	FieldOfficialTitle          = "officialTitle"
	FieldBio                    = "bio"
	FieldCompanyName            = "companyName"
	FieldCompanyDescription     = "companyDescription"
	FieldSponsorshipPreferences = "sponsorshipPreferences"
)

// Roles lists every assignable role.
func Roles() []Role { return []Role{RoleOrganizer, RoleSponsor} }

// ParseRole maps a stored or submitted value onto a Role. Unknown values
// report false and yield RoleUnset.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOrganizer:
		return RoleOrganizer, true
	case RoleSponsor:
		return RoleSponsor, true
	default:
		return RoleUnset, false
	}
}

// Valid reports whether r is an assignable role.
func (r Role) Valid() bool { return r == RoleOrganizer || r == RoleSponsor }

func (r Role) String() string {
	if r == RoleUnset {
		return "unset"
	}
	return string(r)
}

// Label is the human-facing name of the role.
func (r Role) Label() string {
	switch r {
	case RoleOrganizer:
		return "Organizer"
	case RoleSponsor:
		return "Sponsor"
	default:
		return ""
	}
}

// RequiredFields returns the metadata keys that must be non-empty for r.
func RequiredFields(r Role) []string {
	switch r {
	case RoleOrganizer:
		return []string{FieldOrganizationName, FieldOfficialTitle}
	case RoleSponsor:
		return []string{FieldCompanyName, FieldCompanyDescription, FieldSponsorshipPreferences}
	default:
		return nil
	}
}

// OptionalFields returns the metadata keys r may carry without requiring them.
func OptionalFields(r Role) []string {
	if r == RoleOrganizer {
		return []string{FieldBio}
	}
	return nil
}

// Fields returns every profile key owned by r, required keys first.
func Fields(r Role) []string {
	return append(RequiredFields(r), OptionalFields(r)...)
}

// MissingFields returns the required keys of r that are absent or blank.
func MissingFields(r Role, fields map[string]string) []string {
	var missing []string
	for _, key := range RequiredFields(r) {
		if strings.TrimSpace(fields[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// hasAnyRoleField reports whether fields carries a value for a key owned by
// any role. Only profile saves write these keys, and they always write the
// role alongside them.
func hasAnyRoleField(fields map[string]string) bool {
	for _, r := range Roles() {
		for _, key := range Fields(r) {
			if strings.TrimSpace(fields[key]) != "" {
				return true
			}
		}
	}
	return false
}
