package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sponsorlink/sponsorlink-web/internal/domain/gate"
	"github.com/sponsorlink/sponsorlink-web/internal/domain/profile"
	apperrors "github.com/sponsorlink/sponsorlink-web/internal/errors"
	"github.com/sponsorlink/sponsorlink-web/internal/service"
)

// profileField describes one input of a profile form.
type profileField struct {
	Key       string
	Label     string
	Required  bool
	Multiline bool
	Value     string
}

//nolint:gochecknoglobals // fixed field labels
var fieldLabels = map[string]string{
	profile.FieldOrganizationName:       "Organization Name",
	profile.FieldOfficialTitle:          "Official Title",
	profile.FieldBio:                    "Bio",
	profile.FieldCompanyName:            "Company Name",
	profile.FieldCompanyDescription:     "Company Description",
	profile.FieldSponsorshipPreferences: "Sponsorship Preferences",
}

//nolint:gochecknoglobals // fixed textarea set
var multilineFields = map[string]bool{
	profile.FieldBio:                    true,
	profile.FieldCompanyDescription:     true,
	profile.FieldSponsorshipPreferences: true,
}

func profileFields(role profile.Role, values map[string]string) []profileField {
	required := make(map[string]bool)
	for _, key := range profile.RequiredFields(role) {
		required[key] = true
	}
	keys := profile.Fields(role)
	out := make([]profileField, 0, len(keys))
	for _, key := range keys {
		out = append(out, profileField{
			Key:       key,
			Label:     fieldLabels[key],
			Required:  required[key],
			Multiline: multilineFields[key],
			Value:     values[key],
		})
	}
	return out
}

func submittedFields(r *http.Request, role profile.Role) map[string]string {
	out := make(map[string]string)
	for _, key := range profile.Fields(role) {
		out[key] = strings.TrimSpace(r.PostFormValue(key))
	}
	return out
}

// CompleteProfilePage renders the onboarding form. The role picker only
// appears while the user has no role; afterwards the role is fixed.
func (h *UIHandlers) CompleteProfilePage(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if v.State.Is(profile.KindReady) {
		redirectTo(w, r, gate.HomeFor(v.State.Role).Path())
		return
	}

	role := v.State.Role
	if !role.Valid() {
		role, _ = profile.ParseRole(r.URL.Query().Get("role"))
	}
	data := h.completeProfileData(w, r, v, role, v.Snapshot.RoleFields).Build()
	h.renderPage(w, r, data, http.StatusOK)
}

func (h *UIHandlers) completeProfileData(w http.ResponseWriter, r *http.Request, v Visitor, role profile.Role, values map[string]string) *TemplateDataBuilder {
	b := h.NewTemplateData(w, r, pageMeta(PageCompleteProfile, "Complete Your Profile")).
		With("ShowRolePicker", v.State.Is(profile.KindRoleUnset)).
		With("Roles", roleOptions(string(role))).
		With("Name", v.Snapshot.DisplayName())
	if role.Valid() {
		b.With("Role", string(role)).
			With("RoleLabel", role.Label()).
			With("Fields", profileFields(role, values))
	}
	return b
}

// CompleteProfile saves the onboarding form and sends the user home.
func (h *UIHandlers) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	rawRole := r.PostFormValue("role")
	if v.State.Role.Valid() {
		rawRole = string(v.State.Role)
	}
	role, _ := profile.ParseRole(rawRole)
	values := submittedFields(r, role)

	res, err := h.Profiles.Submit(r.Context(), v.Session, rawRole, values)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			redirectTo(w, r, HubPath)
			return
		}
		data := h.completeProfileData(w, r, v, role, values).
			WithFieldErrors(h.profileErrors(r, err)).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}

	if res.State.Is(profile.KindReady) {
		redirectTo(w, r, gate.HomeFor(res.State.Role).Path())
		return
	}
	// Saved but not routable yet; the hub decides from fresh facts.
	redirectTo(w, r, HubPath)
}

// OrganizerProfile renders the organizer profile view or edit form.
func (h *UIHandlers) OrganizerProfile(w http.ResponseWriter, r *http.Request) {
	h.roleProfilePage(w, r, profile.RoleOrganizer, PageOrganizerProfile)
}

// OrganizerProfileUpdate saves the organizer profile.
func (h *UIHandlers) OrganizerProfileUpdate(w http.ResponseWriter, r *http.Request) {
	h.roleProfileUpdate(w, r, profile.RoleOrganizer, PageOrganizerProfile)
}

// SponsorProfile renders the sponsor profile view or edit form.
func (h *UIHandlers) SponsorProfile(w http.ResponseWriter, r *http.Request) {
	h.roleProfilePage(w, r, profile.RoleSponsor, PageSponsorProfile)
}

// SponsorProfileUpdate saves the sponsor profile.
func (h *UIHandlers) SponsorProfileUpdate(w http.ResponseWriter, r *http.Request) {
	h.roleProfileUpdate(w, r, profile.RoleSponsor, PageSponsorProfile)
}

func (h *UIHandlers) roleProfileData(w http.ResponseWriter, r *http.Request, v Visitor, role profile.Role, page string, values map[string]string) *TemplateDataBuilder {
	return h.NewTemplateData(w, r, pageMeta(page, role.Label()+" Profile")).
		With("Role", string(role)).
		With("RoleLabel", role.Label()).
		With("Name", v.Snapshot.DisplayName()).
		With("Email", v.Snapshot.Email).
		With("Fields", profileFields(role, values)).
		With("ProfilePath", profilePathFor(role))
}

func (h *UIHandlers) roleProfilePage(w http.ResponseWriter, r *http.Request, role profile.Role, page string) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	data := h.roleProfileData(w, r, v, role, page, v.Snapshot.RoleFields).
		With("Editing", r.URL.Query().Get("edit") != "").
		Build()
	h.renderPage(w, r, data, http.StatusOK)
}

func (h *UIHandlers) roleProfileUpdate(w http.ResponseWriter, r *http.Request, role profile.Role, page string) {
	v, ok := VisitorFromContext(r.Context())
	if !ok || !v.HasSession {
		redirectTo(w, r, gate.RouteLogin.Path())
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	values := submittedFields(r, role)
	if _, err := h.Profiles.Submit(r.Context(), v.Session, string(role), values); err != nil {
		if apperrors.IsUnauthorized(err) {
			redirectTo(w, r, HubPath)
			return
		}
		data := h.roleProfileData(w, r, v, role, page, values).
			With("Editing", true).
			WithFieldErrors(h.profileErrors(r, err)).
			Build()
		h.renderPage(w, r, data, http.StatusUnprocessableEntity)
		return
	}

	h.Cookies.WriteFlash(w, r, FlashNotice{Kind: FlashSuccess, Key: FlashProfileSaved})
	redirectTo(w, r, profilePathFor(role))
}

// profileErrors turns a Submit failure into form errors. Validation errors
// stay on their field; anything else is a retryable general error.
func (h *UIHandlers) profileErrors(r *http.Request, err error) map[string]string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && apperrors.IsValidation(err) {
		field := appErr.Field
		if field == "" {
			field = generalField
		}
		return fieldErrors(field, appErr.Message)
	}
	h.logger().ErrorContext(r.Context(), "profile save failed", "error", err)
	return fieldErrors(generalField, service.MsgProfileSaveFailed)
}
