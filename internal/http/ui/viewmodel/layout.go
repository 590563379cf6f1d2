package viewmodel

// User represents the signed-in user exposed to templates.
type User struct {
	Email       string
	FirstName   string
	DisplayName string
	Role        string
	RoleLabel   string
	HomePath    string
	ProfilePath string
}

// Flash is a one-time notice rendered at the top of the page.
type Flash struct {
	Kind    string
	Message string
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	PageTitle       string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	SSOEnabled      bool
	User            *User
	Flash           *Flash
}
