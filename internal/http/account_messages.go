package httpx

import (
	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
)

// accountForm names the form an account error is shown on. The same
// failure code reads differently depending on the form.
type accountForm int

const (
	formSignIn accountForm = iota
	formSignUp
	formVerify
	formResend
	formForgot
	formReset
)

const generalField = "general"

//nolint:gochecknoglobals // fixed message table
var fallbackMessages = map[accountForm]string{
	formSignIn: "Login failed. Please try again.",
	formSignUp: "Something went wrong. Please try again.",
	formVerify: "Verification failed. Please try again.",
	formResend: "Failed to resend code. Please try again.",
	formForgot: "Failed to send reset code. Please try again.",
	formReset:  "Password reset failed. Please try again.",
}

//nolint:gochecknoglobals // fixed message table
var requiredMessages = map[string]string{
	"email":            "Email is required",
	"password":         "Password is required",
	"confirm_password": "Please confirm your password",
	"first_name":       "First name is required",
	"last_name":        "Last name is required",
	"role":             "Please select a role",
	"code":             "Please enter the 6-digit code",
}

// accountFailure maps an account operation error onto the form field it
// belongs to and the message shown there. Unknown errors land on the
// general field with the form's fallback text.
func accountFailure(form accountForm, err error) (field, message string) {
	op, ok := domainauth.AsOpError(err)
	if !ok {
		return generalField, fallbackMessages[form]
	}

	switch op.Code {
	case domainauth.CodeIdentifierExists:
		return "email", "An account with this email already exists"
	case domainauth.CodeIdentifierNotFound:
		if form == formForgot || form == formReset {
			return "email", "No account found with this email address"
		}
		return generalField, "Incorrect email or password"
	case domainauth.CodePasswordIncorrect:
		return generalField, "Incorrect email or password"
	case domainauth.CodePasswordPwned:
		return "password", "This password is too common. Please choose a stronger one"
	case domainauth.CodePasswordTooShort:
		return "password", "Password must be at least 8 characters"
	case domainauth.CodePasswordMismatch:
		return "confirm_password", "Passwords do not match"
	case domainauth.CodeEmailDomainNotAllowed:
		return "email", "Organizers must use @" + op.Message + " email address"
	case domainauth.CodeParamMissing:
		if msg, ok := requiredMessages[op.Field]; ok {
			return op.Field, msg
		}
	case domainauth.CodeParamInvalid:
		switch op.Field {
		case "email":
			return "email", "Please enter a valid email address"
		case "role":
			return "role", "Please select a role"
		case "code":
			return "code", "Invalid code. Please try again."
		}
	case domainauth.CodeCodeIncorrect:
		return "code", "Invalid code. Please try again."
	case domainauth.CodeVerificationExpired:
		return "code", "Code expired. Please request a new one."
	case domainauth.CodeVerificationThrottled:
		return generalField, "Please wait before requesting another code."
	case domainauth.CodeTooManyAttempts:
		return generalField, "Too many attempts. Please try again later."
	}
	return generalField, fallbackMessages[form]
}

// fieldErrors wraps a single failure into the template's error map.
func fieldErrors(field, message string) map[string]string {
	return map[string]string{field: message}
}
