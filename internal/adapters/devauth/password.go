package devauth

import (
	"strings"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
)

// MinPasswordLength matches the hosted provider's default policy.
const MinPasswordLength = 8

const maxPasswordLength = 72 // bcrypt input limit

// commonPasswords stands in for the breached-password check of the hosted provider.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {},
	"123456789": {}, "qwerty123": {}, "letmein1": {}, "iloveyou": {},
	"sunshine1": {}, "football": {}, "welcome1": {}, "admin123": {},
}

// CheckPassword applies the local password policy.
func CheckPassword(password string) error {
	if len(password) < MinPasswordLength {
		return domainauth.Fail(domainauth.CodePasswordTooShort, "password")
	}
	if len(password) > maxPasswordLength {
		return &domainauth.OpError{Code: domainauth.CodeParamInvalid, Field: "password", Message: "password too long"}
	}
	if _, weak := commonPasswords[strings.ToLower(password)]; weak {
		return domainauth.Fail(domainauth.CodePasswordPwned, "password")
	}
	return nil
}
