package auth

import (
	"errors"
	"fmt"
)

// FailureCode is a typed reason an account operation was refused.
type FailureCode string

const (
	CodeIdentifierExists      FailureCode = "form_identifier_exists"
	CodeIdentifierNotFound    FailureCode = "form_identifier_not_found"
	CodePasswordIncorrect     FailureCode = "form_password_incorrect"
	CodePasswordPwned         FailureCode = "form_password_pwned"
	CodePasswordTooShort      FailureCode = "form_password_length_too_short"
	CodePasswordMismatch      FailureCode = "form_password_mismatch"
	CodeParamInvalid          FailureCode = "form_param_format_invalid"
	CodeParamMissing          FailureCode = "form_param_missing"
	CodeEmailDomainNotAllowed FailureCode = "form_email_domain_not_allowed"
	CodeCodeIncorrect         FailureCode = "form_code_incorrect"
	CodeVerificationExpired   FailureCode = "verification_expired"
	CodeVerificationThrottled FailureCode = "verification_throttled"
	CodeSessionExists         FailureCode = "session_exists"
	CodeTooManyAttempts       FailureCode = "too_many_attempts"
)

// OpError is a refused account operation. Field names the form input at
// fault, when there is one.
type OpError struct {
	Code    FailureCode
	Field   string
	Message string
	Cause   error
}

func (e *OpError) Error() string {
	msg := string(e.Code)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *OpError) Unwrap() error { return e.Cause }

// Fail builds an OpError for code attributed to field.
func Fail(code FailureCode, field string) *OpError {
	return &OpError{Code: code, Field: field}
}

// AsOpError unwraps err into an OpError.
func AsOpError(err error) (*OpError, bool) {
	var op *OpError
	if errors.As(err, &op) {
		return op, true
	}
	return nil, false
}

// HasCode reports whether err carries code.
func HasCode(err error, code FailureCode) bool {
	op, ok := AsOpError(err)
	return ok && op.Code == code
}
