package clerk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// clerkCodes maps Clerk API error codes onto our failure codes.
var clerkCodes = map[string]domainauth.FailureCode{
	"form_identifier_exists":         domainauth.CodeIdentifierExists,
	"form_identifier_not_found":      domainauth.CodeIdentifierNotFound,
	"form_password_incorrect":        domainauth.CodePasswordIncorrect,
	"incorrect_password":             domainauth.CodePasswordIncorrect,
	"form_password_pwned":            domainauth.CodePasswordPwned,
	"form_password_length_too_short": domainauth.CodePasswordTooShort,
	"form_param_format_invalid":      domainauth.CodeParamInvalid,
	"form_param_missing":             domainauth.CodeParamMissing,
	"form_param_nil":                 domainauth.CodeParamMissing,
	"too_many_requests":              domainauth.CodeTooManyAttempts,
	"user_locked":                    domainauth.CodeTooManyAttempts,
}

// clerkParams maps Clerk parameter names onto our form field names.
var clerkParams = map[string]string{
	"email_address": "email",
	"password":      "password",
	"first_name":    "firstName",
	"last_name":     "lastName",
}

type errorMeta struct {
	ParamName string `json:"param_name"`
}

// mapError translates a Clerk SDK error. Known refusals become *OpError,
// 404s become ports.ErrUserNotFound, everything else is wrapped with op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *domainauth.OpError
	if errors.As(err, &opErr) {
		return err
	}

	var apiErr *clerk.APIErrorResponse
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("clerk %s: %w", op, err)
	}

	if apiErr.HTTPStatusCode == http.StatusNotFound {
		return ports.ErrUserNotFound
	}

	for _, e := range apiErr.Errors {
		if e.Code == "resource_not_found" {
			return ports.ErrUserNotFound
		}
		code, ok := clerkCodes[e.Code]
		if !ok {
			continue
		}
		var meta errorMeta
		if len(e.Meta) > 0 {
			_ = json.Unmarshal(e.Meta, &meta)
		}
		return &domainauth.OpError{
			Code:    code,
			Field:   clerkParams[meta.ParamName],
			Message: e.LongMessage,
			Cause:   err,
		}
	}

	if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &domainauth.OpError{Code: domainauth.CodeTooManyAttempts, Cause: err}
	}
	return fmt.Errorf("clerk %s: %w", op, err)
}
