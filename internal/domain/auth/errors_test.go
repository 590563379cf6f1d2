package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError_Unwrapping(t *testing.T) {
	cause := errors.New("upstream said no")
	err := fmt.Errorf("sign up: %w", &OpError{Code: CodeIdentifierExists, Field: "email", Cause: cause})

	op, ok := AsOpError(err)
	require.True(t, ok)
	assert.Equal(t, CodeIdentifierExists, op.Code)
	assert.Equal(t, "email", op.Field)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeIdentifierExists))
	assert.False(t, HasCode(err, CodePasswordPwned))
	assert.Contains(t, err.Error(), "form_identifier_exists (email)")
}

func TestAsOpError_Plain(t *testing.T) {
	_, ok := AsOpError(errors.New("boom"))
	assert.False(t, ok)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
