package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-realtime/pkg/events"
)

func signedToken(t *testing.T, sub, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestResolveDirectFields(t *testing.T) {
	ident, err := Resolve(events.AuthPayload{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
	assert.Equal(t, "a@x.com", ident.Email)
}

func TestResolveDirectFieldsWinOverToken(t *testing.T) {
	ident, err := Resolve(events.AuthPayload{
		ID:    "u1",
		Email: "a@x.com",
		Token: signedToken(t, "someone-else", "b@x.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
}

func TestResolveFromToken(t *testing.T) {
	ident, err := Resolve(events.AuthPayload{Token: signedToken(t, "u9", "c@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "u9", ident.UserID)
	assert.Equal(t, "c@x.com", ident.Email)
}

func TestResolveTokenWithoutSubject(t *testing.T) {
	_, err := Resolve(events.AuthPayload{Token: signedToken(t, "", "c@x.com")})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestResolveGarbageToken(t *testing.T) {
	_, err := Resolve(events.AuthPayload{Token: "not.a.jwt"})
	assert.Error(t, err)
}

func TestResolveEmptyPayload(t *testing.T) {
	_, err := Resolve(events.AuthPayload{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}
