// Package auth extracts a user identity from the authenticate payload.
//
// Identity is client-asserted and trusted as-is at this layer: session
// issuance and authorization live in the surrounding application. When the
// client hands over a JWT instead of plain id/email fields, the claims are
// decoded without signature verification.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"forum-realtime/pkg/events"
)

// Identity is the resolved user identity for a connection.
type Identity struct {
	UserID string
	Email  string
}

var ErrNoIdentity = errors.New("auth: payload carries no user identifier")

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Resolve turns an authenticate payload into an Identity. Direct id/email
// fields win; otherwise the token's claims are used. A payload with neither
// yields ErrNoIdentity and the connection stays anonymous.
func Resolve(p events.AuthPayload) (Identity, error) {
	if p.ID != "" {
		return Identity{UserID: p.ID, Email: p.Email}, nil
	}
	if p.Token != "" {
		return fromToken(p.Token)
	}
	return Identity{}, ErrNoIdentity
}

// fromToken decodes the JWT claims without verifying the signature. The
// subject claim becomes the user id.
func fromToken(token string) (Identity, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("auth: decode token: %w", err)
	}
	if claims.Subject == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
