package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    string
	SessionID string
	JTI       string
}

// AccessTokenClaims represents the typed JWT presented by clients. The session id
// scopes the cart, the handoff and the submit guard.
type AccessTokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
