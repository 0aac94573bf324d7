package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Session is an issued session token together with its expiry, which is also the
// lifetime of the cookie carrying it.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
