// Package jwttoken implements HS256 token validation for user-facing routes.
// Token issuance lives here too so the capture CLI and tests can mint tokens
// against a dev signing key.
package jwttoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trustbadge/internal/platform/middleware"
)

type claims struct {
	jwt.RegisteredClaims
}

// Validator checks bearer tokens signed with the shared HS256 key.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token, returning the claims the
// middleware needs. The subject claim carries the user ID.
func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &middleware.JWTClaims{UserID: c.Subject}, nil
}

// Issue mints a token for the given user ID, valid for ttl.
func (v *Validator) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.signingKey)
}
