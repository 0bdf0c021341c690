// Package authn verifies bearer tokens issued by the external identity
// provider and attaches the resulting principal to the request context.
// Prism never issues credentials itself.
package authn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure the caller should treat
// as a 401.
var ErrInvalidToken = errors.New("authn: invalid token")

// TokenVerifier validates identity-provider JWTs with a shared HMAC secret.
// The subject claim carries the external identity in "user_<opaque>" form.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenVerifier constructs a TokenVerifier. issuer and audience are
// enforced when non-empty.
func NewTokenVerifier(secret []byte, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{secret: secret, issuer: issuer, audience: audience}
}

// Verify parses and validates the token, returning the external identity.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if !strings.HasPrefix(subject, "user_") {
		return "", fmt.Errorf("%w: unexpected subject format", ErrInvalidToken)
	}
	return subject, nil
}
