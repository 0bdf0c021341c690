package authn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/shared"
)

var testSecret = []byte("test-secret-test-secret-32bytes!")

func signToken(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://idp.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewTokenVerifier(testSecret, "https://idp.example.com", "")
	externalID, err := v.Verify(signToken(t, "user_abc123", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user_abc123", externalID)
}

func TestVerifyRejects(t *testing.T) {
	v := NewTokenVerifier(testSecret, "https://idp.example.com", "")

	cases := map[string]string{
		"expired":       signToken(t, "user_abc123", -time.Hour),
		"bad subject":   signToken(t, "svc_backend", time.Hour),
		"empty subject": signToken(t, "", time.Hour),
		"garbage":       "not-a-token",
	}
	for name, token := range cases {
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "user_abc123", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	v := NewTokenVerifier(testSecret, "", "")
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubResolver struct {
	ids map[string]int64
	err error
}

func (s stubResolver) ResolveLocalID(_ context.Context, externalID string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	id, ok := s.ids[externalID]
	if !ok {
		return 0, rbac.ErrPrincipalNotFound
	}
	return id, nil
}

func authServer(resolver LocalIDResolver, capture *shared.Principal) http.Handler {
	mw := Middleware{
		Verifier: NewTokenVerifier(testSecret, "", ""),
		Resolver: resolver,
	}
	return mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := shared.PrincipalFromContext(r.Context()); ok && capture != nil {
			*capture = p
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuthenticateInjectsPrincipal(t *testing.T) {
	var got shared.Principal
	handler := authServer(stubResolver{ids: map[string]int64{"user_abc123": 7}}, &got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user_abc123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), got.LocalID)
	assert.Equal(t, "user_abc123", got.ExternalID)
}

func TestAuthenticateUnmappedIdentityPassesWithoutLocalID(t *testing.T) {
	var got shared.Principal
	handler := authServer(stubResolver{}, &got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user_ghost", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, got.HasLocalID())
	assert.Equal(t, "user_ghost", got.ExternalID)
}

func TestAuthenticateMissingOrBadToken(t *testing.T) {
	handler := authServer(stubResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateLookupFailureIsServerError(t *testing.T) {
	handler := authServer(stubResolver{err: errors.New("store unavailable")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user_abc123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
