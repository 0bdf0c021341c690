package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/prismhq/prism/internal/platform/httpx"
	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/shared"
)

// LocalIDResolver maps an external identity to a local account id.
// rbac.PGStore satisfies it.
type LocalIDResolver interface {
	ResolveLocalID(ctx context.Context, externalID string) (int64, error)
}

// Middleware authenticates requests and injects the principal into context.
type Middleware struct {
	Verifier *TokenVerifier
	Resolver LocalIDResolver
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid bearer token. An identity
// that verifies but has no local mapping still passes through: the principal
// carries only the external id and the authorization layer denies it as
// NoPrincipal. A lookup failure is an infrastructure error, never a silent
// pass.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		externalID, err := m.Verifier.Verify(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("token verification failed", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
			return
		}

		principal := shared.Principal{ExternalID: externalID}
		localID, err := m.Resolver.ResolveLocalID(r.Context(), externalID)
		switch {
		case err == nil:
			principal.LocalID = localID
		case errors.Is(err, rbac.ErrPrincipalNotFound):
			// Leave LocalID zero; authorization will deny.
		default:
			if m.Logger != nil {
				m.Logger.Error("resolve principal", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
